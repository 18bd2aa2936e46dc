package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/instrumentation"
)

// DefaultAppointmentSubject is used when extracted data has no subject.
const DefaultAppointmentSubject = "Neuer Termin"

// DefaultAppointmentLength is added to the start when there is no end.
const DefaultAppointmentLength = time.Hour

// timeLayouts are tried in order when reading start and end values.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2006-01-02",
	"02.01.2006",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Appointment converts extracted calendar data to host appointment fields,
// filling gaps with defaults: subject "Neuer Termin", start now, end one
// hour after the start.
func (o *Orchestrator) Appointment(data EventData) host.Appointment {
	appt := host.Appointment{
		Subject:           data.Subject,
		Location:          data.Location,
		Body:              data.Description,
		RequiredAttendees: append([]string{}, data.Attendees...),
	}
	if appt.Subject == "" {
		appt.Subject = DefaultAppointmentSubject
	}

	start, ok := parseTime(data.Start)
	if !ok {
		start = o.now()
	}
	appt.Start = start

	end, ok := parseTime(data.End)
	if !ok || end.Before(start) {
		end = start.Add(DefaultAppointmentLength)
	}
	appt.End = end

	return appt
}

// CreateAppointment opens the host's new-appointment form pre-filled from
// data.
func (o *Orchestrator) CreateAppointment(ctx context.Context, h host.Host, data EventData) error {
	form, ok := h.(host.AppointmentForm)
	if !ok {
		return fmt.Errorf("%w: host cannot open appointment forms", host.ErrNoInjectionSurface)
	}
	if err := form.DisplayNewAppointmentForm(ctx, o.Appointment(data)); err != nil {
		return fmt.Errorf("opening appointment form: %w", err)
	}
	return nil
}

// InsertText places text into the host: into the open compose window when
// there is one, otherwise into a new reply form. It returns the surface
// used.
func (o *Orchestrator) InsertText(ctx context.Context, h host.Host, text string) (string, error) {
	surface, err := InsertText(ctx, h, text)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	o.metrics.RecordReplyInjection(ctx, surface, status)
	return surface, err
}

// InsertText is the surface selection used by Orchestrator.InsertText,
// without metrics.
func InsertText(ctx context.Context, h host.Host, text string) (string, error) {
	if c, ok := h.(host.ComposeSurface); ok {
		if err := c.SetSelectedText(ctx, text); err != nil {
			return host.SurfaceCompose, fmt.Errorf("inserting into compose window: %w", err)
		}
		return host.SurfaceCompose, nil
	}
	if r, ok := h.(host.ReplyForm); ok {
		if err := r.DisplayReplyForm(ctx, text); err != nil {
			return host.SurfaceReplyForm, fmt.Errorf("opening reply form: %w", err)
		}
		return host.SurfaceReplyForm, nil
	}
	return host.SurfaceNone, host.ErrNoInjectionSurface
}
