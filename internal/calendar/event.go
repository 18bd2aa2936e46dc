package calendar

import (
	"context"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/host"
)

// Event is a calendar event. It implements host.AppointmentItem.
type Event struct {
	ID       string
	Status   string
	HTMLLink string

	subject     string
	description string
	location    string
	start       time.Time
	end         time.Time
	organizer   host.Identity
	required    []host.Identity
	optional    []host.Identity
	attachments []host.Attachment
}

var _ host.AppointmentItem = (*Event)(nil)

func newEvent(event *calendar.Event) *Event {
	e := &Event{
		ID:          event.Id,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
		subject:     event.Summary,
		description: event.Description,
		location:    event.Location,
		start:       parseEventTime(event.Start),
		end:         parseEventTime(event.End),
	}

	// Creator and organizer
	switch {
	case event.Organizer != nil:
		e.organizer = host.Identity{DisplayName: event.Organizer.DisplayName, Address: event.Organizer.Email}
	case event.Creator != nil:
		e.organizer = host.Identity{DisplayName: event.Creator.DisplayName, Address: event.Creator.Email}
	}

	// Attendees; resources are rooms and equipment, not people.
	for _, att := range event.Attendees {
		if att.Resource {
			continue
		}
		id := host.Identity{DisplayName: att.DisplayName, Address: att.Email}
		if att.Optional {
			e.optional = append(e.optional, id)
		} else {
			e.required = append(e.required, id)
		}
	}

	for _, att := range event.Attachments {
		e.attachments = append(e.attachments, host.Attachment{
			ID:          att.FileId,
			Name:        att.Title,
			ContentType: att.MimeType,
		})
	}
	return e
}

// parseEventTime reads a timed or all-day event boundary.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t
		}
	}
	if dt.Date != "" {
		loc := time.UTC
		if dt.TimeZone != "" {
			if l, err := time.LoadLocation(dt.TimeZone); err == nil {
				loc = l
			}
		}
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (e *Event) Kind() host.Kind                       { return host.KindAppointment }
func (e *Event) Subject() string                       { return e.subject }
func (e *Event) Organizer() host.Identity              { return e.organizer }
func (e *Event) Location() string                      { return e.location }
func (e *Event) Start() time.Time                      { return e.start }
func (e *Event) End() time.Time                        { return e.end }
func (e *Event) RequiredAttendees() host.RecipientList { return host.Recipients(e.required) }
func (e *Event) OptionalAttendees() host.RecipientList { return host.Recipients(e.optional) }
func (e *Event) Attachments() []host.Attachment        { return e.attachments }

// Body returns the description. Descriptions edited in the web UI are HTML
// and are reduced to text.
func (e *Event) Body(context.Context, int) (string, error) {
	if strings.Contains(e.description, "<") {
		return eml.HTMLToText(e.description), nil
	}
	return e.description, nil
}
