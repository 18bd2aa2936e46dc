package host

import (
	"context"
	"time"
)

// Host is the mail client. Its capabilities are discovered by asserting it to
// ReplyForm, ComposeSurface and AppointmentForm; a host may implement any
// subset of them.
type Host interface{}

// ReplyForm opens a reply to the current item pre-filled with text.
type ReplyForm interface {
	DisplayReplyForm(ctx context.Context, text string) error
}

// ComposeSurface replaces the selection of an open compose window with
// plain text.
type ComposeSurface interface {
	SetSelectedText(ctx context.Context, text string) error
}

// AppointmentForm opens a new-appointment window pre-filled with fields.
type AppointmentForm interface {
	DisplayNewAppointmentForm(ctx context.Context, appt Appointment) error
}

// Appointment holds the fields for a new calendar entry.
type Appointment struct {
	Subject           string
	Start             time.Time
	End               time.Time
	Location          string
	Body              string
	RequiredAttendees []string
}

// Surface names used in logs, metrics and results.
const (
	SurfaceReplyForm = "reply_form"
	SurfaceCompose   = "compose"
	SurfaceNone      = "none"
)
