// Package hosttest provides in-memory host items and surfaces for tests.
package hosttest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/teemow/inboxassist/internal/host"
)

// Email is an in-memory host.EmailItem.
type Email struct {
	SubjectText    string
	From           host.Identity
	ToList         host.RecipientList
	CcList         host.RecipientList
	BccList        host.RecipientList
	CreatedAt      time.Time
	ImportanceFlag host.Importance
	Conversation   string
	Files          []host.Attachment
	BodyText       string
	BodyErr        error

	// LastMaxBytes records the maxBytes passed to Body.
	LastMaxBytes int
}

var _ host.EmailItem = (*Email)(nil)

func (e *Email) Kind() host.Kind                { return host.KindEmail }
func (e *Email) Subject() string                { return e.SubjectText }
func (e *Email) Sender() host.Identity          { return e.From }
func (e *Email) To() host.RecipientList         { return e.ToList }
func (e *Email) Cc() host.RecipientList         { return e.CcList }
func (e *Email) Bcc() host.RecipientList        { return e.BccList }
func (e *Email) Created() time.Time             { return e.CreatedAt }
func (e *Email) Importance() host.Importance    { return e.ImportanceFlag }
func (e *Email) ConversationID() string         { return e.Conversation }
func (e *Email) Attachments() []host.Attachment { return e.Files }

func (e *Email) Body(_ context.Context, maxBytes int) (string, error) {
	e.LastMaxBytes = maxBytes
	return e.BodyText, e.BodyErr
}

// Appointment is an in-memory host.AppointmentItem.
type Appointment struct {
	SubjectText string
	OrganizedBy host.Identity
	Place       string
	StartAt     time.Time
	EndAt       time.Time
	Required    host.RecipientList
	Optional    host.RecipientList
	Files       []host.Attachment
	BodyText    string
	BodyErr     error
}

var _ host.AppointmentItem = (*Appointment)(nil)

func (a *Appointment) Kind() host.Kind                       { return host.KindAppointment }
func (a *Appointment) Subject() string                       { return a.SubjectText }
func (a *Appointment) Organizer() host.Identity              { return a.OrganizedBy }
func (a *Appointment) Location() string                      { return a.Place }
func (a *Appointment) Start() time.Time                      { return a.StartAt }
func (a *Appointment) End() time.Time                        { return a.EndAt }
func (a *Appointment) RequiredAttendees() host.RecipientList { return a.Required }
func (a *Appointment) OptionalAttendees() host.RecipientList { return a.Optional }
func (a *Appointment) Attachments() []host.Attachment        { return a.Files }

func (a *Appointment) Body(context.Context, int) (string, error) {
	return a.BodyText, a.BodyErr
}

// Other is an item of an arbitrary kind.
type Other host.Kind

func (o Other) Kind() host.Kind { return host.Kind(o) }

// FailingRecipients is a RecipientList whose resolution always fails.
type FailingRecipients struct{}

// Resolve implements host.RecipientList.
func (FailingRecipients) Resolve(context.Context) ([]host.Identity, error) {
	return nil, errors.New("recipient lookup failed")
}

// Threads is a ThreadSource returning fixed messages.
type Threads struct {
	Messages []host.ThreadMessage
	Err      error

	// Depth records the depth of the last request.
	Depth int
}

// Thread implements host.ThreadSource.
func (t *Threads) Thread(_ context.Context, _ string, depth int) ([]host.ThreadMessage, error) {
	t.Depth = depth
	return t.Messages, t.Err
}

// ReplyHost implements host.ReplyForm only.
type ReplyHost struct {
	mu      sync.Mutex
	Replies []string
	Err     error
}

// DisplayReplyForm implements host.ReplyForm.
func (h *ReplyHost) DisplayReplyForm(_ context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return h.Err
	}
	h.Replies = append(h.Replies, text)
	return nil
}

// ComposeHost implements host.ComposeSurface only.
type ComposeHost struct {
	mu       sync.Mutex
	Inserted []string
	Err      error
}

// SetSelectedText implements host.ComposeSurface.
func (h *ComposeHost) SetSelectedText(_ context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Err != nil {
		return h.Err
	}
	h.Inserted = append(h.Inserted, text)
	return nil
}

// FullHost implements every write-back surface.
type FullHost struct {
	ReplyHost
	ComposeHost

	mu           sync.Mutex
	Appointments []host.Appointment
}

// DisplayNewAppointmentForm implements host.AppointmentForm.
func (h *FullHost) DisplayNewAppointmentForm(_ context.Context, appt host.Appointment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Appointments = append(h.Appointments, appt)
	return nil
}
