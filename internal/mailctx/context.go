package mailctx

import (
	"time"

	"github.com/teemow/inboxassist/internal/host"
)

// Context is the normalized snapshot of one item. Sender is set for emails,
// Organizer and Location for appointments. Every list is non-nil.
type Context struct {
	Kind    host.Kind `json:"type"`
	Subject string    `json:"subject"`

	Sender         host.Identity   `json:"sender"`
	To             []host.Identity `json:"recipients"`
	Cc             []host.Identity `json:"cc"`
	Bcc            []host.Identity `json:"bcc"`
	Created        time.Time       `json:"receivedTime"`
	Importance     host.Importance `json:"importance"`
	ConversationID string          `json:"conversationId,omitempty"`

	Organizer         host.Identity   `json:"organizer"`
	Location          string          `json:"location,omitempty"`
	Start             time.Time       `json:"start"`
	End               time.Time       `json:"end"`
	RequiredAttendees []host.Identity `json:"requiredAttendees"`
	OptionalAttendees []host.Identity `json:"optionalAttendees"`

	Attachments []host.Attachment    `json:"attachments"`
	Body        string               `json:"body"`
	Thread      []host.ThreadMessage `json:"thread"`

	// ThreadErr is why Thread is empty when a thread was requested.
	ThreadErr error `json:"-"`
}

func newContext(kind host.Kind, subject string) *Context {
	return &Context{
		Kind:              kind,
		Subject:           subject,
		To:                []host.Identity{},
		Cc:                []host.Identity{},
		Bcc:               []host.Identity{},
		RequiredAttendees: []host.Identity{},
		OptionalAttendees: []host.Identity{},
		Attachments:       []host.Attachment{},
		Thread:            []host.ThreadMessage{},
	}
}

// Primary returns the sender of an email or the organizer of an appointment.
func (c *Context) Primary() host.Identity {
	if c.Kind == host.KindAppointment {
		return c.Organizer
	}
	return c.Sender
}
