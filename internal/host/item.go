package host

import (
	"context"
	"strings"
	"time"
)

// Kind tags a mail-client item.
type Kind string

const (
	KindEmail       Kind = "email"
	KindAppointment Kind = "appointment"
)

// Item is a handle on a mail-client item. Callers switch on Kind and then
// assert to EmailItem or AppointmentItem; any other kind is unsupported.
type Item interface {
	Kind() Kind
}

// Identity is a person on an item: sender, organizer, recipient or attendee.
type Identity struct {
	DisplayName string `json:"name"`
	Address     string `json:"email"`
}

// String renders the identity as "name <address>".
func (i Identity) String() string {
	return i.DisplayName + " <" + i.Address + ">"
}

// Importance is the importance flag of an email.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// ParseImportance maps host values ("low", "High", "5", ...) onto an
// Importance. Anything unrecognised, including "", is normal.
func ParseImportance(s string) Importance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "4", "5", "non-urgent":
		return ImportanceLow
	case "high", "1", "2", "urgent":
		return ImportanceHigh
	default:
		return ImportanceNormal
	}
}

// Attachment describes an attachment without its content.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Inline      bool   `json:"isInline"`
}

// RecipientList is an unresolved list of identities. Resolution may need a
// round-trip to the host.
type RecipientList interface {
	Resolve(ctx context.Context) ([]Identity, error)
}

// Recipients is an already resolved RecipientList.
type Recipients []Identity

// Resolve returns the list itself.
func (r Recipients) Resolve(context.Context) ([]Identity, error) {
	return r, nil
}

// EmailItem is a mail message. List accessors may return nil when the host
// does not expose the field.
type EmailItem interface {
	Item
	Subject() string
	Sender() Identity
	To() RecipientList
	Cc() RecipientList
	Bcc() RecipientList
	Created() time.Time
	Importance() Importance
	ConversationID() string
	Attachments() []Attachment
	// Body returns the plain-text body. maxBytes is a hint; hosts that
	// cannot truncate may return more.
	Body(ctx context.Context, maxBytes int) (string, error)
}

// AppointmentItem is a calendar entry.
type AppointmentItem interface {
	Item
	Subject() string
	Organizer() Identity
	Location() string
	Start() time.Time
	End() time.Time
	RequiredAttendees() RecipientList
	OptionalAttendees() RecipientList
	Attachments() []Attachment
	Body(ctx context.Context, maxBytes int) (string, error)
}
