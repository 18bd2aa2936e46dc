package eml

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/teemow/inboxassist/internal/host"
)

// Message is a parsed RFC 5322 message. It implements host.EmailItem.
type Message struct {
	ID         string
	InReplyTo  []string
	References []string

	subject    string
	from       host.Identity
	replyTo    []host.Identity
	to         []host.Identity
	cc         []host.Identity
	bcc        []host.Identity
	date       time.Time
	importance host.Importance

	text        string
	html        string
	attachments []host.Attachment
}

var _ host.EmailItem = (*Message)(nil)

// Open parses the message file at path.
func Open(path string) (*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return msg, nil
}

// Parse reads a message from r. Undecodable header fields are left empty
// rather than failing the whole message.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, err
	}
	defer mr.Close()

	h := mr.Header
	msg := &Message{
		importance: importance(h),
	}
	msg.subject, _ = h.Subject()
	msg.date, _ = h.Date()
	msg.ID, _ = h.MessageID()
	msg.InReplyTo, _ = h.MsgIDList("In-Reply-To")
	msg.References, _ = h.MsgIDList("References")

	if from := addressList(h, "From"); len(from) > 0 {
		msg.from = from[0]
	}
	msg.replyTo = addressList(h, "Reply-To")
	msg.to = addressList(h, "To")
	msg.cc = addressList(h, "Cc")
	msg.bcc = addressList(h, "Bcc")

	for i := 0; ; i++ {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading part %d: %w", i, err)
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("reading part %d: %w", i, err)
			}
			// The first text part of each type wins; later ones are
			// usually quoted copies or signatures.
			switch {
			case strings.HasPrefix(contentType, "text/plain") && msg.text == "":
				msg.text = string(body)
			case strings.HasPrefix(contentType, "text/html") && msg.html == "":
				msg.html = string(body)
			case !strings.HasPrefix(contentType, "text/"):
				msg.attachments = append(msg.attachments, host.Attachment{
					ID:          fmt.Sprintf("part-%d", i),
					Name:        strings.Trim(ph.Get("Content-Id"), "<>"),
					ContentType: contentType,
					Size:        int64(len(body)),
					Inline:      true,
				})
			}

		case *mail.AttachmentHeader:
			filename, _ := ph.Filename()
			contentType, _, _ := ph.ContentType()
			n, err := io.Copy(io.Discard, part.Body)
			if err != nil {
				return nil, fmt.Errorf("reading attachment %q: %w", filename, err)
			}
			msg.attachments = append(msg.attachments, host.Attachment{
				ID:          fmt.Sprintf("part-%d", i),
				Name:        filename,
				ContentType: contentType,
				Size:        n,
			})
		}
	}

	return msg, nil
}

// ParseBytes is Parse over an in-memory message.
func ParseBytes(raw []byte) (*Message, error) {
	return Parse(bytes.NewReader(raw))
}

func addressList(h mail.Header, key string) []host.Identity {
	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return nil
	}
	out := make([]host.Identity, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, host.Identity{DisplayName: a.Name, Address: a.Address})
	}
	return out
}

// importance reads Importance, then X-Priority ("1 (Highest)"), then
// Priority.
func importance(h mail.Header) host.Importance {
	if v := h.Get("Importance"); v != "" {
		return host.ParseImportance(v)
	}
	if v := h.Get("X-Priority"); v != "" {
		if fields := strings.Fields(v); len(fields) > 0 {
			return host.ParseImportance(fields[0])
		}
	}
	return host.ParseImportance(h.Get("Priority"))
}

func (m *Message) Kind() host.Kind                { return host.KindEmail }
func (m *Message) Subject() string                { return m.subject }
func (m *Message) Sender() host.Identity          { return m.from }
func (m *Message) To() host.RecipientList         { return host.Recipients(m.to) }
func (m *Message) Cc() host.RecipientList         { return host.Recipients(m.cc) }
func (m *Message) Bcc() host.RecipientList        { return host.Recipients(m.bcc) }
func (m *Message) Created() time.Time             { return m.date }
func (m *Message) Importance() host.Importance    { return m.importance }
func (m *Message) Attachments() []host.Attachment { return m.attachments }

// ConversationID is the root of the References chain, falling back to the
// parent and then to the message itself.
func (m *Message) ConversationID() string {
	switch {
	case len(m.References) > 0:
		return m.References[0]
	case len(m.InReplyTo) > 0:
		return m.InReplyTo[0]
	default:
		return m.ID
	}
}

// ReplyTo returns the addresses a reply goes to: Reply-To when present,
// otherwise the sender.
func (m *Message) ReplyTo() []host.Identity {
	if len(m.replyTo) > 0 {
		return m.replyTo
	}
	if m.from.Address == "" {
		return nil
	}
	return []host.Identity{m.from}
}

// Body returns the text/plain part, or the HTML part reduced to text. The
// whole body is returned; truncation is up to the caller.
func (m *Message) Body(context.Context, int) (string, error) {
	if strings.TrimSpace(m.text) != "" {
		return m.text, nil
	}
	if m.html != "" {
		return HTMLToText(m.html), nil
	}
	return m.text, nil
}
