package gmail

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/emersion/go-message/mail"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/host"
)

// Message is a Gmail message. Header fields and the body come from the
// parsed raw message; the conversation is the Gmail thread.
type Message struct {
	*eml.Message

	GmailID  string
	ThreadID string
	Labels   []string
	// InternalDate is the receive time in milliseconds since the epoch.
	InternalDate int64

	client *Client
}

var (
	_ host.EmailItem    = (*Message)(nil)
	_ host.ThreadSource = (*Message)(nil)
)

// ConversationID returns the Gmail thread id.
func (m *Message) ConversationID() string {
	if m.ThreadID != "" {
		return m.ThreadID
	}
	return m.Message.ConversationID()
}

// Thread returns up to depth messages of the thread received before m,
// newest first.
func (m *Message) Thread(ctx context.Context, threadID string, depth int) ([]host.ThreadMessage, error) {
	if depth <= 0 {
		return []host.ThreadMessage{}, nil
	}

	t, err := m.client.svc.Threads.Get(Me, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}

	earlier := make([]*gmail.Message, 0, len(t.Messages))
	for _, tm := range t.Messages {
		if tm.Id == m.GmailID || (m.InternalDate > 0 && tm.InternalDate > m.InternalDate) {
			continue
		}
		earlier = append(earlier, tm)
	}
	slices.SortStableFunc(earlier, func(a, b *gmail.Message) int {
		switch {
		case a.InternalDate > b.InternalDate:
			return -1
		case a.InternalDate < b.InternalDate:
			return 1
		}
		return 0
	})
	if len(earlier) > depth {
		earlier = earlier[:depth]
	}

	out := make([]host.ThreadMessage, 0, len(earlier))
	for _, tm := range earlier {
		out = append(out, threadMessage(tm))
	}
	return out, nil
}

func threadMessage(m *gmail.Message) host.ThreadMessage {
	tm := host.ThreadMessage{
		Subject: headerValue(m, "Subject"),
		Date:    time.UnixMilli(m.InternalDate).UTC(),
		Body:    partBody(m.Payload),
	}
	if from := headerValue(m, "From"); from != "" {
		if addr, err := mail.ParseAddress(from); err == nil {
			tm.From = host.Identity{DisplayName: addr.Name, Address: addr.Address}
		} else {
			tm.From = host.Identity{DisplayName: from}
		}
	}
	return tm
}

// headerValue returns the first header of the message payload named name.
func headerValue(m *gmail.Message, name string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// partBody returns the first text/plain body of the part tree, or the first
// text/html body reduced to text.
func partBody(root *gmail.MessagePart) string {
	var plain, html string
	walkParts(root, func(p *gmail.MessagePart) {
		if p.Body == nil || p.Body.Data == "" {
			return
		}
		switch {
		case p.MimeType == "text/plain" && plain == "":
			plain = p.Body.Data
		case p.MimeType == "text/html" && html == "":
			html = p.Body.Data
		}
	})

	if plain != "" {
		if data, err := decodeBase64(plain); err == nil {
			return string(data)
		}
	}
	if html != "" {
		if data, err := decodeBase64(html); err == nil {
			return eml.HTMLToText(string(data))
		}
	}
	return ""
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
