package eml

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/teemow/inboxassist/internal/host"
)

// ReplySubject prefixes subject with "Re: " unless it already is a reply.
func ReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) >= 3 && strings.EqualFold(trimmed[:3], "re:") {
		return trimmed
	}
	return "Re: " + trimmed
}

// WriteReply writes a plain-text reply to orig, threaded through
// In-Reply-To and References. from may be zero when the sending identity is
// unknown; the draft then has no From field.
func WriteReply(w io.Writer, orig *Message, from host.Identity, text string, date time.Time) error {
	var h mail.Header
	h.SetDate(date)
	h.SetSubject(ReplySubject(orig.Subject()))
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}
	if from.Address != "" {
		h.SetAddressList("From", []*mail.Address{{Name: from.DisplayName, Address: from.Address}})
	}
	if to := orig.ReplyTo(); len(to) > 0 {
		h.SetAddressList("To", toAddresses(to))
	}
	if orig.ID != "" {
		h.SetMsgIDList("In-Reply-To", []string{orig.ID})
		refs := append(append([]string{}, orig.References...), orig.ID)
		h.SetMsgIDList("References", refs)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return fmt.Errorf("writing reply header: %w", err)
	}
	if _, err := io.WriteString(body, text); err != nil {
		_ = body.Close()
		return fmt.Errorf("writing reply body: %w", err)
	}
	return body.Close()
}

// BuildReply returns the reply written by WriteReply.
func BuildReply(orig *Message, from host.Identity, text string, date time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteReply(&buf, orig, from, text, date); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toAddresses(ids []host.Identity) []*mail.Address {
	out := make([]*mail.Address, 0, len(ids))
	for _, id := range ids {
		out = append(out, &mail.Address{Name: id.DisplayName, Address: id.Address})
	}
	return out
}
