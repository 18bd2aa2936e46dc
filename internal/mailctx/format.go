package mailctx

import (
	"strings"
	"time"

	"github.com/teemow/inboxassist/internal/host"
)

// DateLayout is the fixed rendering of instants in formatted contexts.
const DateLayout = "02.01.2006, 15:04:05"

// Format renders the context with the extractor's thread depth.
func (e *Extractor) Format(c *Context) string {
	return Format(c, e.opts.MaxThreadDepth)
}

// Format renders c as the text block sent to the model. The output depends
// only on its arguments; empty and nil lists render the same.
func Format(c *Context, maxThreadDepth int) string {
	if c == nil {
		return ""
	}

	var b strings.Builder
	switch c.Kind {
	case host.KindEmail:
		formatEmail(&b, c, maxThreadDepth)
	case host.KindAppointment:
		formatAppointment(&b, c)
	}
	return b.String()
}

func formatEmail(b *strings.Builder, c *Context, maxThreadDepth int) {
	line(b, "Betreff: ", c.Subject)
	line(b, "Von: ", c.Sender.String())
	if len(c.To) > 0 {
		line(b, "An: ", joinIdentities(c.To))
	}
	if len(c.Cc) > 0 {
		line(b, "CC: ", joinIdentities(c.Cc))
	}
	line(b, "Datum: ", formatDate(c.Created))
	line(b, "Wichtigkeit: ", importanceLabel(c.Importance))
	if len(c.Attachments) > 0 {
		line(b, "Anhänge: ", joinAttachments(c.Attachments))
	}

	b.WriteString("\n")
	b.WriteString(c.Body)

	if len(c.Thread) == 0 {
		return
	}
	b.WriteString("\n\n--- Vorherige Nachrichten ---\n\n")
	for i, msg := range c.Thread {
		if i >= maxThreadDepth {
			break
		}
		line(b, "Von: ", msg.From.String())
		line(b, "Datum: ", formatDate(msg.Date))
		line(b, "Betreff: ", msg.Subject)
		b.WriteString("\n")
		b.WriteString(msg.Body)
		b.WriteString("\n\n---\n\n")
	}
}

func formatAppointment(b *strings.Builder, c *Context) {
	line(b, "Betreff: ", c.Subject)
	line(b, "Organisator: ", c.Organizer.String())
	line(b, "Ort: ", c.Location)
	line(b, "Start: ", formatDate(c.Start))
	line(b, "Ende: ", formatDate(c.End))
	if len(c.RequiredAttendees) > 0 {
		line(b, "Pflicht-Teilnehmer: ", joinIdentities(c.RequiredAttendees))
	}
	if len(c.OptionalAttendees) > 0 {
		line(b, "Optionale Teilnehmer: ", joinIdentities(c.OptionalAttendees))
	}
	if len(c.Attachments) > 0 {
		line(b, "Anhänge: ", joinAttachments(c.Attachments))
	}

	b.WriteString("\n")
	b.WriteString(c.Body)
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(value)
	b.WriteString("\n")
}

func joinIdentities(ids []host.Identity) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

func joinAttachments(atts []host.Attachment) string {
	names := make([]string, len(atts))
	for i, a := range atts {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

func importanceLabel(i host.Importance) string {
	switch i {
	case host.ImportanceLow:
		return "niedrig"
	case host.ImportanceHigh:
		return "hoch"
	default:
		return "normal"
	}
}
