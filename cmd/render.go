package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/reply"
)

var actionTitles = map[actions.Kind]string{
	actions.KindAnalyze:   "Analysis",
	actions.KindSummarize: "Summary",
	actions.KindReply:     "Reply",
	actions.KindTranslate: "Translation",
	actions.KindCalendar:  "Calendar entry",
	actions.KindCustom:    "Custom prompt",
}

// printer renders results for a terminal. Colors are only emitted when w
// is a terminal that supports them.
type printer struct {
	w      io.Writer
	header lipgloss.Style
	meta   lipgloss.Style
	label  lipgloss.Style
	errMsg lipgloss.Style
	ok     lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:      w,
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		meta:   r.NewStyle().Faint(true),
		label:  r.NewStyle().Bold(true).Width(12),
		errMsg: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("10")),
	}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(title, detail string) {
	line := p.header.Render(title)
	if detail != "" {
		line += " " + p.meta.Render(detail)
	}
	p.printf("%s\n\n", line)
}

func (p *printer) field(name, value string) {
	if value == "" {
		return
	}
	p.printf("%s%s\n", p.label.Render(name), value)
}

// result renders an action result: a heading, the generated text and the
// payload of the action kind.
func (p *printer) result(r *actions.Result) {
	title := actionTitles[r.Kind]
	if title == "" {
		title = string(r.Kind)
	}
	detail := ""
	if r.Context != nil && r.Context.Subject != "" {
		detail = r.Context.Subject
	}
	p.heading(title, detail)

	if r.Translation != nil {
		p.printf("%s\n\n", p.meta.Render(r.Translation.SourceLanguage+" → "+r.Translation.TargetLanguage))
	}

	if r.Kind == actions.KindCalendar {
		switch {
		case r.Event != nil:
			p.field("Subject", r.Event.Subject)
			p.field("Start", r.Event.Start)
			p.field("End", r.Event.End)
			p.field("Location", r.Event.Location)
			p.field("Attendees", strings.Join(r.Event.Attendees, ", "))
			p.field("Description", r.Event.Description)
			p.printf("\n")
		case r.ParseError != "":
			p.printf("%s\n\n", p.errMsg.Render(r.ParseError))
		}
	}

	p.printf("%s\n", strings.TrimRight(r.Text, "\n"))
}

// outcome renders a delivered reply.
func (p *printer) outcome(o *reply.Outcome, target string) {
	p.heading("Reply", "delivered to "+o.Surface)
	p.printf("%s\n", strings.TrimRight(o.Text, "\n"))
	if target != "" {
		p.printf("\n%s %s\n", p.ok.Render("Written to"), target)
	}
}

func (p *printer) models(models []inference.ModelInfo, current string) {
	p.heading("Models", fmt.Sprintf("%d available", len(models)))
	for _, m := range models {
		name := m.Name
		if name == current {
			name = p.ok.Render(name + " *")
		}
		line := name
		if m.Platform != "" {
			line += " " + p.meta.Render(m.Platform)
		}
		if len(m.Versions) > 0 {
			line += " " + p.meta.Render("versions "+strings.Join(m.Versions, ", "))
		}
		p.printf("%s\n", line)
	}
}

func (p *printer) modelInfo(m *inference.ModelInfo) {
	p.heading(m.Name, m.Platform)
	p.field("Versions", strings.Join(m.Versions, ", "))
	for _, t := range m.Inputs {
		p.field("Input", fmt.Sprintf("%s %s %v", t.Name, t.DataType, t.Shape))
	}
	for _, t := range m.Outputs {
		p.field("Output", fmt.Sprintf("%s %s %v", t.Name, t.DataType, t.Shape))
	}
}

func (p *printer) health(url string, ready bool) {
	if ready {
		p.printf("%s %s\n", p.ok.Render("ready"), url)
		return
	}
	p.printf("%s %s\n", p.errMsg.Render("not ready"), url)
}

func (p *printer) errorLine(msg string) {
	p.printf("%s\n", p.errMsg.Render(msg))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
