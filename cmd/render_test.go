package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/mailctx"
	"github.com/teemow/inboxassist/internal/reply"
)

func TestPrinterResult(t *testing.T) {
	tests := []struct {
		name     string
		result   *actions.Result
		contains []string
		excludes []string
	}{
		{
			name: "summary",
			result: &actions.Result{
				Kind:    actions.KindSummarize,
				Text:    "Anna fragt nach einem Termin.\n",
				Context: &mailctx.Context{Subject: "Termin"},
			},
			contains: []string{"Summary", "Termin", "Anna fragt nach einem Termin."},
		},
		{
			name: "translation",
			result: &actions.Result{
				Kind:        actions.KindTranslate,
				Text:        "Does Tuesday 10am work?",
				Translation: &actions.Translation{SourceLanguage: "auto", TargetLanguage: "Englisch"},
			},
			contains: []string{"Translation", "auto → Englisch", "Does Tuesday 10am work?"},
		},
		{
			name: "calendar with event",
			result: &actions.Result{
				Kind: actions.KindCalendar,
				Text: `{"subject":"Termin"}`,
				Event: &actions.EventData{
					Subject:   "Termin",
					Start:     "2026-10-20T10:00:00",
					Attendees: []string{"anna@example.com", "bob@example.com"},
				},
			},
			contains: []string{"Calendar entry", "2026-10-20T10:00:00", "anna@example.com, bob@example.com"},
			excludes: []string{"Location"},
		},
		{
			name: "calendar without json",
			result: &actions.Result{
				Kind:       actions.KindCalendar,
				Text:       "Kein Termin gefunden.",
				ParseError: actions.CalendarParseError,
			},
			contains: []string{actions.CalendarParseError, "Kein Termin gefunden."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newPrinter(&buf).result(tt.result)
			out := buf.String()
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestPrinterOutcome(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).outcome(&reply.Outcome{Text: "Hallo Anna", Surface: "reply_form"}, "/tmp/termin.reply.eml")

	out := buf.String()
	assert.Contains(t, out, "delivered to reply_form")
	assert.Contains(t, out, "Hallo Anna")
	assert.Contains(t, out, "Written to /tmp/termin.reply.eml")
}

func TestPrinterModels(t *testing.T) {
	var buf bytes.Buffer
	newPrinter(&buf).models([]inference.ModelInfo{
		{Name: "llm_model", Platform: "pytorch", Versions: []string{"1"}},
		{Name: "other"},
	}, "llm_model")

	out := buf.String()
	assert.Contains(t, out, "2 available")
	assert.Contains(t, out, "llm_model *")
	assert.Contains(t, out, "versions 1")
	assert.NotContains(t, out, "other *")
}

func TestPrinterHealth(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)
	p.health("http://localhost:8000", true)
	p.health("http://localhost:8000", false)

	assert.Equal(t, "ready http://localhost:8000\nnot ready http://localhost:8000\n", buf.String())
}
