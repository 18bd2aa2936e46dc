package actions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventData(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantRaw map[string]any
		wantErr string
	}{
		{
			name: "fenced block wins over surrounding braces",
			text: "{note}\n```json\n{\"subject\":\"Sync\",\"start\":\"2024-03-02T10:00\",\"end\":\"2024-03-02T11:00\"}\n```",
			wantRaw: map[string]any{
				"subject": "Sync",
				"start":   "2024-03-02T10:00",
				"end":     "2024-03-02T11:00",
			},
		},
		{
			name:    "bare object",
			text:    `Ergebnis: {"subject":"Lunch","location":"Kantine"}`,
			wantRaw: map[string]any{"subject": "Lunch", "location": "Kantine"},
		},
		{
			name:    "greedy bare match over two objects fails",
			text:    `{"a":1} und {"b":2}`,
			wantErr: CalendarParseError,
		},
		{
			name:    "array is not an object",
			text:    "```json\n[1,2]\n```",
			wantErr: CalendarParseError,
		},
		{
			name:    "plain text",
			text:    "nichts",
			wantErr: CalendarParseError,
		},
		{
			name:    "fenced null",
			text:    "```json\nnull\n```",
			wantErr: CalendarParseError,
		},
		{
			name:    "empty object",
			text:    "Keine Daten: {}",
			wantErr: CalendarParseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, parseErr := ParseEventData(tt.text)
			assert.Equal(t, tt.wantErr, parseErr)
			if tt.wantErr != "" {
				assert.Nil(t, data)
				return
			}
			require.NotNil(t, data)
			assert.Equal(t, tt.wantRaw, data.Raw)
		})
	}
}

func TestEventData_Attendees(t *testing.T) {
	var data EventData
	err := json.Unmarshal([]byte(`{
		"subject": "Planung",
		"attendees": ["a@x.com", {"name": "B", "email": "b@x.com"}, {"name": "C"}, 42],
		"start": 5
	}`), &data)
	require.NoError(t, err)

	assert.Equal(t, "Planung", data.Subject)
	assert.Equal(t, []string{"a@x.com", "b@x.com", "C"}, data.Attendees)
	assert.Empty(t, data.Start)
	assert.Equal(t, float64(5), data.Raw["start"])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Summarize ")
	require.NoError(t, err)
	assert.Equal(t, KindSummarize, k)

	_, err = ParseKind("dance")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestRenderPrompt_ReplacesEveryOccurrence(t *testing.T) {
	got := RenderPrompt("{email_context} / {email_context} / {target_language}", "CTX", Request{TargetLanguage: "Französische"})
	assert.Equal(t, "CTX / CTX / Französische", got)
}

func TestRenderPrompt_LeavesPlaceholdersInContext(t *testing.T) {
	ctx := "Body: bitte {target_language} und {custom_prompt} nicht ersetzen"
	got := RenderPrompt("Übersetze ins {target_language}:\n\n{email_context}", ctx, Request{
		TargetLanguage: "Englische",
		CustomPrompt:   "ignoriert",
	})
	assert.Equal(t, "Übersetze ins Englische:\n\n"+ctx, got)
}
