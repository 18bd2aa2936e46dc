package actions

import (
	"encoding/json"
	"regexp"

	"github.com/teemow/inboxassist/internal/mailctx"
)

// CalendarParseError is set on a calendar Result whose response held no
// valid JSON object.
const CalendarParseError = "Konnte keine gültigen Kalenderdaten extrahieren"

// SourceLanguage is the language translations are assumed to start from.
const SourceLanguage = "Deutsch"

// Result is the outcome of one action invocation.
type Result struct {
	InvocationID string           `json:"invocation_id"`
	Kind         Kind             `json:"action"`
	Text         string           `json:"text"`
	Context      *mailctx.Context `json:"context"`
	Prompt       string           `json:"-"`

	// Event is set for calendar actions whose response contained JSON.
	Event *EventData `json:"event_data,omitempty"`
	// ParseError is set for calendar actions whose response did not.
	ParseError string `json:"error,omitempty"`

	Translation *Translation `json:"translation,omitempty"`
}

// Translation labels the languages of a translate result.
type Translation struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// EventData is calendar data extracted from a model response. Raw holds the
// parsed object exactly as returned; the typed fields are read from it
// where they have the expected shape.
type EventData struct {
	Subject     string   `json:"subject,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	Location    string   `json:"location,omitempty"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`

	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes any JSON object. Attendees may be given as plain
// strings or as objects carrying an "email" or "name".
func (d *EventData) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = EventData{Raw: raw}
	d.Subject = stringField(raw, "subject")
	d.Start = stringField(raw, "start")
	d.End = stringField(raw, "end")
	d.Location = stringField(raw, "location")
	d.Description = stringField(raw, "description")

	if list, ok := raw["attendees"].([]any); ok {
		for _, a := range list {
			switch v := a.(type) {
			case string:
				d.Attendees = append(d.Attendees, v)
			case map[string]any:
				if s := stringField(v, "email"); s != "" {
					d.Attendees = append(d.Attendees, s)
				} else if s := stringField(v, "name"); s != "" {
					d.Attendees = append(d.Attendees, s)
				}
			}
		}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

var (
	fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	bareObject = regexp.MustCompile(`\{[\s\S]*\}`)
)

// ParseEventData extracts calendar data from model output. A fenced json
// block wins over a bare object; the bare match spans from the first "{" to
// the last "}". The second return value is CalendarParseError when nothing
// parseable was found, including a null or empty object.
func ParseEventData(text string) (*EventData, string) {
	var candidate string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else if m := bareObject.FindString(text); m != "" {
		candidate = m
	} else {
		return nil, CalendarParseError
	}

	var data *EventData
	if err := json.Unmarshal([]byte(candidate), &data); err != nil || data == nil || len(data.Raw) == 0 {
		return nil, CalendarParseError
	}
	return data, ""
}
