package reply

import (
	"strings"

	"github.com/teemow/inboxassist/internal/inference"
)

// Style names.
const (
	StyleFormal   = "formal"
	StyleFriendly = "friendly"
	StyleShort    = "short"
	StyleDetailed = "detailed"
)

const threadHint = "Berücksichtige dabei den gesamten E-Mail-Verlauf und beziehe dich auf relevante Informationen aus früheren Nachrichten.\n"

// DefaultTemplate is the reply prompt used when neither the caller nor the
// configuration supplies one.
const DefaultTemplate = "Generiere eine professionelle und hilfreiche Antwort auf die folgende E-Mail. \n" +
	"Die Antwort sollte höflich, präzise und auf den Inhalt der E-Mail bezogen sein.\n" +
	threadHint +
	"Schreibe die Antwort direkt, ohne Einleitungen wie \"Hier ist meine Antwort:\" oder ähnliches.\n" +
	"Verwende einen professionellen, aber freundlichen Ton und achte auf eine korrekte Anrede und Grußformel.\n" +
	"\n" +
	"E-Mail-Kontext:\n" +
	PlaceholderContext

// Preset bundles a reply prompt template with generation overrides.
type Preset struct {
	Name           string               `json:"name"`
	Label          string               `json:"label"`
	PromptTemplate string               `json:"prompt_template"`
	Parameters     inference.Parameters `json:"parameters"`
}

// IsZero reports whether p is the empty preset returned for unknown names.
func (p Preset) IsZero() bool {
	return p.Name == ""
}

var presets = []Preset{
	{
		Name:  StyleFormal,
		Label: "Formell",
		PromptTemplate: "Generiere eine formelle und professionelle Antwort auf die folgende E-Mail.\n" +
			"Verwende eine geschäftliche Sprache, sei präzise und halte dich an formelle Anrede- und Grußformeln.\n" +
			threadHint + "\nE-Mail-Kontext:\n" + PlaceholderContext,
		Parameters: inference.Parameters{Temperature: inference.Float(0.5)},
	},
	{
		Name:  StyleFriendly,
		Label: "Freundlich",
		PromptTemplate: "Generiere eine freundliche und persönliche Antwort auf die folgende E-Mail.\n" +
			"Verwende eine warme, zugängliche Sprache und einen konversationellen Ton.\n" +
			threadHint + "\nE-Mail-Kontext:\n" + PlaceholderContext,
		Parameters: inference.Parameters{Temperature: inference.Float(0.7)},
	},
	{
		Name:  StyleShort,
		Label: "Kurz und prägnant",
		PromptTemplate: "Generiere eine kurze und prägnante Antwort auf die folgende E-Mail.\n" +
			"Komme direkt auf den Punkt und halte die Antwort so knapp wie möglich, ohne wichtige Informationen auszulassen.\n" +
			threadHint + "\nE-Mail-Kontext:\n" + PlaceholderContext,
		Parameters: inference.Parameters{Temperature: inference.Float(0.6), MaxTokens: inference.Int(512)},
	},
	{
		Name:  StyleDetailed,
		Label: "Detailliert",
		PromptTemplate: "Generiere eine detaillierte und ausführliche Antwort auf die folgende E-Mail.\n" +
			"Gehe auf alle Punkte ein, biete zusätzliche Informationen an und sei gründlich in deiner Antwort.\n" +
			threadHint + "\nE-Mail-Kontext:\n" + PlaceholderContext,
		Parameters: inference.Parameters{Temperature: inference.Float(0.8), MaxTokens: inference.Int(2048)},
	},
}

// German names accepted as aliases.
var aliases = map[string]string{
	"formell":     StyleFormal,
	"freundlich":  StyleFriendly,
	"kurz":        StyleShort,
	"detailliert": StyleDetailed,
}

// Style returns the preset called name, or the zero Preset when there is
// none. Lookup ignores case and accepts the German style names.
func Style(name string) Preset {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	for _, p := range presets {
		if p.Name == name {
			return clonePreset(p)
		}
	}
	return Preset{}
}

// Styles lists the preset names in a stable order.
func Styles() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// Presets returns copies of all presets in the order of Styles.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	for i, p := range presets {
		out[i] = clonePreset(p)
	}
	return out
}

// IsStyle reports whether name resolves to a preset.
func IsStyle(name string) bool {
	return !Style(name).IsZero()
}

func clonePreset(p Preset) Preset {
	p.Parameters = inference.Merge(p.Parameters, inference.Parameters{})
	return p
}
