package actions

import "strings"

// Prompt placeholders. Placeholders without a value are left in place.
const (
	PlaceholderContext        = "{email_context}"
	PlaceholderTargetLanguage = "{target_language}"
	PlaceholderCustomPrompt   = "{custom_prompt}"
)

// FallbackTemplate is used when neither a configured nor a custom template
// exists for an action.
const FallbackTemplate = "Analysiere den folgenden Inhalt:\n\n" + PlaceholderContext

// Template picks the template for req: the configured template for its kind,
// else the caller's custom prompt, else FallbackTemplate.
func (o *Orchestrator) Template(req Request) string {
	if t := o.cfg.Templates[req.Kind]; t != "" {
		return t
	}
	if req.CustomPrompt != "" {
		return req.CustomPrompt
	}
	return FallbackTemplate
}

// RenderPrompt substitutes the context and, when given, the target language
// and custom prompt into template. Substitution is a single pass over
// template, so placeholder text inside the substituted values is kept as is.
func RenderPrompt(template, formattedContext string, req Request) string {
	pairs := []string{PlaceholderContext, formattedContext}
	if req.TargetLanguage != "" {
		pairs = append(pairs, PlaceholderTargetLanguage, req.TargetLanguage)
	}
	if req.CustomPrompt != "" {
		pairs = append(pairs, PlaceholderCustomPrompt, req.CustomPrompt)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
