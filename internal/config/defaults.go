package config

import (
	"github.com/spf13/viper"
)

// DefaultPromptTemplates are the built-in per-action prompts.
var DefaultPromptTemplates = map[string]string{
	"analyze":   "Analysiere diese E-Mail und gib mir die wichtigsten Punkte und erforderlichen Aktionen:\n\n{email_context}",
	"summarize": "Fasse diese E-Mail kurz und prägnant zusammen:\n\n{email_context}",
	"reply":     "Generiere eine professionelle Antwort auf diese E-Mail:\n\n{email_context}",
	"translate": "Übersetze diese E-Mail ins {target_language}:\n\n{email_context}",
	"calendar":  "Extrahiere Informationen für einen Kalendereintrag aus dieser E-Mail (Datum, Uhrzeit, Teilnehmer, Ort, Thema) und formatiere sie als JSON:\n\n{email_context}",
	"custom":    "{custom_prompt}\n\n{email_context}",
}

// SetDefaults registers a default for every key so that environment
// overrides apply to all of them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8000")
	v.SetDefault("server.api_version", "v2")
	v.SetDefault("server.timeout_ms", 30000)
	v.SetDefault("server.max_retries", 3)
	v.SetDefault("server.retry_delay_ms", 1000)
	v.SetDefault("server.debug", false)

	v.SetDefault("model.name", "llm_model")
	v.SetDefault("model.default_parameters.max_tokens", 1024)
	v.SetDefault("model.default_parameters.temperature", 0.7)
	v.SetDefault("model.default_parameters.top_p", 0.9)
	v.SetDefault("model.default_parameters.stop_sequences", []string{"\n###", "###", "</answer>"})
	v.SetDefault("model.default_parameters.return_full_text", false)

	v.SetDefault("security.api_key", "")
	v.SetDefault("security.api_key_keyring_ref", "")

	v.SetDefault("context.include_attachments", true)
	v.SetDefault("context.max_body_length", 10000)
	v.SetDefault("context.include_recipients", true)
	v.SetDefault("context.include_cc", true)
	v.SetDefault("context.include_bcc", false)
	v.SetDefault("context.include_thread", false)
	v.SetDefault("context.max_thread_depth", 3)

	for action, template := range DefaultPromptTemplates {
		v.SetDefault("prompt_templates."+action, template)
	}

	v.SetDefault("reply.include_thread", true)
	v.SetDefault("reply.open_delay_ms", 500)
	v.SetDefault("reply.default_style", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.account", "default")
	v.SetDefault("google.calendar_id", "primary")

	v.SetDefault("imap.addr", "")
	v.SetDefault("imap.user", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.insecure", false)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.drafts_mailbox", "Drafts")

	v.SetDefault("identity.name", "")
	v.SetDefault("identity.email", "")

	v.SetDefault("mail.dir", "")
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic("config: invalid defaults: " + err.Error())
	}
	return &cfg
}
