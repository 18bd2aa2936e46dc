// Package logging provides structured logging utilities for inboxassist.
//
// Every component logs through log/slog. Components that accept an injected
// logger take the small Logger interface so tests can pass Discard().
//
// # Key Features
//
//   - Consistent attribute keys (operation, action, model, endpoint, attempt)
//   - Credential masking (SanitizeToken) and address hashing (AnonymizeEmail)
//   - Preview for bounded echoing of prompts and responses in debug output
//
// # Usage Patterns
//
//	logger := logging.WithAction(slog.Default(), "summarize")
//	logger.Debug("prompt built", slog.Int("bytes", len(prompt)))
//	logger.Warn("attempt failed", logging.Attempt(1, 3), logging.Err(err))
//
// # Security Considerations
//
// The inference API key and OAuth tokens are never logged; mail bodies are
// only echoed in debug mode and always through Preview.
package logging
