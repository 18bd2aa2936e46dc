package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Common log attribute keys.
const (
	KeyOperation = "operation"
	KeyAction    = "action"
	KeyModel     = "model"
	KeyEndpoint  = "endpoint"
	KeyAttempt   = "attempt"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyStyle     = "style"
	KeySurface   = "surface"
	KeyItemKind  = "item_kind"
	KeyUserHash  = "user_hash"
)

// Status values for consistent logging.
// Duplicated from instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// previewLimit bounds how much of a prompt or response is echoed in debug logs.
const previewLimit = 200

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithAction returns a logger with the action attribute set.
func WithAction(logger *slog.Logger, action string) *slog.Logger {
	return logger.With(slog.String(KeyAction, action))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Action returns a slog attribute for the action kind.
func Action(action string) slog.Attr {
	return slog.String(KeyAction, action)
}

// Model returns a slog attribute for the model name.
func Model(model string) slog.Attr {
	return slog.String(KeyModel, model)
}

// Endpoint returns a slog attribute for a request endpoint.
func Endpoint(endpoint string) slog.Attr {
	return slog.String(KeyEndpoint, endpoint)
}

// Attempt returns a slog attribute rendering "n/max".
func Attempt(n, max int) slog.Attr {
	return slog.String(KeyAttempt, fmt.Sprintf("%d/%d", n, max))
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Style returns a slog attribute for a reply style preset.
func Style(style string) slog.Attr {
	return slog.String(KeyStyle, style)
}

// Surface returns a slog attribute for an injection surface.
func Surface(surface string) slog.Attr {
	return slog.String(KeySurface, surface)
}

// ItemKind returns a slog attribute for a host item kind.
func ItemKind(kind string) slog.Attr {
	return slog.String(KeyItemKind, kind)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that slog omits from output,
// so Err(maybeNilErr) is always safe.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an address for logging.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized address.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken returns a masked version of a credential for logging.
// No part of the credential is ever included.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// Preview shortens s for debug output, cutting on a rune boundary.
func Preview(s string) string {
	if len(s) <= previewLimit {
		return s
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s… (%d bytes)", s[:cut], len(s))
}
