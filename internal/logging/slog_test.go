package logging

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("generate"), KeyOperation, "generate"},
		{"action", Action("summarize"), KeyAction, "summarize"},
		{"model", Model("llm_model"), KeyModel, "llm_model"},
		{"endpoint", Endpoint("/v2/health/ready"), KeyEndpoint, "/v2/health/ready"},
		{"attempt", Attempt(2, 3), KeyAttempt, "2/3"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
		{"tool", Tool("assistant_reply"), KeyTool, "assistant_reply"},
		{"style", Style("formal"), KeyStyle, "formal"},
		{"surface", Surface("reply_form"), KeySurface, "reply_form"},
		{"item kind", ItemKind("email"), KeyItemKind, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	if WithOperation(logger, "list_models") == nil {
		t.Error("WithOperation returned nil")
	}
	if WithAction(logger, "analyze") == nil {
		t.Error("WithAction returned nil")
	}
	if WithTool(logger, "inference_health") == nil {
		t.Error("WithTool returned nil")
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// nil yields an empty group that slog omits
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		email    string
		wantLen  int
		hasValue bool
	}{
		{"jane@example.com", 21, true}, // "user:" + 16 hex chars
		{"a@x.com", 21, true},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := AnonymizeEmail(tt.email)
			if !tt.hasValue {
				if result != "" {
					t.Errorf("AnonymizeEmail(%q) = %q, want empty string", tt.email, result)
				}
				return
			}
			if len(result) != tt.wantLen {
				t.Errorf("AnonymizeEmail(%q) length = %d, want %d", tt.email, len(result), tt.wantLen)
			}
			if !strings.HasPrefix(result, "user:") {
				t.Errorf("AnonymizeEmail(%q) should start with 'user:', got %q", tt.email, result)
			}
		})
	}

	if AnonymizeEmail("test@example.com") != AnonymizeEmail("test@example.com") {
		t.Error("AnonymizeEmail should return deterministic results")
	}
	if AnonymizeEmail("test@example.com") == AnonymizeEmail("other@example.com") {
		t.Error("different addresses should produce different hashes")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("jane@example.com")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if len(attr.Value.String()) != 21 {
		t.Errorf("UserHash value length = %d, want 21", len(attr.Value.String()))
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token    string
		expected string
	}{
		{"", "<empty>"},
		{"abc123", "[token:6 chars]"},
		{"sk-a_very_long_api_key", "[token:22 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.expected {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	short := "Betreff: Q1 Review"
	if got := Preview(short); got != short {
		t.Errorf("Preview(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("ä", 150) // 300 bytes, two bytes per rune
	got := Preview(long)
	if !strings.HasSuffix(got, "(300 bytes)") {
		t.Errorf("Preview(long) = %q, want byte count suffix", got)
	}
	head := strings.TrimSuffix(got, "… (300 bytes)")
	if !strings.HasPrefix(long, head) {
		t.Error("Preview should keep a valid prefix of the input")
	}
	if len(head) > previewLimit {
		t.Errorf("Preview head length = %d, want <= %d", len(head), previewLimit)
	}
}

func TestStatusConstants(t *testing.T) {
	if StatusSuccess != "success" {
		t.Errorf("StatusSuccess = %q, want %q", StatusSuccess, "success")
	}
	if StatusError != "error" {
		t.Errorf("StatusError = %q, want %q", StatusError, "error")
	}
}
