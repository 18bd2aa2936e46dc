package eml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teemow/inboxassist/internal/host"
)

// FileHost is a host backed by a message file. The reply form writes
// <name>.reply.eml next to the file; the compose surface appends to
// <name>.draft.txt.
type FileHost struct {
	path string
	msg  *Message
	from host.Identity
	now  func() time.Time
}

var (
	_ host.ReplyForm      = (*FileHost)(nil)
	_ host.ComposeSurface = (*FileHost)(nil)
)

// FileHostOption configures a FileHost.
type FileHostOption func(*FileHost)

// WithFrom sets the identity replies are written from.
func WithFrom(from host.Identity) FileHostOption {
	return func(h *FileHost) {
		h.from = from
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) FileHostOption {
	return func(h *FileHost) {
		if now != nil {
			h.now = now
		}
	}
}

// OpenFileHost parses the message at path and returns the host with the
// message as its current item.
func OpenFileHost(path string, opts ...FileHostOption) (*FileHost, error) {
	msg, err := Open(path)
	if err != nil {
		return nil, err
	}
	h := &FileHost{path: path, msg: msg, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Item returns the current message.
func (h *FileHost) Item() *Message {
	return h.msg
}

// ReplyPath is where DisplayReplyForm writes.
func (h *FileHost) ReplyPath() string {
	return h.sibling(".reply.eml")
}

// DraftPath is where SetSelectedText appends.
func (h *FileHost) DraftPath() string {
	return h.sibling(".draft.txt")
}

func (h *FileHost) sibling(suffix string) string {
	return strings.TrimSuffix(h.path, filepath.Ext(h.path)) + suffix
}

// DisplayReplyForm writes a reply to the current message, replacing an
// earlier one.
func (h *FileHost) DisplayReplyForm(_ context.Context, text string) error {
	data, err := BuildReply(h.msg, h.from, text, h.now())
	if err != nil {
		return err
	}
	if err := os.WriteFile(h.ReplyPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing reply: %w", err)
	}
	return nil
}

// SetSelectedText appends text to the draft file.
func (h *FileHost) SetSelectedText(_ context.Context, text string) error {
	f, err := os.OpenFile(h.DraftPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening draft: %w", err)
	}
	if _, err := f.WriteString(strings.TrimRight(text, "\n") + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing draft: %w", err)
	}
	return f.Close()
}
