package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/host"
)

// Host is a Gmail message whose reply form is a draft in the same thread.
type Host struct {
	client *Client
	msg    *Message
	from   host.Identity
	now    func() time.Time

	mu      sync.Mutex
	draftID string
}

var _ host.ReplyForm = (*Host)(nil)

// HostOption configures a Host.
type HostOption func(*Host)

// WithFrom sets the From field of drafts. Gmail fills in the account's
// address when it is empty.
func WithFrom(from host.Identity) HostOption {
	return func(h *Host) {
		h.from = from
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) HostOption {
	return func(h *Host) {
		if now != nil {
			h.now = now
		}
	}
}

// Host returns the host for msg.
func (c *Client) Host(msg *Message, opts ...HostOption) *Host {
	h := &Host{client: c, msg: msg, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// DraftID returns the draft written by the last DisplayReplyForm, or "".
func (h *Host) DraftID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.draftID
}

// DisplayReplyForm stores text as a reply draft. The first call creates the
// draft; later calls replace its content.
func (h *Host) DisplayReplyForm(ctx context.Context, text string) error {
	raw, err := eml.BuildReply(h.msg.Message, h.from, text, h.now())
	if err != nil {
		return err
	}
	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      base64.URLEncoding.EncodeToString(raw),
			ThreadId: h.msg.ThreadID,
		},
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	drafts := h.client.svc.Drafts
	var saved *gmail.Draft
	if h.draftID == "" {
		saved, err = drafts.Create(Me, draft).Context(ctx).Do()
	} else {
		saved, err = drafts.Update(Me, h.draftID, draft).Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("failed to save reply draft: %w", err)
	}
	h.draftID = saved.Id
	return nil
}
