package host

import (
	"context"
	"time"
)

// ThreadMessage is an earlier message of a conversation.
type ThreadMessage struct {
	From    Identity
	Date    time.Time
	Subject string
	Body    string
}

// ThreadSource loads up to depth earlier messages of a conversation.
type ThreadSource interface {
	Thread(ctx context.Context, conversationID string, depth int) ([]ThreadMessage, error)
}

// DefaultThreadDelay is how long UnavailableThreads waits before answering.
const DefaultThreadDelay = 100 * time.Millisecond

// UnavailableThreads is the ThreadSource used when the host offers no way to
// read a conversation. It waits Delay and then reports ErrNotImplemented.
type UnavailableThreads struct {
	Delay time.Duration
}

// Thread implements ThreadSource.
func (u UnavailableThreads) Thread(ctx context.Context, _ string, _ int) ([]ThreadMessage, error) {
	if u.Delay > 0 {
		timer := time.NewTimer(u.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, ErrNotImplemented
}
