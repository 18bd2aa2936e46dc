package actions

import (
	"sync"
	"time"
)

// Phase is the lifecycle point an Event reports.
type Phase string

const (
	PhaseBefore     Phase = "before"
	PhaseTransition Phase = "transition"
	PhaseAfter      Phase = "after"
	PhaseError      Phase = "error"
)

// State is the position of an invocation in its pipeline.
type State string

const (
	StateIdle             State = "idle"
	StateContextExtracted State = "context_extracted"
	StatePromptBuilt      State = "prompt_built"
	StateResponseReceived State = "response_received"
	StateResultProcessed  State = "result_processed"
	StatePlaceholderShown State = "placeholder_shown"
	StateDelivered        State = "delivered"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Event is published to observers at each lifecycle point of an action or
// reply invocation.
type Event struct {
	InvocationID string    `json:"invocation_id"`
	Phase        Phase     `json:"phase"`
	State        State     `json:"state"`
	Kind         Kind      `json:"kind"`
	Result       *Result   `json:"result,omitempty"`
	Err          error     `json:"-"`
	Error        string    `json:"error,omitempty"`
	Time         time.Time `json:"time"`
}

// Observer receives lifecycle events. OnEvent runs synchronously on the
// invoking goroutine and must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Registry holds observers in subscription order. It is safe for concurrent
// use. The zero value is ready to use.
type Registry struct {
	mu        sync.RWMutex
	next      int
	observers []subscription
}

type subscription struct {
	id int
	o  Observer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe adds o and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (r *Registry) Subscribe(o Observer) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	r.observers = append(r.observers, subscription{id: id, o: o})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.observers {
			if s.id == id {
				r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of subscribed observers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

// Publish delivers e to every observer. Observers subscribed or removed
// during delivery take effect on the next event.
func (r *Registry) Publish(e Event) {
	if r == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if e.Err != nil && e.Error == "" {
		e.Error = e.Err.Error()
	}

	r.mu.RLock()
	subs := make([]subscription, len(r.observers))
	copy(subs, r.observers)
	r.mu.RUnlock()

	for _, s := range subs {
		s.o.OnEvent(e)
	}
}
