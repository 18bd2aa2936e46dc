package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/logging"
)

const (
	// DefaultEventBuffer is the number of events queued per client before
	// the client is dropped.
	DefaultEventBuffer = 64

	eventWriteTimeout = 5 * time.Second
)

// EventHub fans action lifecycle events out to websocket clients. It
// implements actions.Observer; OnEvent never blocks on a client.
type EventHub struct {
	logger         *slog.Logger
	buffer         int
	includeResults bool
	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader

	mu      sync.Mutex
	clients map[*eventClient]struct{}
	closed  bool
}

var _ actions.Observer = (*EventHub)(nil)

type eventClient struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	once   sync.Once
}

func (c *eventClient) close() {
	c.once.Do(func() { close(c.send) })
}

// EventHubOption configures an EventHub.
type EventHubOption func(*EventHub)

// WithEventLogger sets the hub's logger.
func WithEventLogger(logger *slog.Logger) EventHubOption {
	return func(h *EventHub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithEventBuffer sets the per-client queue length.
func WithEventBuffer(n int) EventHubOption {
	return func(h *EventHub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithResults includes the generated result in after events. Results carry
// the extracted mail context, so they are left out by default.
func WithResults(include bool) EventHubOption {
	return func(h *EventHub) {
		h.includeResults = include
	}
}

// WithAllowedOrigins restricts browser clients to the given origins.
// Requests without an Origin header are always accepted.
func WithAllowedOrigins(origins ...string) EventHubOption {
	return func(h *EventHub) {
		for _, o := range origins {
			h.allowedOrigins[o] = true
		}
	}
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub(opts ...EventHubOption) *EventHub {
	h := &EventHub{
		logger:         slog.Default(),
		buffer:         DefaultEventBuffer,
		allowedOrigins: make(map[string]bool),
		clients:        make(map[*eventClient]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *EventHub) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigins[origin]
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// OnEvent queues e for every client. A client whose queue is full is
// disconnected.
func (h *EventHub) OnEvent(e actions.Event) {
	if !h.includeResults {
		e.Result = nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Warn("failed to encode lifecycle event", logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow event client", slog.String("remote", c.remote))
			delete(h.clients, c)
			c.close()
		}
	}
}

// ServeHTTP upgrades the request to a websocket and streams events until the
// client disconnects or the hub is closed.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", logging.Err(err))
		return
	}

	c := &eventClient{conn: conn, remote: r.RemoteAddr, send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.readLoop(c)
	h.writeLoop(c)
}

// writeLoop owns all writes to the connection.
func (h *EventHub) writeLoop(c *eventClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("event write failed", logging.Err(err))
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards client messages and detects disconnects.
func (h *EventHub) readLoop(c *eventClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event client closed unexpectedly", logging.Err(err))
			}
			h.remove(c)
			return
		}
	}
}

func (h *EventHub) remove(c *eventClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Close disconnects every client and rejects new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
