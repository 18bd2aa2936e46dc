package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/logging"
)

func dialHub(t *testing.T, hub *EventHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestEventHub_StreamsEvents(t *testing.T) {
	hub := NewEventHub(WithEventLogger(logging.Discard().Logger()))
	conn := dialHub(t, hub)

	reg := actions.NewRegistry()
	reg.Subscribe(hub)
	reg.Publish(actions.Event{
		InvocationID: "inv-1",
		Phase:        actions.PhaseAfter,
		State:        actions.StateDone,
		Kind:         actions.KindSummarize,
		Result:       &actions.Result{Text: "geheim"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "inv-1", got["invocation_id"])
	assert.Equal(t, "after", got["phase"])
	assert.Equal(t, "done", got["state"])
	assert.NotContains(t, got, "result")
}

func TestEventHub_WithResults(t *testing.T) {
	hub := NewEventHub(WithEventLogger(logging.Discard().Logger()), WithResults(true))
	conn := dialHub(t, hub)

	hub.OnEvent(actions.Event{InvocationID: "inv-2", Result: &actions.Result{Text: "Antwort"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text":"Antwort"`)
}

func TestEventHub_DropsSlowClient(t *testing.T) {
	hub := NewEventHub(WithEventLogger(logging.Discard().Logger()), WithEventBuffer(1))
	slow := &eventClient{remote: "test", send: make(chan []byte, 1)}
	hub.clients[slow] = struct{}{}

	hub.OnEvent(actions.Event{InvocationID: "a"})
	assert.Equal(t, 1, hub.Clients())

	hub.OnEvent(actions.Event{InvocationID: "b"})
	assert.Equal(t, 0, hub.Clients())

	// The queued event is still delivered before the channel reports closed.
	_, ok := <-slow.send
	assert.True(t, ok)
	_, ok = <-slow.send
	assert.False(t, ok)
}

func TestEventHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewEventHub(WithEventLogger(logging.Discard().Logger()))
	conn := dialHub(t, hub)

	hub.Close()
	assert.Equal(t, 0, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestEventHub_CheckOrigin(t *testing.T) {
	hub := NewEventHub(WithAllowedOrigins("https://mail.example.com"))

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "https://mail.example.com", want: true},
		{origin: "https://evil.example.com", want: false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/events", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, hub.checkOrigin(r), tt.origin)
	}
}
