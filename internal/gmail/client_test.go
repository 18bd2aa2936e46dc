package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/logging"
)

const rawMessage = "From: Anna <anna@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Budget\r\n" +
	"Date: Tue, 05 Mar 2024 10:00:00 +0000\r\n" +
	"Message-ID: <budget-2@example.com>\r\n" +
	"References: <budget-1@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Passt das so?\r\n"

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

// fakeGmail serves the endpoints the adapter uses.
type fakeGmail struct {
	mu      sync.Mutex
	creates []*gmail.Draft
	updates map[string]*gmail.Draft
}

func (f *fakeGmail) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("GET /gmail/v1/users/me/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "raw", r.URL.Query().Get("format"))
		write(w, &gmail.Message{
			Id:           "m2",
			ThreadId:     "t1",
			LabelIds:     []string{"INBOX", "UNREAD"},
			InternalDate: 2000,
			Raw:          b64(rawMessage),
		})
	})
	mux.HandleFunc("GET /gmail/v1/users/me/threads/t1", func(w http.ResponseWriter, r *http.Request) {
		write(w, &gmail.Thread{Id: "t1", Messages: []*gmail.Message{
			threadEntry("m0", 500, "Carol <carol@example.com>", "Start", "text/plain", "erste Nachricht"),
			threadEntry("m1", 1000, "Bob <bob@example.com>", "Re: Start", "text/html", "<p>zweite <b>Nachricht</b></p>"),
			threadEntry("m2", 2000, "Anna <anna@example.com>", "Budget", "text/plain", "Passt das so?"),
			threadEntry("m3", 3000, "Dave <dave@example.com>", "Re: Budget", "text/plain", "später"),
		}})
	})
	mux.HandleFunc("POST /gmail/v1/users/me/drafts", func(w http.ResponseWriter, r *http.Request) {
		var d gmail.Draft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		f.mu.Lock()
		f.creates = append(f.creates, &d)
		f.mu.Unlock()
		write(w, &gmail.Draft{Id: "d1", Message: &gmail.Message{Id: "dm1", ThreadId: d.Message.ThreadId}})
	})
	mux.HandleFunc("PUT /gmail/v1/users/me/drafts/d1", func(w http.ResponseWriter, r *http.Request) {
		var d gmail.Draft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&d))
		f.mu.Lock()
		f.updates["d1"] = &d
		f.mu.Unlock()
		write(w, &gmail.Draft{Id: "d1"})
	})
	return mux
}

func threadEntry(id string, date int64, from, subject, mimeType, body string) *gmail.Message {
	return &gmail.Message{
		Id:           id,
		ThreadId:     "t1",
		InternalDate: date,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "Subject", Value: subject},
			},
			Parts: []*gmail.MessagePart{
				{MimeType: mimeType, Body: &gmail.MessagePartBody{Data: b64(body)}},
			},
		},
	}
}

func newTestClient(t *testing.T) (*Client, *fakeGmail) {
	t.Helper()
	fake := &fakeGmail{updates: map[string]*gmail.Draft{}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), srv.Client(),
		WithEndpoint(srv.URL+"/"),
		WithLogger(logging.Discard().Logger()))
	require.NoError(t, err)
	return c, fake
}

func TestItem(t *testing.T) {
	c, _ := newTestClient(t)

	msg, err := c.Item(context.Background(), "m2")
	require.NoError(t, err)

	assert.Equal(t, host.KindEmail, msg.Kind())
	assert.Equal(t, "Budget", msg.Subject())
	assert.Equal(t, "anna@example.com", msg.Sender().Address)
	assert.Equal(t, "t1", msg.ConversationID())
	assert.Equal(t, "budget-2@example.com", msg.ID)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, msg.Labels)

	body, err := msg.Body(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, body, "Passt das so?")
}

func TestItem_Errors(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Item(context.Background(), "")
	assert.Error(t, err)

	_, err = c.Item(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get message missing")
}

func TestThread_EarlierMessagesNewestFirst(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	msg, err := c.Item(ctx, "m2")
	require.NoError(t, err)

	thread, err := msg.Thread(ctx, msg.ConversationID(), 5)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	assert.Equal(t, "Re: Start", thread[0].Subject)
	assert.Equal(t, host.Identity{DisplayName: "Bob", Address: "bob@example.com"}, thread[0].From)
	assert.Equal(t, "zweite Nachricht", thread[0].Body)
	assert.True(t, thread[0].Date.Equal(time.UnixMilli(1000)))

	assert.Equal(t, "erste Nachricht", thread[1].Body)

	limited, err := msg.Thread(ctx, msg.ConversationID(), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Re: Start", limited[0].Subject)

	none, err := msg.Thread(ctx, msg.ConversationID(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHost_DraftCreatedThenUpdated(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	msg, err := c.Item(ctx, "m2")
	require.NoError(t, err)

	h := c.Host(msg, WithClock(func() time.Time { return time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC) }))
	assert.Empty(t, h.DraftID())

	require.NoError(t, h.DisplayReplyForm(ctx, "Ja, passt."))
	assert.Equal(t, "d1", h.DraftID())

	require.Len(t, fake.creates, 1)
	created := fake.creates[0]
	assert.Equal(t, "t1", created.Message.ThreadId)

	raw, err := decodeBase64(created.Message.Raw)
	require.NoError(t, err)
	reply, err := eml.ParseBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, "Re: Budget", reply.Subject())
	assert.Equal(t, []string{"budget-2@example.com"}, reply.InReplyTo)
	assert.Equal(t, []string{"budget-1@example.com", "budget-2@example.com"}, reply.References)

	require.NoError(t, h.DisplayReplyForm(ctx, "Ja, passt. Gruß"))
	assert.Len(t, fake.creates, 1, "second reply must update the draft")
	require.Contains(t, fake.updates, "d1")

	raw, err = decodeBase64(fake.updates["d1"].Message.Raw)
	require.NoError(t, err)
	updated, err := eml.ParseBytes(raw)
	require.NoError(t, err)
	body, err := updated.Body(ctx, 0)
	require.NoError(t, err)
	assert.Contains(t, body, "Ja, passt. Gruß")
}

func TestDecodeBase64(t *testing.T) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		got, err := decodeBase64(enc.EncodeToString([]byte("hällo?>")))
		require.NoError(t, err)
		assert.Equal(t, "hällo?>", string(got))
	}

	_, err := decodeBase64("!!!")
	assert.Error(t, err)
}
