package mailctx

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/host/hosttest"
	"github.com/teemow/inboxassist/internal/logging"
)

var (
	alice = host.Identity{DisplayName: "A", Address: "a@x.com"}
	bob   = host.Identity{DisplayName: "B", Address: "b@x.com"}
	carol = host.Identity{DisplayName: "C", Address: "c@x.com"}
)

func newTestExtractor(opts Options, eopts ...ExtractorOption) *Extractor {
	eopts = append([]ExtractorOption{WithLogger(logging.Discard().Logger())}, eopts...)
	return NewExtractor(opts, eopts...)
}

func sampleEmail() *hosttest.Email {
	return &hosttest.Email{
		SubjectText:    "Q1 Review",
		From:           alice,
		ToList:         host.Recipients{bob},
		CcList:         host.Recipients{carol},
		BccList:        host.Recipients{bob},
		CreatedAt:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		ImportanceFlag: host.ImportanceHigh,
		Conversation:   "conv-1",
		Files:          []host.Attachment{{ID: "1", Name: "report.pdf", ContentType: "application/pdf", Size: 1200}},
		BodyText:       "Let's meet.",
	}
}

func TestExtract_Email(t *testing.T) {
	item := sampleEmail()
	c, err := newTestExtractor(DefaultOptions()).Extract(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, host.KindEmail, c.Kind)
	assert.Equal(t, "Q1 Review", c.Subject)
	assert.Equal(t, alice, c.Sender)
	assert.Equal(t, []host.Identity{bob}, c.To)
	assert.Equal(t, []host.Identity{carol}, c.Cc)
	assert.Empty(t, c.Bcc, "bcc is off by default")
	assert.NotNil(t, c.Bcc)
	assert.Equal(t, host.ImportanceHigh, c.Importance)
	assert.Equal(t, "Let's meet.", c.Body)
	assert.Len(t, c.Attachments, 1)
	assert.Empty(t, c.Thread, "thread is off by default")
	assert.NoError(t, c.ThreadErr)
	assert.Equal(t, 10000, item.LastMaxBytes)

	assert.Empty(t, c.Organizer)
	assert.Empty(t, c.Location)
}

func TestExtract_EmailToggles(t *testing.T) {
	opts := Options{
		IncludeAttachments: false,
		MaxBodyLength:      5,
		IncludeRecipients:  false,
		IncludeCc:          false,
		IncludeBcc:         true,
	}
	item := sampleEmail()
	item.ImportanceFlag = ""

	c, err := newTestExtractor(opts).Extract(context.Background(), item)
	require.NoError(t, err)

	assert.Empty(t, c.To)
	assert.Empty(t, c.Cc)
	assert.Equal(t, []host.Identity{bob}, c.Bcc)
	assert.Empty(t, c.Attachments)
	assert.NotNil(t, c.Attachments)
	assert.Equal(t, "Let's", c.Body)
	assert.Equal(t, host.ImportanceNormal, c.Importance)
}

func TestExtract_FailuresDegrade(t *testing.T) {
	item := sampleEmail()
	item.ToList = hosttest.FailingRecipients{}
	item.CcList = nil
	item.BodyErr = errors.New("host busy")

	c, err := newTestExtractor(DefaultOptions()).Extract(context.Background(), item)
	require.NoError(t, err)

	assert.NotNil(t, c.To)
	assert.Empty(t, c.To)
	assert.NotNil(t, c.Cc)
	assert.Empty(t, c.Cc)
	assert.Equal(t, EmailBodyUnavailable, c.Body)
}

func TestExtract_Appointment(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	item := &hosttest.Appointment{
		SubjectText: "Sync",
		OrganizedBy: alice,
		Place:       "Raum 1",
		StartAt:     start,
		EndAt:       start.Add(30 * time.Minute),
		Required:    host.Recipients{bob},
		Optional:    hosttest.FailingRecipients{},
		BodyErr:     errors.New("nope"),
	}

	c, err := newTestExtractor(DefaultOptions()).Extract(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, host.KindAppointment, c.Kind)
	assert.Equal(t, alice, c.Organizer)
	assert.Equal(t, alice, c.Primary())
	assert.Empty(t, c.Sender)
	assert.Equal(t, "Raum 1", c.Location)
	assert.Equal(t, []host.Identity{bob}, c.RequiredAttendees)
	assert.Empty(t, c.OptionalAttendees)
	assert.Equal(t, AppointmentBodyUnavailable, c.Body)
}

func TestExtract_UnsupportedKind(t *testing.T) {
	_, err := newTestExtractor(DefaultOptions()).Extract(context.Background(), hosttest.Other("task"))
	require.ErrorIs(t, err, host.ErrUnsupportedItemKind)

	var kindErr *host.UnsupportedKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, host.Kind("task"), kindErr.Kind)

	_, err = newTestExtractor(DefaultOptions()).Extract(context.Background(), nil)
	assert.ErrorIs(t, err, host.ErrUnsupportedItemKind)
}

func TestExtract_ThreadNotImplemented(t *testing.T) {
	e := newTestExtractor(DefaultOptions(), WithThreadSource(host.UnavailableThreads{}))

	c, err := e.Extract(context.Background(), sampleEmail(), WithThread(true))
	require.NoError(t, err)

	assert.Empty(t, c.Thread)
	assert.NotNil(t, c.Thread)
	assert.ErrorIs(t, c.ThreadErr, host.ErrNotImplemented)
	assert.False(t, e.Options().IncludeThread, "per-call override must not leak into the extractor")
}

func TestExtract_ThreadFromSource(t *testing.T) {
	src := &hosttest.Threads{Messages: []host.ThreadMessage{
		{From: bob, Subject: "1"}, {From: bob, Subject: "2"}, {From: bob, Subject: "3"}, {From: bob, Subject: "4"},
	}}
	opts := DefaultOptions()
	opts.IncludeThread = true
	opts.MaxThreadDepth = 2

	c, err := newTestExtractor(opts, WithThreadSource(src)).Extract(context.Background(), sampleEmail())
	require.NoError(t, err)

	assert.Equal(t, 2, src.Depth)
	require.Len(t, c.Thread, 2)
	assert.Equal(t, "1", c.Thread[0].Subject)
}

// threadedEmail reads its conversation itself.
type threadedEmail struct {
	*hosttest.Email
	*hosttest.Threads
}

func TestExtract_ItemThreadSourceWins(t *testing.T) {
	configured := &hosttest.Threads{Messages: []host.ThreadMessage{{Subject: "configured"}}}
	item := threadedEmail{
		Email:   sampleEmail(),
		Threads: &hosttest.Threads{Messages: []host.ThreadMessage{{Subject: "own"}}},
	}

	c, err := newTestExtractor(DefaultOptions(), WithThreadSource(configured)).
		Extract(context.Background(), item, WithThread(true))
	require.NoError(t, err)

	require.Len(t, c.Thread, 1)
	assert.Equal(t, "own", c.Thread[0].Subject)
	assert.Zero(t, configured.Depth, "configured source must not be asked")
}

func TestExtract_ThreadNeedsConversationID(t *testing.T) {
	src := &hosttest.Threads{Messages: []host.ThreadMessage{{Subject: "x"}}}
	item := sampleEmail()
	item.Conversation = ""

	c, err := newTestExtractor(DefaultOptions(), WithThreadSource(src)).
		Extract(context.Background(), item, WithThread(true))
	require.NoError(t, err)
	assert.Empty(t, c.Thread)
	assert.NoError(t, c.ThreadErr)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 3, "hel"},
		{"äöü", 3, "ä"},
		{"äöü", 4, "äö"},
		{"", 0, ""},
	}

	for _, tt := range tests {
		got := truncate(tt.in, tt.max)
		assert.Equal(t, tt.want, got, "truncate(%q, %d)", tt.in, tt.max)
		assert.True(t, strings.HasPrefix(tt.in, got))
	}
}
