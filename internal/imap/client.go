package imap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/logging"
)

// Defaults for zero-valued Config fields.
const (
	DefaultMailbox = "INBOX"
	DefaultDrafts  = "Drafts"
)

// ErrMessageNotFound is returned when no message has the requested UID.
var ErrMessageNotFound = errors.New("message not found")

// Config describes the IMAP account.
type Config struct {
	// Addr is host:port of the server.
	Addr     string
	User     string
	Password string
	// TLS dials implicit TLS (usually port 993). Without it the connection
	// is upgraded with STARTTLS unless Insecure is set.
	TLS bool
	// Insecure allows an unencrypted connection, for local bridges only.
	Insecure bool
	// Mailbox is where messages are fetched from.
	Mailbox string
	// DraftsMailbox receives reply drafts.
	DraftsMailbox string
}

// Client talks to one IMAP account.
type Client struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultMailbox
	}
	if cfg.DraftsMailbox == "" {
		cfg.DraftsMailbox = DefaultDrafts
	}
	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithOperation(c.logger, "imap")
	return c
}

// connect dials and logs in. The connection is closed when ctx is done;
// the returned release logs out and stops watching ctx.
func (c *Client) connect(ctx context.Context) (*imapclient.Client, func(), error) {
	var (
		client *imapclient.Client
		err    error
	)
	switch {
	case c.cfg.TLS:
		client, err = imapclient.DialTLS(c.cfg.Addr, nil)
	case c.cfg.Insecure:
		client, err = imapclient.DialInsecure(c.cfg.Addr, nil)
	default:
		client, err = imapclient.DialStartTLS(c.cfg.Addr, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", c.cfg.Addr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	release := func() {
		stop()
		if err := client.Logout().Wait(); err != nil {
			c.logger.Debug("logout failed", logging.Err(err))
		}
		_ = client.Close()
	}

	if err := client.Login(c.cfg.User, c.cfg.Password).Wait(); err != nil {
		release()
		return nil, nil, fmt.Errorf("authentication failed for %s: %w", c.cfg.User, err)
	}
	return client, release, nil
}

// FetchRaw returns the full RFC 5322 source of the message with uid in the
// configured mailbox. The message is not marked as seen.
func (c *Client) FetchRaw(ctx context.Context, uid uint32) ([]byte, error) {
	client, release, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := client.Select(c.cfg.Mailbox, &goimap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, ctxErr(ctx, err))
	}

	section := &goimap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(goimap.UIDSetNum(goimap.UID(uid)), &goimap.FetchOptions{
		UID:         true,
		BodySection: []*goimap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		if err := fetchCmd.Close(); err != nil {
			return nil, fmt.Errorf("fetching UID %d: %w", uid, ctxErr(ctx, err))
		}
		return nil, fmt.Errorf("%w: UID %d in %s", ErrMessageNotFound, uid, c.cfg.Mailbox)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting UID %d: %w", uid, ctxErr(ctx, err))
	}
	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil, fmt.Errorf("%w: UID %d returned no body", ErrMessageNotFound, uid)
	}
	return raw, nil
}

// FetchItem fetches the message with uid and parses it.
func (c *Client) FetchItem(ctx context.Context, uid uint32) (*eml.Message, error) {
	raw, err := c.FetchRaw(ctx, uid)
	if err != nil {
		return nil, err
	}
	msg, err := eml.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing UID %d: %w", uid, err)
	}
	c.logger.Debug("message fetched", slog.Any("uid", uid), slog.Int("bytes", len(raw)))
	return msg, nil
}

// AppendDraft stores raw in the drafts mailbox with the \Draft flag.
func (c *Client) AppendDraft(ctx context.Context, raw []byte) error {
	client, release, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	appendCmd := client.Append(c.cfg.DraftsMailbox, int64(len(raw)), &goimap.AppendOptions{
		Flags: []goimap.Flag{goimap.FlagDraft},
		Time:  c.now(),
	})
	if _, err := appendCmd.Write(raw); err != nil {
		_ = appendCmd.Close()
		return fmt.Errorf("writing draft: %w", ctxErr(ctx, err))
	}
	if err := appendCmd.Close(); err != nil {
		return fmt.Errorf("writing draft: %w", ctxErr(ctx, err))
	}
	if _, err := appendCmd.Wait(); err != nil {
		return fmt.Errorf("appending draft to %s: %w", c.cfg.DraftsMailbox, ctxErr(ctx, err))
	}
	return nil
}

// Host returns a host whose reply form stores drafts answering msg.
func (c *Client) Host(msg *eml.Message, from host.Identity) *Host {
	return &Host{client: c, msg: msg, from: from}
}

// Host is an IMAP message with a reply form.
type Host struct {
	client *Client
	msg    *eml.Message
	from   host.Identity
}

var _ host.ReplyForm = (*Host)(nil)

// DisplayReplyForm builds a reply to the message and appends it to the
// drafts mailbox, where the user's mail client picks it up.
func (h *Host) DisplayReplyForm(ctx context.Context, text string) error {
	raw, err := eml.BuildReply(h.msg, h.from, text, h.client.now())
	if err != nil {
		return err
	}
	return h.client.AppendDraft(ctx, raw)
}

// ctxErr prefers the context error when the connection was closed because
// ctx ended.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
