package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/logging"
)

// Me is the user id of the authorized account.
const Me = "me"

// Client wraps the Gmail Users service.
type Client struct {
	svc    *gmail.UsersService
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger   *slog.Logger
	endpoint string
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithEndpoint overrides the API base URL, mainly for tests.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) {
		o.endpoint = endpoint
	}
}

// NewClient creates a Client that authenticates through hc, usually the
// client returned by google.HTTPClient.
func NewClient(ctx context.Context, hc *http.Client, opts ...Option) (*Client, error) {
	o := clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := gmail.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		svc:    svc.Users,
		logger: logging.WithOperation(logger, "gmail"),
	}, nil
}

// Item fetches the message with id and parses it into a host email item.
func (c *Client) Item(ctx context.Context, id string) (*Message, error) {
	if id == "" {
		return nil, fmt.Errorf("message id is required")
	}

	m, err := c.svc.Messages.Get(Me, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	raw, err := decodeBase64(m.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message %s: %w", id, err)
	}
	parsed, err := eml.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", id, err)
	}

	c.logger.Debug("message fetched", slog.String("id", id), slog.Int("bytes", len(raw)))
	return &Message{
		Message:      parsed,
		GmailID:      m.Id,
		ThreadID:     m.ThreadId,
		Labels:       m.LabelIds,
		InternalDate: m.InternalDate,
		client:       c,
	}, nil
}

// decodeBase64 accepts both padded and unpadded base64url.
func decodeBase64(s string) ([]byte, error) {
	data, err := base64.URLEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	data, rawErr := base64.RawURLEncoding.DecodeString(s)
	if rawErr == nil {
		return data, nil
	}
	// Try with standard base64 if URLEncoding fails
	if data, stdErr := base64.StdEncoding.DecodeString(s); stdErr == nil {
		return data, nil
	}
	return nil, err
}
