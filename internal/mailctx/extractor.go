package mailctx

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/logging"
)

// Placeholders used when the host cannot deliver a body.
const (
	EmailBodyUnavailable       = "Fehler beim Laden des E-Mail-Textes"
	AppointmentBodyUnavailable = "Fehler beim Laden des Termin-Textes"
)

// Options control what Extract reads from an item.
type Options struct {
	IncludeAttachments bool `mapstructure:"include_attachments"`
	MaxBodyLength      int  `mapstructure:"max_body_length"`
	IncludeRecipients  bool `mapstructure:"include_recipients"`
	IncludeCc          bool `mapstructure:"include_cc"`
	IncludeBcc         bool `mapstructure:"include_bcc"`
	IncludeThread      bool `mapstructure:"include_thread"`
	MaxThreadDepth     int  `mapstructure:"max_thread_depth"`
}

// DefaultOptions returns the add-in defaults.
func DefaultOptions() Options {
	return Options{
		IncludeAttachments: true,
		MaxBodyLength:      10000,
		IncludeRecipients:  true,
		IncludeCc:          true,
		IncludeBcc:         false,
		IncludeThread:      false,
		MaxThreadDepth:     3,
	}
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithThreadSource sets where conversation history comes from.
func WithThreadSource(src host.ThreadSource) ExtractorOption {
	return func(e *Extractor) {
		if src != nil {
			e.threads = src
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor turns host items into Contexts. Its options are fixed at
// construction; per-call changes go through ExtractOption.
type Extractor struct {
	opts    Options
	threads host.ThreadSource
	logger  *slog.Logger
}

// NewExtractor creates an Extractor. Without WithThreadSource threads come
// from host.UnavailableThreads. Items implementing host.ThreadSource always
// supply their own thread.
func NewExtractor(opts Options, eopts ...ExtractorOption) *Extractor {
	if opts.MaxBodyLength <= 0 {
		opts.MaxBodyLength = DefaultOptions().MaxBodyLength
	}
	if opts.MaxThreadDepth < 0 {
		opts.MaxThreadDepth = 0
	}

	e := &Extractor{
		opts:    opts,
		threads: host.UnavailableThreads{Delay: host.DefaultThreadDelay},
		logger:  slog.Default(),
	}
	for _, o := range eopts {
		o(e)
	}
	return e
}

// Options returns the extractor's configuration.
func (e *Extractor) Options() Options {
	return e.opts
}

// ExtractOption overrides options for a single Extract call.
type ExtractOption func(*Options)

// WithThread forces thread inclusion on or off for one call.
func WithThread(include bool) ExtractOption {
	return func(o *Options) {
		o.IncludeThread = include
	}
}

// Extract reads item into a Context. Only unsupported kinds fail; field-level
// failures degrade to empty lists and placeholder bodies.
func (e *Extractor) Extract(ctx context.Context, item host.Item, opts ...ExtractOption) (*Context, error) {
	if item == nil {
		return nil, &host.UnsupportedKindError{Kind: ""}
	}

	o := e.opts
	for _, fn := range opts {
		fn(&o)
	}

	switch item.Kind() {
	case host.KindEmail:
		email, ok := item.(host.EmailItem)
		if !ok {
			break
		}
		return e.extractEmail(ctx, email, o), nil
	case host.KindAppointment:
		appt, ok := item.(host.AppointmentItem)
		if !ok {
			break
		}
		return e.extractAppointment(ctx, appt, o), nil
	}
	return nil, &host.UnsupportedKindError{Kind: item.Kind()}
}

func (e *Extractor) extractEmail(ctx context.Context, item host.EmailItem, o Options) *Context {
	c := newContext(host.KindEmail, item.Subject())
	c.Sender = item.Sender()
	c.Created = item.Created()
	c.Importance = item.Importance()
	if c.Importance == "" {
		c.Importance = host.ImportanceNormal
	}
	c.ConversationID = item.ConversationID()

	if o.IncludeRecipients {
		c.To = e.resolve(ctx, "to", item.To())
	}
	if o.IncludeCc {
		c.Cc = e.resolve(ctx, "cc", item.Cc())
	}
	if o.IncludeBcc {
		c.Bcc = e.resolve(ctx, "bcc", item.Bcc())
	}

	c.Body = e.body(ctx, item.Body, o.MaxBodyLength, EmailBodyUnavailable)

	if o.IncludeAttachments {
		c.Attachments = copyAttachments(item.Attachments())
	}

	if o.IncludeThread && c.ConversationID != "" {
		threads := e.threads
		// Items that can read their own conversation know which messages
		// are earlier than themselves.
		if src, ok := item.(host.ThreadSource); ok {
			threads = src
		}
		msgs, err := threads.Thread(ctx, c.ConversationID, o.MaxThreadDepth)
		switch {
		case errors.Is(err, host.ErrNotImplemented):
			e.logger.Debug("thread retrieval not available", logging.ItemKind(string(c.Kind)))
			c.ThreadErr = err
		case err != nil:
			e.logger.Warn("thread retrieval failed", logging.Err(err))
			c.ThreadErr = err
		default:
			if len(msgs) > o.MaxThreadDepth {
				msgs = msgs[:o.MaxThreadDepth]
			}
			c.Thread = append(c.Thread, msgs...)
		}
	}

	return c
}

func (e *Extractor) extractAppointment(ctx context.Context, item host.AppointmentItem, o Options) *Context {
	c := newContext(host.KindAppointment, item.Subject())
	c.Organizer = item.Organizer()
	c.Location = item.Location()
	c.Start = item.Start()
	c.End = item.End()

	c.RequiredAttendees = e.resolve(ctx, "required", item.RequiredAttendees())
	c.OptionalAttendees = e.resolve(ctx, "optional", item.OptionalAttendees())

	c.Body = e.body(ctx, item.Body, o.MaxBodyLength, AppointmentBodyUnavailable)

	if o.IncludeAttachments {
		c.Attachments = copyAttachments(item.Attachments())
	}

	return c
}

// resolve never fails: a missing list or a lookup error yields an empty list.
func (e *Extractor) resolve(ctx context.Context, field string, list host.RecipientList) []host.Identity {
	if list == nil {
		return []host.Identity{}
	}
	ids, err := list.Resolve(ctx)
	if err != nil {
		e.logger.Debug("recipient resolution failed", slog.String("field", field), logging.Err(err))
		return []host.Identity{}
	}
	return append([]host.Identity{}, ids...)
}

func (e *Extractor) body(ctx context.Context, read func(context.Context, int) (string, error), max int, placeholder string) string {
	text, err := read(ctx, max)
	if err != nil {
		e.logger.Debug("body retrieval failed", logging.Err(err))
		return placeholder
	}
	return truncate(text, max)
}

func copyAttachments(in []host.Attachment) []host.Attachment {
	return append([]host.Attachment{}, in...)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
