package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/mailctx"
)

// Prompt placeholders.
const (
	PlaceholderContext            = actions.PlaceholderContext
	PlaceholderCustomInstructions = "{custom_instructions}"
	PlaceholderResponseStyle      = "{response_style}"
)

// GeneratingText is shown in the reply form while the answer is generated.
const GeneratingText = "Antwort wird generiert…"

// DefaultOpenDelay is how long OpenReplyFormAndGenerate waits after opening
// the placeholder form.
const DefaultOpenDelay = 500 * time.Millisecond

// Config holds the injector settings.
type Config struct {
	// Template is the configured reply template; empty selects DefaultTemplate.
	Template          string
	DefaultParameters inference.Parameters
	// IncludeThread is applied to every extraction regardless of the
	// extractor's own options.
	IncludeThread bool
	OpenDelay     time.Duration
}

// Options tune a single reply.
type Options struct {
	PromptTemplate     string
	CustomInstructions string
	ResponseStyle      string
	Parameters         inference.Parameters
}

// Outcome is a delivered reply.
type Outcome struct {
	InvocationID string           `json:"invocation_id"`
	Text         string           `json:"text"`
	Surface      string           `json:"surface"`
	Context      *mailctx.Context `json:"context"`
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures an Injector.
type Option func(*Injector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Injector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(i *Injector) { i.metrics = m }
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(i *Injector) { i.audit = a }
}

// WithRegistry publishes lifecycle events to r.
func WithRegistry(r *actions.Registry) Option {
	return func(i *Injector) {
		if r != nil {
			i.observers = r
		}
	}
}

// WithIDGenerator replaces the invocation id source.
func WithIDGenerator(fn func() string) Option {
	return func(i *Injector) {
		if fn != nil {
			i.newID = fn
		}
	}
}

// WithSleep replaces the settle wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(i *Injector) {
		if fn != nil {
			i.sleep = fn
		}
	}
}

// Injector generates replies and writes them into the host's reply surface.
type Injector struct {
	gen       actions.Generator
	extractor actions.ContextExtractor
	cfg       Config

	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	observers *actions.Registry
	newID     func() string
	sleep     SleepFunc
}

// New creates an Injector.
func New(gen actions.Generator, extractor actions.ContextExtractor, cfg Config, opts ...Option) *Injector {
	if cfg.OpenDelay <= 0 {
		cfg.OpenDelay = DefaultOpenDelay
	}
	i := &Injector{
		gen:       gen,
		extractor: extractor,
		cfg:       cfg,
		logger:    slog.Default(),
		observers: actions.NewRegistry(),
		newID:     uuid.NewString,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.WithOperation(i.logger, "reply")
	return i
}

// Subscribe registers an observer for reply lifecycle events.
func (i *Injector) Subscribe(obs actions.Observer) func() {
	return i.observers.Subscribe(obs)
}

// Template picks the reply template: the caller's, then the configured one,
// then DefaultTemplate.
func (i *Injector) Template(opts Options) string {
	switch {
	case opts.PromptTemplate != "":
		return opts.PromptTemplate
	case i.cfg.Template != "":
		return i.cfg.Template
	default:
		return DefaultTemplate
	}
}

// instructionsBlock carries caller instructions for templates that have no
// {custom_instructions} placeholder.
const instructionsBlock = "\n\nZusätzliche Anweisungen:\n" + PlaceholderCustomInstructions

// BuildPrompt renders the reply prompt for an already formatted context.
// Custom instructions are appended when the template does not place them.
func (i *Injector) BuildPrompt(formattedContext string, opts Options) string {
	template := i.Template(opts)
	pairs := []string{PlaceholderContext, formattedContext}
	if opts.CustomInstructions != "" {
		if !strings.Contains(template, PlaceholderCustomInstructions) {
			template += instructionsBlock
		}
		pairs = append(pairs, PlaceholderCustomInstructions, opts.CustomInstructions)
	}
	if opts.ResponseStyle != "" {
		pairs = append(pairs, PlaceholderResponseStyle, opts.ResponseStyle)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Reply generates an answer to item and delivers it to h: into a new reply
// form when h offers one, else into the open compose window.
func (i *Injector) Reply(ctx context.Context, h host.Host, item host.Item, opts Options) (*Outcome, error) {
	return i.run(ctx, h, item, opts, false)
}

// OpenReplyFormAndGenerate opens a reply form showing GeneratingText, waits
// for it to settle and then replies. Hosts without a reply form are already
// composing, so the reply runs immediately.
func (i *Injector) OpenReplyFormAndGenerate(ctx context.Context, h host.Host, item host.Item, opts Options) (*Outcome, error) {
	return i.run(ctx, h, item, opts, true)
}

func (i *Injector) run(ctx context.Context, h host.Host, item host.Item, opts Options, openForm bool) (*Outcome, error) {
	id := i.newID()
	logger := i.logger.With(slog.String("invocation_id", id))
	if opts.ResponseStyle != "" {
		logger = logger.With(logging.Style(opts.ResponseStyle))
	}
	start := time.Now()

	ctx, span := instrumentation.StartActionSpan(ctx, string(actions.KindReply),
		instrumentation.NewSpanAttributeBuilder().
			WithInvocationID(id).
			WithModel(i.gen.Model()).
			WithStyle(opts.ResponseStyle).
			Build()...)
	defer span.End()

	i.metrics.IncrementActionsInFlight(ctx)
	defer i.metrics.DecrementActionsInFlight(ctx)

	inv := instrumentation.NewInvocation(instrumentation.InvocationReply, replyName(opts)).
		WithID(id).
		WithModel(i.gen.Model())

	i.publish(id, actions.PhaseBefore, actions.StateIdle, nil, nil)

	transition := func(state actions.State) {
		logger.Debug("reply state changed", slog.String("state", string(state)))
		instrumentation.AddSpanEvent(span, string(state))
		i.publish(id, actions.PhaseTransition, state, nil, nil)
	}

	var (
		out *Outcome
		err error
	)
	if openForm {
		err = i.openForm(ctx, h, transition)
	}
	if err == nil {
		out, err = i.reply(ctx, h, item, opts, inv, transition)
	}
	if out != nil {
		out.InvocationID = id
	}

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		i.publish(id, actions.PhaseError, actions.StateFailed, nil, err)
		logger.Warn("reply failed", logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
		i.publish(id, actions.PhaseAfter, actions.StateDone, &actions.Result{
			InvocationID: id,
			Kind:         actions.KindReply,
			Text:         out.Text,
			Context:      out.Context,
		}, nil)
		logger.Debug("reply delivered", logging.Surface(out.Surface), slog.Duration("duration", time.Since(start)))
	}

	i.metrics.RecordAction(ctx, string(actions.KindReply), status, time.Since(start))
	i.audit.Log(ctx, inv.WithSpanContext(ctx).Complete(err))
	return out, err
}

func (i *Injector) reply(ctx context.Context, h host.Host, item host.Item, opts Options, inv *instrumentation.Invocation, transition func(actions.State)) (*Outcome, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: no item", host.ErrUnsupportedItemKind)
	}

	c, err := i.extractor.Extract(ctx, item, mailctx.WithThread(i.cfg.IncludeThread))
	if err != nil {
		return nil, fmt.Errorf("extracting context: %w", err)
	}
	inv.WithItem(string(c.Kind), c.Primary().Address, c.Subject)
	transition(actions.StateContextExtracted)

	prompt := i.BuildPrompt(i.extractor.Format(c), opts)
	transition(actions.StatePromptBuilt)

	params := inference.Merge(i.cfg.DefaultParameters, opts.Parameters)
	resp, err := i.gen.GenerateText(ctx, prompt, params)
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}
	text := resp.Text()
	transition(actions.StateResponseReceived)

	surface, err := i.deliver(ctx, h, text)
	inv.WithSurface(surface)
	if err != nil {
		return nil, err
	}
	transition(actions.StateDelivered)

	return &Outcome{Text: text, Surface: surface, Context: c}, nil
}

// deliver writes text to the reply form, else the compose window.
func (i *Injector) deliver(ctx context.Context, h host.Host, text string) (surface string, err error) {
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		i.metrics.RecordReplyInjection(ctx, surface, status)
	}()

	if form, ok := h.(host.ReplyForm); ok {
		if err := form.DisplayReplyForm(ctx, text); err != nil {
			return host.SurfaceReplyForm, fmt.Errorf("opening reply form: %w", err)
		}
		return host.SurfaceReplyForm, nil
	}
	if compose, ok := h.(host.ComposeSurface); ok {
		if err := compose.SetSelectedText(ctx, text); err != nil {
			return host.SurfaceCompose, fmt.Errorf("inserting reply: %w", err)
		}
		return host.SurfaceCompose, nil
	}
	return host.SurfaceNone, host.ErrNoInjectionSurface
}

// ReplyWithStyle replies using the named preset. An unknown name applies no
// overrides.
func (i *Injector) ReplyWithStyle(ctx context.Context, h host.Host, item host.Item, style string) (*Outcome, error) {
	return i.Reply(ctx, h, item, StyleOptions(style))
}

// StyleOptions returns reply options carrying the named preset.
func StyleOptions(style string) Options {
	p := Style(style)
	return Options{
		PromptTemplate: p.PromptTemplate,
		ResponseStyle:  p.Name,
		Parameters:     p.Parameters,
	}
}

// openForm shows the placeholder reply form when h has one.
func (i *Injector) openForm(ctx context.Context, h host.Host, transition func(actions.State)) error {
	form, ok := h.(host.ReplyForm)
	if !ok {
		return nil
	}
	if err := form.DisplayReplyForm(ctx, GeneratingText); err != nil {
		return fmt.Errorf("opening reply form: %w", err)
	}
	transition(actions.StatePlaceholderShown)
	return i.sleep(ctx, i.cfg.OpenDelay)
}

func (i *Injector) publish(id string, phase actions.Phase, state actions.State, result *actions.Result, err error) {
	i.observers.Publish(actions.Event{
		InvocationID: id,
		Phase:        phase,
		State:        state,
		Kind:         actions.KindReply,
		Result:       result,
		Err:          err,
	})
}

func replyName(opts Options) string {
	if opts.ResponseStyle != "" {
		return opts.ResponseStyle
	}
	return string(actions.KindReply)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
