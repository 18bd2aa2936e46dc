package actions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxassist/internal/host"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/mailctx"
)

// Generator produces text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, params inference.Parameters) (*inference.GeneratedResponse, error)
	Model() string
}

// ContextExtractor reads an item into a Context and renders it for prompts.
type ContextExtractor interface {
	Extract(ctx context.Context, item host.Item, opts ...mailctx.ExtractOption) (*mailctx.Context, error)
	Format(c *mailctx.Context) string
}

// Request describes one action invocation.
type Request struct {
	Kind           Kind
	CustomPrompt   string
	TargetLanguage string
	// Parameters override the configured defaults field by field.
	Parameters inference.Parameters
}

// Config holds the prompt templates and default generation parameters.
type Config struct {
	Templates         map[Kind]string
	DefaultParameters inference.Parameters
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// WithRegistry shares an observer registry, e.g. with a reply injector.
func WithRegistry(r *Registry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.observers = r
		}
	}
}

// WithIDGenerator replaces the invocation id source.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClock replaces the time source used for appointment defaults.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator runs assistant actions: it extracts the item context, builds
// the prompt, calls the model and post-processes the answer. It is safe for
// concurrent use.
type Orchestrator struct {
	gen       Generator
	extractor ContextExtractor
	cfg       Config

	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	observers *Registry
	newID     func() string
	now       func() time.Time
}

// New creates an Orchestrator.
func New(gen Generator, extractor ContextExtractor, cfg Config, opts ...Option) *Orchestrator {
	templates := make(map[Kind]string, len(cfg.Templates))
	for k, v := range cfg.Templates {
		templates[k] = v
	}
	cfg.Templates = templates

	o := &Orchestrator{
		gen:       gen,
		extractor: extractor,
		cfg:       cfg,
		logger:    slog.Default(),
		observers: NewRegistry(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers an observer for lifecycle events and returns its
// unsubscribe function.
func (o *Orchestrator) Subscribe(obs Observer) func() {
	return o.observers.Subscribe(obs)
}

// Registry returns the observer registry.
func (o *Orchestrator) Registry() *Registry {
	return o.observers
}

// DefaultParameters returns the configured generation defaults.
func (o *Orchestrator) DefaultParameters() inference.Parameters {
	return inference.Merge(o.cfg.DefaultParameters, inference.Parameters{})
}

// BuildPrompt renders the prompt for req from an already formatted context.
func (o *Orchestrator) BuildPrompt(req Request, formattedContext string) string {
	return RenderPrompt(o.Template(req), formattedContext, req)
}

// Execute runs one action against item. Observers see a before event, one
// transition event per pipeline state and an after or error event.
func (o *Orchestrator) Execute(ctx context.Context, item host.Item, req Request) (*Result, error) {
	id := o.newID()
	logger := logging.WithAction(o.logger, string(req.Kind)).With(slog.String("invocation_id", id))
	start := time.Now()

	ctx, span := instrumentation.StartActionSpan(ctx, string(req.Kind),
		instrumentation.NewSpanAttributeBuilder().
			WithInvocationID(id).
			WithModel(o.gen.Model()).
			Build()...)
	defer span.End()

	o.metrics.IncrementActionsInFlight(ctx)
	defer o.metrics.DecrementActionsInFlight(ctx)

	inv := instrumentation.NewInvocation(instrumentation.InvocationAction, string(req.Kind)).
		WithID(id).
		WithModel(o.gen.Model())

	run := &run{o: o, id: id, kind: req.Kind, logger: logger, span: span}
	run.publish(PhaseBefore, StateIdle, nil, nil)

	result, err := o.execute(ctx, run, item, req, inv)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		run.publish(PhaseError, StateFailed, nil, err)
		logger.Warn("action failed", logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
		run.publish(PhaseAfter, StateDone, result, nil)
		logger.Debug("action completed", slog.Duration("duration", time.Since(start)))
	}

	o.metrics.RecordAction(ctx, string(req.Kind), status, time.Since(start))
	o.audit.Log(ctx, inv.WithSpanContext(ctx).Complete(err))
	return result, err
}

func (o *Orchestrator) execute(ctx context.Context, run *run, item host.Item, req Request, inv *instrumentation.Invocation) (*Result, error) {
	if item == nil {
		return nil, fmt.Errorf("%w: no item", host.ErrUnsupportedItemKind)
	}
	run.span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithItemKind(string(item.Kind())).Build()...)

	c, err := o.extractor.Extract(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("extracting context: %w", err)
	}
	inv.WithItem(string(c.Kind), c.Primary().Address, c.Subject)
	run.transition(StateContextExtracted)

	prompt := o.BuildPrompt(req, o.extractor.Format(c))
	run.transition(StatePromptBuilt)
	run.logger.Debug("prompt built", slog.String("prompt", logging.Preview(prompt)))

	params := inference.Merge(o.cfg.DefaultParameters, req.Parameters)
	resp, err := o.gen.GenerateText(ctx, prompt, params)
	if err != nil {
		return nil, fmt.Errorf("generating %s: %w", req.Kind, err)
	}
	run.transition(StateResponseReceived)

	result := &Result{
		InvocationID: run.id,
		Kind:         req.Kind,
		Text:         resp.Text(),
		Context:      c,
		Prompt:       prompt,
	}
	o.process(result, req)
	run.transition(StateResultProcessed)

	return result, nil
}

// process adds the action-specific fields to a result.
func (o *Orchestrator) process(result *Result, req Request) {
	switch req.Kind {
	case KindCalendar:
		result.Event, result.ParseError = ParseEventData(result.Text)
	case KindTranslate:
		result.Translation = &Translation{
			SourceLanguage: SourceLanguage,
			TargetLanguage: req.TargetLanguage,
		}
	}
}

// Analyze runs the analyze action.
func (o *Orchestrator) Analyze(ctx context.Context, item host.Item) (*Result, error) {
	return o.Execute(ctx, item, Request{Kind: KindAnalyze})
}

// Summarize runs the summarize action.
func (o *Orchestrator) Summarize(ctx context.Context, item host.Item) (*Result, error) {
	return o.Execute(ctx, item, Request{Kind: KindSummarize})
}

// GenerateReply runs the reply action.
func (o *Orchestrator) GenerateReply(ctx context.Context, item host.Item) (*Result, error) {
	return o.Execute(ctx, item, Request{Kind: KindReply})
}

// Translate runs the translate action into targetLanguage.
func (o *Orchestrator) Translate(ctx context.Context, item host.Item, targetLanguage string) (*Result, error) {
	return o.Execute(ctx, item, Request{Kind: KindTranslate, TargetLanguage: targetLanguage})
}

// ExtractCalendar runs the calendar action.
func (o *Orchestrator) ExtractCalendar(ctx context.Context, item host.Item) (*Result, error) {
	return o.Execute(ctx, item, Request{Kind: KindCalendar})
}

// Custom runs the custom action with a caller-supplied prompt.
func (o *Orchestrator) Custom(ctx context.Context, item host.Item, prompt string) (*Result, error) {
	return o.Execute(ctx, item, Request{Kind: KindCustom, CustomPrompt: prompt})
}

// run carries per-invocation state for event publishing.
type run struct {
	o      *Orchestrator
	id     string
	kind   Kind
	logger *slog.Logger
	span   trace.Span
}

func (r *run) transition(state State) {
	r.logger.Debug("action state changed", slog.String("state", string(state)))
	instrumentation.AddSpanEvent(r.span, string(state))
	r.publish(PhaseTransition, state, nil, nil)
}

func (r *run) publish(phase Phase, state State, result *Result, err error) {
	r.o.observers.Publish(Event{
		InvocationID: r.id,
		Phase:        phase,
		State:        state,
		Kind:         r.kind,
		Result:       result,
		Err:          err,
	})
}
