package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Invocation kinds recorded in audit logs.
const (
	InvocationAction = "action"
	InvocationTool   = "tool"
	InvocationReply  = "reply"
)

// Invocation captures one assistant action, reply or MCP tool call for
// audit logging.
//
// # Privacy Considerations
//
// Sender and Subject describe the mail item the user acted on. Sender is
// reduced to its domain unless the logger includes PII; Subject is only
// recorded when AuditLoggingConfig.IncludeSubjects is set.
type Invocation struct {
	// Kind is one of the Invocation* constants.
	Kind string

	// Name is the action kind, reply style or tool name.
	Name string

	// ID correlates the audit record with observer notifications.
	ID string

	// Item describes the mail item the invocation ran against.
	ItemKind string
	Sender   string
	Subject  string

	// Model is the inference model that produced the text.
	Model string

	// Surface is where generated text was delivered, if anywhere.
	Surface string

	// Caller is the authenticated MCP client user, if any.
	Caller string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewInvocation creates an Invocation with timing started.
// Call Complete when the operation finishes.
func NewInvocation(kind, name string) *Invocation {
	return &Invocation{
		Kind:      kind,
		Name:      name,
		StartTime: time.Now(),
	}
}

// WithID sets the correlation ID.
func (inv *Invocation) WithID(id string) *Invocation {
	inv.ID = id
	return inv
}

// WithItem records the mail item the invocation ran against.
func (inv *Invocation) WithItem(kind, sender, subject string) *Invocation {
	inv.ItemKind = kind
	inv.Sender = sender
	inv.Subject = subject
	return inv
}

// WithModel sets the inference model name.
func (inv *Invocation) WithModel(model string) *Invocation {
	inv.Model = model
	return inv
}

// WithSurface sets the delivery surface.
func (inv *Invocation) WithSurface(surface string) *Invocation {
	inv.Surface = surface
	return inv
}

// WithCaller records the authenticated user that made the call.
func (inv *Invocation) WithCaller(email string) *Invocation {
	inv.Caller = email
	return inv
}

// WithSpanContext extracts trace context from the current span.
func (inv *Invocation) WithSpanContext(ctx context.Context) *Invocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		inv.TraceID = span.SpanContext().TraceID().String()
		inv.SpanID = span.SpanContext().SpanID().String()
	}
	return inv
}

// Complete marks the invocation as finished and calculates its duration.
func (inv *Invocation) Complete(err error) *Invocation {
	inv.Duration = time.Since(inv.StartTime)
	inv.Success = err == nil
	if err != nil {
		inv.Error = err.Error()
	}
	return inv
}

// Status returns "success" or "error" based on the Success field.
func (inv *Invocation) Status() string {
	if inv.Success {
		return StatusSuccess
	}
	return StatusError
}

// SenderDomain returns the domain of the sender for lower-cardinality logging.
func (inv *Invocation) SenderDomain() string {
	return ExtractUserDomain(inv.Sender)
}

// LogAttrs returns slog attributes for the invocation.
// includePII selects the full sender address over its domain;
// includeSubject adds the subject line.
func (inv *Invocation) LogAttrs(includePII, includeSubject bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("kind", inv.Kind),
		slog.String("name", inv.Name),
		slog.Duration("duration", inv.Duration),
		slog.Bool("success", inv.Success),
	}

	if inv.ID != "" {
		attrs = append(attrs, slog.String("invocation_id", inv.ID))
	}
	if inv.ItemKind != "" {
		attrs = append(attrs, slog.String("item_kind", inv.ItemKind))
	}
	if inv.Sender != "" {
		if includePII {
			attrs = append(attrs, slog.String("sender", inv.Sender))
		} else {
			attrs = append(attrs, slog.String("sender_domain", inv.SenderDomain()))
		}
	}
	if includeSubject && inv.Subject != "" {
		attrs = append(attrs, slog.String("subject", inv.Subject))
	}
	if inv.Model != "" {
		attrs = append(attrs, slog.String("model", inv.Model))
	}
	if inv.Surface != "" {
		attrs = append(attrs, slog.String("surface", inv.Surface))
	}
	if inv.Caller != "" {
		if includePII {
			attrs = append(attrs, slog.String("caller", inv.Caller))
		} else {
			attrs = append(attrs, slog.String("caller_domain", ExtractUserDomain(inv.Caller)))
		}
	}
	if inv.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", inv.TraceID))
	}
	if inv.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", inv.SpanID))
	}
	if inv.Error != "" {
		attrs = append(attrs, slog.String("error", inv.Error))
	}

	return attrs
}

// AuditLogger writes structured audit records for invocations.
// A nil *AuditLogger discards everything.
type AuditLogger struct {
	logger         *slog.Logger
	includePII     bool
	includeSubject bool
	enabled        bool
}

// NewAuditLogger creates an AuditLogger that logs sender domains only.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:  logger,
		enabled: true,
	}
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	al := NewAuditLogger(logger)
	al.enabled = config.Enabled
	al.includeSubject = config.IncludeSubjects
	return al
}

// SetIncludePII sets whether full sender addresses are logged.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// Log writes the invocation. Successful invocations log at info,
// failed ones at warn.
func (al *AuditLogger) Log(ctx context.Context, inv *Invocation) {
	if al == nil || !al.enabled || inv == nil {
		return
	}

	attrs := inv.LogAttrs(al.includePII, al.includeSubject)
	msg := inv.Kind + "_executed"
	level := slog.LevelInfo
	if !inv.Success {
		msg = inv.Kind + "_failed"
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, msg, attrs...)
}
