package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrOutcome   = "outcome"
	attrModel     = "model"
	attrAction    = "action"
	attrSurface   = "surface"
	attrTool      = "tool"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is valid and records nothing.
type Metrics struct {
	// Inference metrics
	inferenceRequestsTotal   metric.Int64Counter
	inferenceRequestDuration metric.Float64Histogram
	inferenceAttemptsTotal   metric.Int64Counter

	// Action metrics
	actionInvocationsTotal metric.Int64Counter
	actionDuration         metric.Float64Histogram
	actionsInFlight        metric.Int64UpDownCounter

	// Reply metrics
	replyInjectionsTotal metric.Int64Counter

	// MCP tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// HTTP metrics (serve mode)
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// detailedLabels adds the model name to inference metrics
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.inferenceRequestsTotal, err = meter.Int64Counter(
		"inference_requests_total",
		metric.WithDescription("Total number of inference service operations"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference_requests_total counter: %w", err)
	}

	// Generation is slow; buckets reach past the default 30s attempt timeout.
	m.inferenceRequestDuration, err = meter.Float64Histogram(
		"inference_request_duration_seconds",
		metric.WithDescription("Inference operation duration in seconds, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference_request_duration_seconds histogram: %w", err)
	}

	m.inferenceAttemptsTotal, err = meter.Int64Counter(
		"inference_attempts_total",
		metric.WithDescription("Total number of individual HTTP attempts against the inference service"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference_attempts_total counter: %w", err)
	}

	m.actionInvocationsTotal, err = meter.Int64Counter(
		"action_invocations_total",
		metric.WithDescription("Total number of assistant action invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create action_invocations_total counter: %w", err)
	}

	m.actionDuration, err = meter.Float64Histogram(
		"action_duration_seconds",
		metric.WithDescription("Assistant action duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create action_duration_seconds histogram: %w", err)
	}

	m.actionsInFlight, err = meter.Int64UpDownCounter(
		"actions_in_flight",
		metric.WithDescription("Number of assistant actions currently running"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create actions_in_flight gauge: %w", err)
	}

	m.replyInjectionsTotal, err = meter.Int64Counter(
		"reply_injections_total",
		metric.WithDescription("Total number of generated replies delivered to a host surface"),
		metric.WithUnit("{reply}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reply_injections_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordInferenceRequest records one client operation (generate, list_models, ...)
// including all of its retries.
//
// Parameters:
//   - operation: client operation name
//   - model: model name, only attached when detailed labels are enabled
//   - status: "success" or "error"
//   - duration: wall time across all attempts
func (m *Metrics) RecordInferenceRequest(ctx context.Context, operation, model, status string, duration time.Duration) {
	if m == nil || m.inferenceRequestsTotal == nil || m.inferenceRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && model != "" {
		attrs = append(attrs, attribute.String(attrModel, model))
	}

	m.inferenceRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.inferenceRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordInferenceAttempt records a single HTTP attempt and its outcome
// (one of the Outcome* constants).
func (m *Metrics) RecordInferenceAttempt(ctx context.Context, operation, outcome string) {
	if m == nil || m.inferenceAttemptsTotal == nil {
		return
	}

	m.inferenceAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrOutcome, outcome),
	))
}

// RecordAction records a completed assistant action.
func (m *Metrics) RecordAction(ctx context.Context, action, status string, duration time.Duration) {
	if m == nil || m.actionInvocationsTotal == nil || m.actionDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	}

	m.actionInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.actionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActionsInFlight marks the start of an action.
func (m *Metrics) IncrementActionsInFlight(ctx context.Context) {
	if m == nil || m.actionsInFlight == nil {
		return
	}
	m.actionsInFlight.Add(ctx, 1)
}

// DecrementActionsInFlight marks the end of an action.
func (m *Metrics) DecrementActionsInFlight(ctx context.Context) {
	if m == nil || m.actionsInFlight == nil {
		return
	}
	m.actionsInFlight.Add(ctx, -1)
}

// RecordReplyInjection records a reply delivery. surface is "reply_form",
// "compose" or "none" when no surface was available.
func (m *Metrics) RecordReplyInjection(ctx context.Context, surface, status string) {
	if m == nil || m.replyInjectionsTotal == nil {
		return
	}

	m.replyInjectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSurface, surface),
		attribute.String(attrStatus, status),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordHTTPRequest records an HTTP request served by the serve command.
// The status code is reduced to its class to bound cardinality.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, StatusClass(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
