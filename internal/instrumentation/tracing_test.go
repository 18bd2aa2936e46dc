package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithModel("llm_model").
		WithItemKind("email").
		WithInvocationID("inv-1").
		WithStyle("formal").
		Build()

	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	want := map[string]string{
		SpanAttrModel:        "llm_model",
		SpanAttrItemKind:     "email",
		SpanAttrInvocationID: "inv-1",
		SpanAttrStyle:        "formal",
	}
	for key, value := range want {
		if attrMap[key] != value {
			t.Errorf("attribute %s = %v, want %q", key, attrMap[key], value)
		}
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithModel("").
		WithItemKind("").
		WithInvocationID("").
		WithStyle("").
		Build()

	if len(attrs) != 0 {
		t.Errorf("expected no attributes for empty values, got %d", len(attrs))
	}
}

func TestStartSpans(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 1.0,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	spanCtx, span := StartSpan(ctx, "test-span", attribute.String("k", "v"))
	if spanCtx == nil || span == nil {
		t.Fatal("StartSpan returned nil")
	}
	SetSpanSuccess(span)
	span.End()

	_, span = StartInferenceSpan(ctx, OperationGenerate, "/v2/models/llm_model/generate")
	AddSpanEvent(span, "attempt", attribute.Int(SpanAttrAttempts, 1))
	SetSpanError(span, errors.New("request timeout"))
	span.End()

	_, span = StartActionSpan(ctx, "summarize", NewSpanAttributeBuilder().WithItemKind("email").Build()...)
	SetSpanError(span, nil)
	span.End()

	_, span = StartToolSpan(ctx, "assistant_summarize")
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
