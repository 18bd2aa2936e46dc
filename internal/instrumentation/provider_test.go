package instrumentation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.PrometheusEnabled() {
		t.Error("disabled provider should not report a prometheus exporter")
	}
	if m, tr := provider.Exporters(); m != "" || tr != "" {
		t.Errorf("disabled provider reported exporters %q/%q", m, tr)
	}
	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if !provider.PrometheusEnabled() {
		t.Error("expected prometheus exporter to be configured")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected tracer to be non-nil")
	}
	if m, tr := provider.Exporters(); m != ExporterPrometheus || tr != ExporterNone {
		t.Errorf("Exporters() = %q/%q", m, tr)
	}

	// Recording against a live meter should not panic.
	provider.Metrics().RecordInferenceRequest(ctx, OperationGenerate, "llm_model", StatusSuccess, time.Second)
}

func TestNewProvider_StdoutExporters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	provider, err := NewProvider(ctx, Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1.0,
	}, WithProviderLogger(logger))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.PrometheusEnabled() {
		t.Error("stdout exporter should not report a prometheus exporter")
	}
	if !strings.Contains(logs.String(), "stdout trace exporter enabled") {
		t.Errorf("expected a warning for the stdout exporter, got %q", logs.String())
	}
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "unknown metrics exporter",
			config: Config{
				Enabled:         true,
				MetricsExporter: "statsd",
				TracingExporter: ExporterNone,
			},
		},
		{
			name: "otlp without endpoint",
			config: Config{
				Enabled:         true,
				MetricsExporter: ExporterPrometheus,
				TracingExporter: ExporterOTLP,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(context.Background(), tt.config); err == nil {
				t.Error("expected error for invalid configuration")
			}
		})
	}
}

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider()
	if p.Enabled() {
		t.Error("noop provider should be disabled")
	}
	if p.Tracer("test") == nil {
		t.Error("expected a noop tracer")
	}

	var nilProvider *Provider
	if nilProvider.Metrics() == nil {
		t.Error("nil provider should still hand out a metrics recorder")
	}
	if err := nilProvider.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider shutdown returned %v", err)
	}
}
