// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for inboxassist.
//
// Instrumentation is off for one-shot CLI commands unless
// INSTRUMENTATION_ENABLED=true, and on for the serve command. A disabled
// Provider still hands out a Metrics recorder; every Record method on a
// zero or nil Metrics is a no-op, so components never check for it.
//
// # Metrics
//
// Inference client:
//   - inference_requests_total: operations by operation and status (model with detailed labels)
//   - inference_request_duration_seconds: operation duration across all retries
//   - inference_attempts_total: individual HTTP attempts by operation and outcome
//
// Assistant:
//   - action_invocations_total / action_duration_seconds: actions by kind and status
//   - actions_in_flight: actions currently running
//   - reply_injections_total: replies by delivery surface and status
//
// Serve mode:
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds
//   - http_requests_total / http_request_duration_seconds (status reduced to its class)
//
// # Tracing
//
// Spans are created for:
//   - inference client operations (inference.<operation>, one event per attempt)
//   - assistant actions and replies (action.<kind>)
//   - MCP tool invocations (tool.<name>)
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: enable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces and metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: inboxassist)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_SUBJECTS
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAction(ctx, "summarize", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
