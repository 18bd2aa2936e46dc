// Package server provides the HTTP side of "inboxassist serve".
//
// HTTPServer exposes the MCP tools over SSE or streamable HTTP and mounts
// the health probes and the lifecycle event stream next to them:
//   - /healthz reports liveness
//   - /readyz additionally asks the inference service whether it is ready
//   - /healthz/detailed adds uptime and the model name to the readiness checks
//   - /events streams action and reply lifecycle events as JSON over a
//     websocket
//
// MetricsServer serves Prometheus metrics on a separate address so that
// operational data is not exposed on the MCP port.
package server
