package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/instrumentation"
)

// Transport names accepted by NewHTTPServer.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// HTTPServerConfig configures the HTTP server of the serve command.
type HTTPServerConfig struct {
	// Transport is TransportSSE or TransportStreamableHTTP.
	Transport string
	// Health serves /healthz, /readyz and /healthz/detailed when set.
	Health *HealthChecker
	// Events serves the lifecycle stream on /events when set.
	Events *EventHub
	// Auth guards the MCP and event endpoints when set.
	Auth *Authenticator
	// Metrics records http_requests_total for every request; nil disables it.
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// HTTPServer exposes the MCP server over HTTP together with the health and
// event endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	cfg        HTTPServerConfig
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates an HTTP server for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, cfg HTTPServerConfig) (*HTTPServer, error) {
	if mcpServer == nil {
		return nil, errors.New("MCP server is required")
	}
	switch cfg.Transport {
	case TransportSSE, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPServer{mcpServer: mcpServer, cfg: cfg}, nil
}

// Handler returns the routing of all endpoints. Health endpoints are never
// authenticated.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	protect := func(h http.Handler) http.Handler {
		if s.cfg.Auth == nil {
			return h
		}
		return s.cfg.Auth.Protect(h)
	}

	switch s.cfg.Transport {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", protect(sseServer))
		mux.Handle("/message", protect(sseServer))

	case TransportStreamableHTTP:
		mux.Handle("/mcp", protect(mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)))
	}

	if s.cfg.Auth != nil {
		mux.HandleFunc(ProtectedResourcePath, s.cfg.Auth.ServeProtectedResourceMetadata)
	}
	if s.cfg.Health != nil {
		s.cfg.Health.RegisterHealthEndpoints(mux)
	}
	if s.cfg.Events != nil {
		mux.Handle("/events", protect(s.cfg.Events))
	}

	return instrumentRequests(s.cfg.Metrics, mux)
}

// Start serves on addr until Shutdown.
func (s *HTTPServer) Start(addr string) error {
	return s.StartWithReadySignal(addr, nil)
}

// StartWithReadySignal is Start with a channel that is closed once the
// listener is bound.
func (s *HTTPServer) StartWithReadySignal(addr string, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.addr = ln.Addr().String()

	// No WriteTimeout: SSE and /events responses are long-lived.
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.cfg.Logger.Info("starting HTTP server",
		slog.String("addr", s.addr),
		slog.String("transport", s.cfg.Transport))
	if ready != nil {
		close(ready)
	}

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the bound address once the server has started.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Shutdown closes the event stream and gracefully shuts down the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.cfg.Events != nil {
		s.cfg.Events.Close()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach Flush and Hijack.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// knownPaths bounds the path label of http_requests_total.
var knownPaths = map[string]bool{
	"/mcp": true, "/message": true, "/healthz": true, "/readyz": true, "/healthz/detailed": true,
}

func instrumentRequests(m *instrumentation.Metrics, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Long-lived streams hijack or hold the connection and are not recorded.
		if r.URL.Path == "/events" || r.URL.Path == "/sse" {
			next.ServeHTTP(w, r)
			return
		}
		path := r.URL.Path
		if !knownPaths[path] {
			path = "other"
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}
