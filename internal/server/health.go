package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"
)

// DefaultReadinessTimeout bounds the inference connection test of /readyz.
const DefaultReadinessTimeout = 5 * time.Second

// ShutdownChecker reports whether the application is shutting down.
// *app.App implements it.
type ShutdownChecker interface {
	IsClosed() bool
}

// ConnectionTester reports whether the inference service is ready.
// *inference.Client implements it.
type ConnectionTester interface {
	TestConnection(ctx context.Context) bool
}

// modelNamer is implemented by testers that know which model they serve.
type modelNamer interface {
	Model() string
}

// HealthChecker serves liveness and readiness for the HTTP transports.
// Readiness includes the inference service, so a proxy stops routing
// assistant calls while the model is unavailable.
type HealthChecker struct {
	ready     atomic.Bool
	app       ShutdownChecker
	inference ConnectionTester
	timeout   time.Duration
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready. Either
// argument may be nil; a nil app never reports shutdown and a nil tester
// skips the inference check.
func NewHealthChecker(app ShutdownChecker, inference ConnectionTester) *HealthChecker {
	h := &HealthChecker{
		app:       app,
		inference: inference,
		timeout:   DefaultReadinessTimeout,
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness flag.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isShuttingDown() bool {
	return h.app != nil && h.app.IsClosed()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Model  string            `json:"model,omitempty"`
	Checks map[string]string `json:"checks"`
}

// checks evaluates every readiness condition. The inference service is
// asked under its own timeout.
func (h *HealthChecker) checks(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
	}
	ok := true

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.isShuttingDown() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}
	if h.inference != nil {
		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		if h.inference.TestConnection(ctx) {
			checks["inference"] = healthStatusOK
		} else {
			checks["inference"] = healthStatusUnavailable
			ok = false
		}
	}
	return checks, ok
}

func writeHealth(w http.ResponseWriter, ok bool, body any) {
	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It only says the process is running.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, true, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.checks(r.Context())
		status := healthStatusOK
		if !ok {
			status = healthStatusNotReady
		}
		writeHealth(w, ok, HealthResponse{Status: status, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed: the readiness checks plus
// uptime and the model name.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.checks(r.Context())
		response := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
			Checks: checks,
		}
		if m, isNamer := h.inference.(modelNamer); isNamer {
			response.Model = m.Model()
		}
		switch {
		case h.isShuttingDown():
			response.Status = healthStatusShuttingDown
		case !ok:
			response.Status = healthStatusNotReady
		}
		writeHealth(w, ok, response)
	})
}

// RegisterHealthEndpoints registers the health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
