package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/resources"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/assistant_tools"
	"github.com/teemow/inboxassist/internal/tools/google_tools"
	"github.com/teemow/inboxassist/internal/tools/inference_tools"
)

const transportStdio = "stdio"

// serveOptions holds the flags of the serve command.
type serveOptions struct {
	transport     string
	httpAddr      string
	metricsAddr   string
	yolo          bool
	eventOrigins  string
	eventResults  bool
	allowedEmails string
	baseURL       string
	startTimeout  time.Duration
	shutdownGrace time.Duration
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server to provide the assistant
actions, reply generation and the inference service to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

The HTTP transports also serve /healthz, /readyz and a websocket stream of
action lifecycle events on /events. Prometheus metrics are served on a
dedicated address (--metrics-addr) when metrics.enabled is set.

Authentication:
  The MCP and /events endpoints require a Google access token of an allowed
  account (--oauth-allowed-emails, default identity.email). Listening on a
  non-loopback address without an allowed account is refused. On a loopback
  address with no allowed account the endpoints are open to local clients.

Safety Mode:
  By default, the server operates in read-only mode: replies are not put into
  drafts and appointments are not created. Use --yolo to enable both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.eventOrigins == "" {
				opts.eventOrigins = os.Getenv(config.EnvPrefix + "_EVENTS_ALLOWED_ORIGINS")
			}
			if opts.allowedEmails == "" {
				opts.allowedEmails = os.Getenv(config.EnvPrefix + "_OAUTH_ALLOWED_EMAILS")
			}
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio, sse or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "127.0.0.1:8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Metrics server address (default: metrics.addr)")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (reply drafts, calendar entries). Default is read-only mode.")
	cmd.Flags().StringVar(&opts.eventOrigins, "event-origins", "", "Comma-separated origins allowed to open the /events stream. Can also use "+config.EnvPrefix+"_EVENTS_ALLOWED_ORIGINS.")
	cmd.Flags().BoolVar(&opts.eventResults, "event-results", false, "Include generated text and item context in /events messages")
	cmd.Flags().StringVar(&opts.allowedEmails, "oauth-allowed-emails", "", "Comma-separated Google accounts allowed to use the HTTP transports (default: identity.email). Can also use "+config.EnvPrefix+"_OAUTH_ALLOWED_EMAILS.")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Public base URL announced to OAuth clients (default: http://<http-addr>)")
	cmd.Flags().DurationVar(&opts.startTimeout, "start-timeout", 5*time.Second, "How long to wait for the HTTP listeners to come up")
	cmd.Flags().DurationVar(&opts.shutdownGrace, "shutdown-timeout", server.DefaultShutdownTimeout, "Grace period for in-flight requests on shutdown")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	switch opts.transport {
	case transportStdio, server.TransportSSE, server.TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", opts.transport)
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = true
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	a, err := newApp(cmd, []app.Option{app.WithInstrumentation(instrConfig)})
	if err != nil {
		return err
	}
	defer closeApp(a)
	logger := a.Logger
	if metricsExporter, tracingExporter := a.Provider.Exporters(); metricsExporter != "" {
		logger.Info("instrumentation enabled",
			slog.String("metrics_exporter", metricsExporter),
			slog.String("tracing_exporter", tracingExporter))
	}

	mcpSrv := mcpserver.NewMCPServer("inboxassist", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	readOnly := !opts.yolo
	if readOnly {
		logger.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with WRITE operations enabled (--yolo flag is set)")
	}

	if err := registerAllTools(mcpSrv, a, readOnly); err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.transport == transportStdio {
		return runStdioServer(ctx, mcpSrv)
	}

	metricsServer, err := startMetricsServer(a, opts)
	if err != nil {
		return err
	}
	if metricsServer != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	return runHTTPServer(ctx, mcpSrv, a, opts)
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
	case <-ctx.Done():
	}
	return nil
}

// startMetricsServer starts the Prometheus endpoint when metrics are enabled
// and the provider exports to Prometheus. It returns nil otherwise.
func startMetricsServer(a *app.App, opts serveOptions) (*server.MetricsServer, error) {
	if !a.Config.Metrics.Enabled || !a.Provider.Enabled() || !a.Provider.PrometheusEnabled() {
		return nil, nil
	}
	addr := opts.metricsAddr
	if addr == "" {
		addr = a.Config.Metrics.Addr
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		Enabled:                 true,
		InstrumentationProvider: a.Provider,
		Logger:                  a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		a.Logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(opts.startTimeout):
		return nil, errors.New("metrics server startup timed out")
	}
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, a *app.App, opts serveOptions) error {
	hub := server.NewEventHub(
		server.WithEventLogger(a.Logger),
		server.WithResults(opts.eventResults),
		server.WithAllowedOrigins(parseCommaSeparatedList(opts.eventOrigins)...),
	)
	unsubscribe := a.Registry.Subscribe(hub)
	defer func() {
		unsubscribe()
		hub.Close()
	}()

	auth, err := newAuthenticator(a, opts)
	if err != nil {
		return err
	}

	health := server.NewHealthChecker(a, a.Inference)
	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPServerConfig{
		Transport: opts.transport,
		Health:    health,
		Events:    hub,
		Auth:      auth,
		Metrics:   a.Provider.Metrics(),
		Logger:    a.Logger,
	})
	if err != nil {
		return err
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(opts.httpAddr, ready); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
		health.SetReady(true)
	case err := <-serverDone:
		return fmt.Errorf("server failed to start: %w", err)
	case <-time.After(opts.startTimeout):
		return errors.New("server startup timed out")
	}

	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

// newAuthenticator returns the guard for the HTTP transports. It is nil only
// for a loopback listener without any allowed account.
func newAuthenticator(a *app.App, opts serveOptions) (*server.Authenticator, error) {
	allowed := parseCommaSeparatedList(opts.allowedEmails)
	if len(allowed) == 0 && a.Config.Identity.Email != "" {
		allowed = []string{a.Config.Identity.Email}
	}
	if len(allowed) == 0 {
		if !server.IsLoopback(opts.httpAddr) {
			return nil, fmt.Errorf("refusing to serve on %s without authentication: set --oauth-allowed-emails or identity.email", opts.httpAddr)
		}
		a.Logger.Warn("no allowed accounts configured, MCP endpoints are open to local clients",
			slog.String("addr", opts.httpAddr))
		return nil, nil
	}

	baseURL := opts.baseURL
	if baseURL == "" {
		baseURL = "http://" + opts.httpAddr
	}
	auth, err := server.NewAuthenticator(server.AuthConfig{
		AllowedEmails: allowed,
		Resource:      baseURL,
		Logger:        a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}
	a.Logger.Info("MCP endpoints require a Google access token",
		slog.Int("allowed_accounts", len(allowed)))
	return auth, nil
}

// registerAllTools registers every tool group and the resources. In
// read-only mode tools that write to a mailbox or calendar are left out.
func registerAllTools(mcpSrv *mcpserver.MCPServer, a *app.App, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Assistant",
			register: func() error {
				return assistant_tools.RegisterAssistantTools(mcpSrv, a, readOnly)
			},
		},
		{
			name: "Inference",
			register: func() error {
				return inference_tools.RegisterInferenceTools(mcpSrv, a)
			},
		},
		{
			name: "Google",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, a)
			},
		},
		{
			name: "Resources",
			register: func() error {
				return resources.RegisterResources(mcpSrv, a)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

// parseCommaSeparatedList parses a comma-separated string into a slice,
// trimming whitespace from each element and filtering out empty strings.
// Returns nil if the input is empty or contains only whitespace/commas.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
