package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/calendar"
	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/credential"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/imap"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/mailctx"
	"github.com/teemow/inboxassist/internal/reply"
)

// ErrClosed is returned by accessors after Close.
var ErrClosed = errors.New("app is closed")

// Option configures New.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	instrumentation *instrumentation.Config
	secrets         *credential.Store
	httpClient      *http.Client
	googleEndpoints map[string]string
}

// WithLogger sets the root logger. By default a text logger on stderr is
// used, at debug level when server.debug is set.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInstrumentation overrides the instrumentation configuration read from
// the environment.
func WithInstrumentation(cfg instrumentation.Config) Option {
	return func(o *options) {
		o.instrumentation = &cfg
	}
}

// WithSecrets sets the credential store instead of opening the system
// keyring.
func WithSecrets(store *credential.Store) Option {
	return func(o *options) {
		o.secrets = store
	}
}

// WithHTTPClient sets the HTTP client of the inference client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithGoogleEndpoint points the Gmail ("gmail") or Calendar ("calendar")
// client at another base URL, mainly for tests.
func WithGoogleEndpoint(api, endpoint string) Option {
	return func(o *options) {
		if o.googleEndpoints == nil {
			o.googleEndpoints = map[string]string{}
		}
		o.googleEndpoints[api] = endpoint
	}
}

// App holds the assistant's components.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Provider     *instrumentation.Provider
	Audit        *instrumentation.AuditLogger
	Secrets      *credential.Store
	Inference    *inference.Client
	Extractor    *mailctx.Extractor
	Registry     *actions.Registry
	Orchestrator *actions.Orchestrator
	Injector     *reply.Injector

	ctx             context.Context
	cancel          context.CancelFunc
	googleEndpoints map[string]string

	mu              sync.Mutex
	gmailClients    map[string]*gmail.Client
	calendarClients map[string]*calendar.Client
	closed          bool
}

// New builds an App from cfg. A keyring that cannot be opened is not fatal;
// secrets then have to come from the configuration.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	// 1. logger
	logger := o.logger
	if logger == nil {
		logger = logging.NewCLILogger(os.Stderr, cfg.Server.Debug)
	}

	// 2. instrumentation
	instCfg := instrumentation.DefaultConfig()
	if o.instrumentation != nil {
		instCfg = *o.instrumentation
	}
	provider, err := instrumentation.NewProvider(ctx, instCfg, instrumentation.WithProviderLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	audit := instrumentation.NewAuditLoggerWithConfig(logger, instCfg.AuditLogging)

	// 3. credentials
	secrets := o.secrets
	if secrets == nil {
		secrets, err = credential.Open("")
		if err != nil {
			logger.Warn("keyring unavailable, secrets must come from the configuration", logging.Err(err))
			secrets = nil
		}
	}

	// 4. inference client
	var getter config.SecretGetter
	if secrets != nil {
		getter = secrets
	}
	apiKey, err := cfg.ResolveAPIKey(getter)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	infOpts := []inference.Option{
		inference.WithLogger(logger),
		inference.WithMetrics(provider.Metrics()),
	}
	if o.httpClient != nil {
		infOpts = append(infOpts, inference.WithHTTPClient(o.httpClient))
	}
	inf := inference.New(cfg.Inference(apiKey), infOpts...)

	// 5. extractor
	extractor := mailctx.NewExtractor(cfg.Context, mailctx.WithLogger(logger))

	// 6. orchestrator
	registry := actions.NewRegistry()
	orchestrator := actions.New(inf, extractor, cfg.Actions(),
		actions.WithLogger(logger),
		actions.WithMetrics(provider.Metrics()),
		actions.WithAuditLogger(audit),
		actions.WithRegistry(registry))

	// 7. injector
	injector := reply.New(inf, extractor, cfg.ReplyInjector(),
		reply.WithLogger(logger),
		reply.WithMetrics(provider.Metrics()),
		reply.WithAuditLogger(audit),
		reply.WithRegistry(registry))

	appCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	return &App{
		Config:          cfg,
		Logger:          logger,
		Provider:        provider,
		Audit:           audit,
		Secrets:         secrets,
		Inference:       inf,
		Extractor:       extractor,
		Registry:        registry,
		Orchestrator:    orchestrator,
		Injector:        injector,
		ctx:             appCtx,
		cancel:          cancel,
		googleEndpoints: o.googleEndpoints,
		gmailClients:    make(map[string]*gmail.Client),
		calendarClients: make(map[string]*calendar.Client),
	}, nil
}

// Context is cancelled by Close. Cached clients are bound to it.
func (a *App) Context() context.Context {
	return a.ctx
}

// IsClosed reports whether Close has been called.
func (a *App) IsClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Close releases the components in reverse construction order. It is safe
// to call more than once.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.gmailClients = map[string]*gmail.Client{}
	a.calendarClients = map[string]*calendar.Client{}
	a.mu.Unlock()

	a.cancel()
	if err := a.Provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown instrumentation: %w", err)
	}
	return nil
}

// account returns the configured account when account is empty.
func (a *App) account(account string) string {
	if account == "" {
		return a.Config.Google.Account
	}
	return account
}

// TokenProvider returns the keyring-backed Google token provider.
func (a *App) TokenProvider() (*google.KeyringTokenProvider, error) {
	if a.Secrets == nil {
		return nil, errors.New("no keyring available for Google tokens")
	}
	return google.NewKeyringTokenProvider(a.Secrets), nil
}

// googleHTTPClient returns an authorized client bound to the App context.
func (a *App) googleHTTPClient(account string) (*http.Client, error) {
	tokens, err := a.TokenProvider()
	if err != nil {
		return nil, err
	}
	oauthCfg := google.OAuthConfig(a.Config.Google.ClientID, a.Config.Google.ClientSecret)
	return google.HTTPClient(a.ctx, oauthCfg, tokens, account)
}

// GmailClient returns the Gmail client for account, creating and caching it
// on first use. An empty account means google.account.
func (a *App) GmailClient(account string) (*gmail.Client, error) {
	account = a.account(account)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	if client, ok := a.gmailClients[account]; ok {
		return client, nil
	}

	hc, err := a.googleHTTPClient(account)
	if err != nil {
		return nil, err
	}
	opts := []gmail.Option{gmail.WithLogger(a.Logger)}
	if ep := a.googleEndpoints["gmail"]; ep != "" {
		opts = append(opts, gmail.WithEndpoint(ep))
	}
	client, err := gmail.NewClient(a.ctx, hc, opts...)
	if err != nil {
		return nil, err
	}
	a.gmailClients[account] = client
	return client, nil
}

// CalendarClient returns the Calendar client for account, creating and
// caching it on first use.
func (a *App) CalendarClient(account string) (*calendar.Client, error) {
	account = a.account(account)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	if client, ok := a.calendarClients[account]; ok {
		return client, nil
	}

	hc, err := a.googleHTTPClient(account)
	if err != nil {
		return nil, err
	}
	opts := []calendar.Option{
		calendar.WithLogger(a.Logger),
		calendar.WithCalendarID(a.Config.Google.CalendarID),
	}
	if ep := a.googleEndpoints["calendar"]; ep != "" {
		opts = append(opts, calendar.WithEndpoint(ep))
	}
	client, err := calendar.NewClient(a.ctx, hc, opts...)
	if err != nil {
		return nil, err
	}
	a.calendarClients[account] = client
	return client, nil
}

// IMAPClient returns a client for the configured IMAP account. The password
// comes from imap.password or the keyring.
func (a *App) IMAPClient() (*imap.Client, error) {
	if a.Config.IMAP.Addr == "" {
		return nil, errors.New("imap.addr is not configured")
	}
	var getter config.SecretGetter
	if a.Secrets != nil {
		getter = a.Secrets
	}
	password, err := a.Config.ResolveIMAPPassword(getter)
	if err != nil {
		return nil, err
	}
	return imap.New(imap.Config{
		Addr:          a.Config.IMAP.Addr,
		User:          a.Config.IMAP.User,
		Password:      password,
		TLS:           a.Config.IMAP.TLS,
		Insecure:      a.Config.IMAP.Insecure,
		Mailbox:       a.Config.IMAP.Mailbox,
		DraftsMailbox: a.Config.IMAP.DraftsMailbox,
	}, imap.WithLogger(a.Logger)), nil
}
