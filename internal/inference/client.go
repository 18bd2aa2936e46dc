package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
)

// Defaults for zero-valued Config fields.
const (
	DefaultAPIVersion = "v2"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Config holds the connection parameters for the inference service.
type Config struct {
	// BaseURL is the service root, e.g. http://localhost:8000.
	BaseURL string
	// APIVersion is the first path segment of every endpoint.
	APIVersion string
	// Model is the model name used in /{version}/models/{model} paths.
	Model string
	// APIKey is sent as a bearer credential when non-empty.
	APIKey string
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// MaxRetries is the total number of attempts, not the number of retries
	// after the first one.
	MaxRetries int
	// RetryDelay is multiplied by the 1-based number of the failed attempt
	// to get the wait before the next one.
	RetryDelay time.Duration
	// Debug enables request/response diagnostics at debug level.
	Debug bool
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// Client talks to a text-generation inference service over JSON/HTTP.
// It is safe for concurrent use; concurrent calls share no mutable state.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
	sleep      SleepFunc
}

// New creates a Client. An empty APIVersion, zero Timeout and MaxRetries
// and a negative RetryDelay are replaced by their defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithOperation(c.logger, "inference").With(logging.Model(cfg.Model))
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

func (c *Client) path(elem string) string {
	return "/" + c.cfg.APIVersion + elem
}

func (c *Client) modelPath() string {
	return c.path("/models/" + url.PathEscape(c.cfg.Model))
}

// GenerateText sends a single prompt and returns the generated response.
func (c *Client) GenerateText(ctx context.Context, prompt string, params Parameters) (*GeneratedResponse, error) {
	body := generateRequest{Prompt: prompt, ResolvedParameters: params.Resolve()}

	var out GeneratedResponse
	err := c.do(ctx, instrumentation.OperationGenerate, http.MethodPost, c.modelPath()+"/generate", body,
		func(data []byte) error { return json.Unmarshal(data, &out) })
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateBatch sends several prompts in one request.
func (c *Client) GenerateBatch(ctx context.Context, prompts []string, params Parameters) ([]GeneratedResponse, error) {
	if prompts == nil {
		prompts = []string{}
	}
	body := batchRequest{Prompts: prompts, ResolvedParameters: params.Resolve()}

	var out []GeneratedResponse
	err := c.do(ctx, instrumentation.OperationGenerateBatch, http.MethodPost, c.modelPath()+"/generate_batch", body,
		func(data []byte) error {
			var err error
			out, err = decodeBatch(data)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ModelInfo returns the metadata of the configured model.
func (c *Client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	var out ModelInfo
	err := c.do(ctx, instrumentation.OperationModelInfo, http.MethodGet, c.modelPath(), nil,
		func(data []byte) error { return json.Unmarshal(data, &out) })
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModels returns all models served by the service.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	err := c.do(ctx, instrumentation.OperationListModels, http.MethodGet, c.path("/models"), nil,
		func(data []byte) error {
			var err error
			out, err = decodeModelList(data)
			return err
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TestConnection reports whether the service says it is ready. It never
// returns an error: every failure yields false.
func (c *Client) TestConnection(ctx context.Context) bool {
	var health healthStatus
	err := c.do(ctx, instrumentation.OperationTestConnection, http.MethodGet, c.path("/health/ready"), nil,
		func(data []byte) error { return json.Unmarshal(data, &health) })
	if err != nil {
		c.debug("connection test failed", logging.Err(err))
		return false
	}
	return health.Status == "READY"
}

// do runs the request under the retry policy. decode is applied to each 2xx
// body; a decode failure consumes the attempt like any transport failure.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, body any, decode func([]byte) error) error {
	start := time.Now()
	ctx, span := instrumentation.StartInferenceSpan(ctx, operation, endpoint,
		instrumentation.NewSpanAttributeBuilder().WithModel(c.cfg.Model).Build()...)
	defer span.End()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	c.debug("sending request",
		slog.String("method", method),
		logging.Endpoint(endpoint),
		slog.String("body", logging.Preview(string(payload))))

	finish := func(err error) error {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		c.metrics.RecordInferenceRequest(ctx, operation, c.cfg.Model, status, time.Since(start))
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		data, err := c.attempt(ctx, method, c.baseURL+endpoint, payload, decode)

		outcome := attemptOutcome(err)
		c.metrics.RecordInferenceAttempt(ctx, operation, outcome)
		instrumentation.AddSpanEvent(span, "attempt",
			attribute.Int(instrumentation.SpanAttrAttempts, attempt),
			attribute.String("outcome", outcome))

		if err == nil {
			c.debug("response received",
				logging.Endpoint(endpoint),
				logging.Attempt(attempt, c.cfg.MaxRetries),
				slog.String("body", logging.Preview(string(data))))
			return finish(nil)
		}

		// The caller gave up; further attempts cannot succeed.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return finish(ctxErr)
		}

		lastErr = err
		c.debug("attempt failed",
			logging.Endpoint(endpoint),
			logging.Attempt(attempt, c.cfg.MaxRetries),
			logging.Err(err))

		if attempt < c.cfg.MaxRetries {
			if err := c.sleep(ctx, c.cfg.RetryDelay*time.Duration(attempt)); err != nil {
				return finish(err)
			}
		}
	}

	return finish(&ExhaustedRetriesError{Attempts: c.cfg.MaxRetries, LastErr: lastErr})
}

// attempt performs one HTTP exchange under its own timeout.
func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, decode func([]byte) error) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, target, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if decode != nil {
		if err := decode(data); err != nil {
			return nil, &DecodeError{Err: err}
		}
	}
	return data, nil
}

// transportError classifies a failure without a usable response. Only a
// deadline on the attempt context, not on the caller's, counts as a timeout.
func (c *Client) transportError(ctx, attemptCtx context.Context, target string, err error) error {
	if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Endpoint: target, Timeout: c.cfg.Timeout}
	}
	return &NetworkError{Err: err}
}

func (c *Client) debug(msg string, attrs ...any) {
	if c.cfg.Debug {
		c.logger.Debug(msg, attrs...)
	}
}

func attemptOutcome(err error) string {
	var (
		timeoutErr *TimeoutError
		httpErr    *HTTPError
		decodeErr  *DecodeError
	)
	switch {
	case err == nil:
		return instrumentation.OutcomeSuccess
	case errors.As(err, &timeoutErr):
		return instrumentation.OutcomeTimeout
	case errors.As(err, &httpErr):
		return instrumentation.OutcomeHTTPError
	case errors.As(err, &decodeErr):
		return instrumentation.OutcomeDecodeError
	default:
		return instrumentation.OutcomeNetworkError
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
