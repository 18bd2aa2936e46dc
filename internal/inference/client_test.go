package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sleepRecorder replaces the backoff wait and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cfg Config, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	if cfg.Model == "" {
		cfg.Model = "llm_model"
	}
	return New(cfg, opts...)
}

func TestGenerateText_RequestShape(t *testing.T) {
	var (
		gotPath   string
		gotMethod string
		gotHeader http.Header
		gotBody   map[string]any
	)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `{"responses":[{"text":"Hallo"},{"text":"ignored"}]}`)
	}, Config{APIKey: "secret"})

	resp, err := client.GenerateText(context.Background(), "Sag hallo", Parameters{})
	require.NoError(t, err)

	assert.Equal(t, "Hallo", resp.Text())
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v2/models/llm_model/generate", gotPath)
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", gotHeader.Get("Authorization"))

	assert.Equal(t, map[string]any{
		"prompt":           "Sag hallo",
		"max_tokens":       float64(1024),
		"temperature":      0.7,
		"top_p":            1.0,
		"stop_sequences":   []any{},
		"return_full_text": false,
	}, gotBody)
}

func TestGenerateText_NoCredentialNoAuthHeader(t *testing.T) {
	var auth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"responses":[{"text":"ok"}]}`)
	}, Config{})

	_, err := client.GenerateText(context.Background(), "p", Parameters{})
	require.NoError(t, err)
	assert.Empty(t, auth)
}

func TestGenerateText_ExplicitZeroValuesAreSent(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = io.WriteString(w, `"bare"`)
	}, Config{})

	resp, err := client.GenerateText(context.Background(), "p", Parameters{
		Temperature:    Float(0),
		StopSequences:  []string{"###"},
		ReturnFullText: Bool(true),
	})
	require.NoError(t, err)

	assert.Equal(t, "bare", resp.Text())
	assert.Equal(t, 0.0, gotBody["temperature"])
	assert.Equal(t, []any{"###"}, gotBody["stop_sequences"])
	assert.Equal(t, true, gotBody["return_full_text"])
	assert.Equal(t, float64(1024), gotBody["max_tokens"])
}

func TestRetry_ExhaustsAttemptsWithLinearBackoff(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
		retryDelay time.Duration
		wantDelays []time.Duration
	}{
		{"default three attempts", 3, time.Second, []time.Duration{time.Second, 2 * time.Second}},
		{"five attempts", 5, 100 * time.Millisecond, []time.Duration{
			100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 400 * time.Millisecond,
		}},
		{"single attempt never sleeps", 1, time.Second, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			rec := &sleepRecorder{}
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				http.Error(w, "boom", http.StatusInternalServerError)
			}, Config{MaxRetries: tt.maxRetries, RetryDelay: tt.retryDelay}, WithSleep(rec.sleep))

			_, err := client.GenerateText(context.Background(), "p", Parameters{})
			require.Error(t, err)

			var exhausted *ExhaustedRetriesError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, tt.maxRetries, exhausted.Attempts)
			assert.Equal(t, int32(tt.maxRetries), hits.Load())
			assert.Equal(t, tt.wantDelays, rec.delays)

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
			assert.Equal(t, "boom", httpErr.Body)
			assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
		})
	}
}

func TestRetry_AggregatedMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}, Config{}, WithSleep((&sleepRecorder{}).sleep))

	_, err := client.ModelInfo(context.Background())
	require.Error(t, err)
	assert.Equal(t, "all 3 request attempts failed; last error: HTTP error 503: model not loaded", err.Error())
}

func TestRetry_SucceedsAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	rec := &sleepRecorder{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"responses":[{"text":"done"}]}`)
	}, Config{RetryDelay: 10 * time.Millisecond}, WithSleep(rec.sleep))

	resp, err := client.GenerateText(context.Background(), "p", Parameters{})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, rec.delays)
}

func TestRetry_ClientErrorsAreRetriedToo(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}, Config{MaxRetries: 2}, WithSleep((&sleepRecorder{}).sleep))

	_, err := client.GenerateText(context.Background(), "p", Parameters{})
	require.Error(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRetry_MalformedBodyConsumesAttempt(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{not json`)
	}, Config{MaxRetries: 2}, WithSleep((&sleepRecorder{}).sleep))

	_, err := client.GenerateText(context.Background(), "p", Parameters{})
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, int32(2), hits.Load())
}

func TestTimeout_ClassifiedAndRetried(t *testing.T) {
	var hits atomic.Int32
	rec := &sleepRecorder{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Config{Timeout: 20 * time.Millisecond, MaxRetries: 2, RetryDelay: time.Second}, WithSleep(rec.sleep))

	_, err := client.GenerateText(context.Background(), "p", Parameters{})
	require.Error(t, err)

	assert.True(t, IsTimeout(err))
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "request timeout after 20ms", timeoutErr.Error())
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}

func TestCallerCancellationStopsRetries(t *testing.T) {
	var hits atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}, Config{MaxRetries: 5}, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	_, err := client.GenerateText(ctx, "p", Parameters{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), hits.Load())

	var exhausted *ExhaustedRetriesError
	assert.False(t, errors.As(err, &exhausted))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := New(Config{BaseURL: srv.URL, Model: "m", MaxRetries: 2}, WithSleep((&sleepRecorder{}).sleep))
	_, err := client.ListModels(context.Background())

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.False(t, IsTimeout(err))
	assert.Zero(t, StatusCode(err))
}

func TestTestConnection(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "ready",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"READY"}`)
			},
			want: true,
		},
		{
			name: "not ready",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"LOADING"}`)
			},
		},
		{
			name: "lowercase is not ready",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"status":"ready"}`)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `READY`)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				tt.handler(w, r)
			}, Config{MaxRetries: 1})

			assert.Equal(t, tt.want, client.TestConnection(context.Background()))
			assert.Equal(t, "/v2/health/ready", path)
		})
	}
}

func TestTestConnection_Refused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := New(Config{BaseURL: srv.URL, Model: "m", MaxRetries: 1})
	assert.False(t, client.TestConnection(context.Background()))
}

func TestGenerateBatch(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"array of envelopes", `[{"responses":[{"text":"a"}]},"b"]`, []string{"a", "b"}},
		{"single envelope", `{"responses":[{"text":"a"},{"text":"b"}]}`, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody map[string]any
			var gotPath string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				_, _ = io.WriteString(w, tt.response)
			}, Config{})

			resp, err := client.GenerateBatch(context.Background(), []string{"one", "two"}, Parameters{MaxTokens: Int(64)})
			require.NoError(t, err)

			texts := make([]string, len(resp))
			for i, r := range resp {
				texts[i] = r.Text()
			}
			assert.Equal(t, tt.want, texts)
			assert.Equal(t, "/v2/models/llm_model/generate_batch", gotPath)
			assert.Equal(t, []any{"one", "two"}, gotBody["prompts"])
			assert.NotContains(t, gotBody, "prompt")
			assert.Equal(t, float64(64), gotBody["max_tokens"])
		})
	}
}

func TestModelInfo(t *testing.T) {
	var method, path string
	var bodyLen int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		bodyLen = len(b)
		_, _ = io.WriteString(w, `{"name":"llm_model","versions":["1"],"platform":"python",
			"inputs":[{"name":"prompt","datatype":"BYTES","shape":[-1]}],"outputs":[],"extra":true}`)
	}, Config{})

	info, err := client.ModelInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "/v2/models/llm_model", path)
	assert.Zero(t, bodyLen)
	assert.Equal(t, "llm_model", info.Name)
	assert.Equal(t, []string{"1"}, info.Versions)
	assert.Equal(t, "python", info.Platform)
	require.Len(t, info.Inputs, 1)
	assert.Equal(t, TensorMetadata{Name: "prompt", DataType: "BYTES", Shape: []int64{-1}}, info.Inputs[0])
}

func TestListModels(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"envelope", `{"models":[{"name":"a"},{"name":"b"}]}`},
		{"bare array", `[{"name":"a"},{"name":"b"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v2/models", r.URL.Path)
				_, _ = io.WriteString(w, tt.response)
			}, Config{})

			models, err := client.ListModels(context.Background())
			require.NoError(t, err)
			require.Len(t, models, 2)
			assert.Equal(t, "a", models[0].Name)
			assert.Equal(t, "b", models[1].Name)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:8000/", Model: "llm_model", RetryDelay: -1})
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, DefaultMaxRetries, c.cfg.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, c.cfg.RetryDelay)
	assert.Equal(t, "http://localhost:8000", c.baseURL)
	assert.Equal(t, "llm_model", c.Model())
	assert.Equal(t, "/v2/models/llm_model", c.modelPath())
}

func TestListModels_CustomAPIVersion(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{"models":[]}`)
	}, Config{APIVersion: "v3"})

	_, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/v3/models", gotPath)
}
