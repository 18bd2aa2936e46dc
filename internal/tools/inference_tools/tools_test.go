package inference_tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/99designs/keyring"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/credential"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/tools/batch"
)

type recorded struct {
	Prompt      string   `json:"prompt"`
	Prompts     []string `json:"prompts"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
}

func newTestApp(t *testing.T, ready bool) (*app.App, *[]recorded) {
	t.Helper()
	var requests []recorded

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/models/llm_model/generate", func(w http.ResponseWriter, r *http.Request) {
		var body recorded
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, body)
		_, _ = io.WriteString(w, `{"responses":[{"text":"Antwort"}]}`)
	})
	mux.HandleFunc("/v2/models/llm_model/generate_batch", func(w http.ResponseWriter, r *http.Request) {
		var body recorded
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests = append(requests, body)
		// One answer short of the two prompts the test sends.
		_, _ = io.WriteString(w, `[{"responses":[{"text":"eins"}]}]`)
	})
	mux.HandleFunc("/v2/models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[{"name":"llm_model","platform":"vllm"}]}`)
	})
	mux.HandleFunc("/v2/models/llm_model", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"llm_model","versions":["1"]}`)
	})
	mux.HandleFunc("/v2/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"READY"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Server.URL = srv.URL
	cfg.Server.MaxRetries = 1

	a, err := app.New(context.Background(), cfg,
		app.WithLogger(logging.Discard().Logger()),
		app.WithInstrumentation(instrumentation.Config{}),
		app.WithSecrets(credential.NewStore(keyring.NewArrayKeyring(nil))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, &requests
}

func request(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	content, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return content.Text
}

func TestHandleGenerate(t *testing.T) {
	a, requests := newTestApp(t, true)

	result, err := handleGenerate(context.Background(), request(map[string]any{
		"prompt":      "Hallo?",
		"max_tokens":  float64(64),
		"temperature": float64(0),
	}), a)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	assert.Equal(t, "Antwort", text(t, result))

	require.Len(t, *requests, 1)
	got := (*requests)[0]
	assert.Equal(t, "Hallo?", got.Prompt)
	assert.Equal(t, 64, got.MaxTokens)
	assert.Equal(t, 0.0, got.Temperature)
	assert.Equal(t, 0.9, got.TopP)
}

func TestParametersFromArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "fractional max_tokens", args: map[string]any{"max_tokens": 1.5}, want: "max_tokens"},
		{name: "zero max_tokens", args: map[string]any{"max_tokens": float64(0)}, want: "max_tokens"},
		{name: "string temperature", args: map[string]any{"temperature": "hot"}, want: "temperature"},
		{name: "top_p above one", args: map[string]any{"top_p": 1.5}, want: "top_p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parametersFromArgs(tt.args, config.Default().Actions().DefaultParameters)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHandleGenerate_MissingPrompt(t *testing.T) {
	a, requests := newTestApp(t, true)

	result, err := handleGenerate(context.Background(), request(nil), a)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Empty(t, *requests)
}

func TestHandleGenerateBatch(t *testing.T) {
	a, requests := newTestApp(t, true)

	result, err := handleGenerateBatch(context.Background(), request(map[string]any{
		"prompts": `["erste Frage", "zweite Frage"]`,
	}), a)
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))

	var br batch.BatchResult
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &br))
	assert.NotEmpty(t, br.BatchID)
	assert.Equal(t, 2, br.Total)
	assert.Equal(t, 1, br.Successful)
	assert.Equal(t, 1, br.Failed)
	require.Len(t, br.Results, 2)
	assert.Equal(t, batch.Result{ID: "0", Status: batch.StatusSuccess, Result: "eins"}, br.Results[0])
	assert.Equal(t, "1", br.Results[1].ID)
	assert.Equal(t, batch.StatusError, br.Results[1].Status)

	require.Len(t, *requests, 1)
	assert.Equal(t, []string{"erste Frage", "zweite Frage"}, (*requests)[0].Prompts)
}

func TestHandleGenerateBatch_EmptyPrompts(t *testing.T) {
	a, _ := newTestApp(t, true)

	result, err := handleGenerateBatch(context.Background(), request(map[string]any{"prompts": []any{}}), a)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "prompts cannot be empty")
}

func TestHandleHealth(t *testing.T) {
	ready, _ := newTestApp(t, true)
	result := handleHealth(context.Background(), ready)
	assert.False(t, result.IsError)
	assert.Contains(t, text(t, result), "is ready (model llm_model)")

	down, _ := newTestApp(t, false)
	result = handleHealth(context.Background(), down)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "is not ready")
}
