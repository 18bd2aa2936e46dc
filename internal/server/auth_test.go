package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	mcpoauth "github.com/giantswarm/mcp-oauth"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/logging"
)

// userInfoServer answers for the tokens in users and rejects all others.
func userInfoServer(t *testing.T, users map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := users[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestAuthenticator(t *testing.T, userInfoURL string) *Authenticator {
	t.Helper()
	a, err := NewAuthenticator(AuthConfig{
		AllowedEmails: []string{" Bob@Example.com "},
		Resource:      "https://mail.example.com/",
		UserInfoURL:   userInfoURL,
		Logger:        logging.Discard().Logger(),
	})
	require.NoError(t, err)
	return a
}

func TestNewAuthenticator_RequiresAllowedEmails(t *testing.T) {
	_, err := NewAuthenticator(AuthConfig{AllowedEmails: []string{" ", ""}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed email")
}

func TestAuthenticator_Protect(t *testing.T) {
	userInfo, _ := userInfoServer(t, map[string]string{
		"good":       `{"email":"bob@example.com","email_verified":true,"name":"Bob"}`,
		"stranger":   `{"email":"eve@example.com","email_verified":true}`,
		"unverified": `{"email":"bob@example.com","email_verified":false}`,
	})
	a := newTestAuthenticator(t, userInfo.URL)

	var seen string
	handler := a.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := mcpoauth.UserInfoFromContext(r.Context())
		require.True(t, ok)
		seen = user.Email
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{name: "allowed account", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "scheme is case insensitive", header: "bearer good", wantStatus: http.StatusOK},
		{name: "no header", wantStatus: http.StatusUnauthorized, wantError: "missing_token"},
		{name: "basic auth", header: "Basic Ym9iOnB3", wantStatus: http.StatusUnauthorized, wantError: "missing_token"},
		{name: "rejected token", header: "Bearer forged", wantStatus: http.StatusUnauthorized, wantError: "invalid_token"},
		{name: "unverified email", header: "Bearer unverified", wantStatus: http.StatusUnauthorized, wantError: "invalid_token"},
		{name: "other account", header: "Bearer stranger", wantStatus: http.StatusForbidden, wantError: "access_denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, "bob@example.com", seen)
				return
			}
			assert.Empty(t, seen)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"),
					`resource_metadata="https://mail.example.com/.well-known/oauth-protected-resource"`)
			}
		})
	}
}

func TestAuthenticator_CachesValidatedTokens(t *testing.T) {
	userInfo, hits := userInfoServer(t, map[string]string{
		"good": `{"email":"bob@example.com","email_verified":true}`,
	})
	a := newTestAuthenticator(t, userInfo.URL)
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	handler := a.Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	call := func() int {
		req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, int32(1), hits.Load())

	now = now.Add(DefaultAuthCacheTTL)
	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, int32(2), hits.Load())
}

func TestHTTPServer_AuthGuardsMCPAndEvents(t *testing.T) {
	userInfo, _ := userInfoServer(t, map[string]string{
		"good": `{"email":"bob@example.com","email_verified":true}`,
	})
	s, err := NewHTTPServer(mcpserver.NewMCPServer("test", "1.0.0"), HTTPServerConfig{
		Transport: TransportStreamableHTTP,
		Health:    NewHealthChecker(nil, &fakeInference{ready: true}),
		Events:    NewEventHub(),
		Auth:      newTestAuthenticator(t, userInfo.URL),
		Logger:    logging.Discard().Logger(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/mcp", "/events"} {
		resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	status, _ := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)

	status, body := get(t, srv.URL+ProtectedResourcePath)
	assert.Equal(t, http.StatusOK, status)
	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &meta))
	assert.Equal(t, "https://mail.example.com/", meta["resource"])
	assert.Equal(t, []any{"https://accounts.google.com"}, meta["authorization_servers"])
}

func TestIsLoopback(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8080", true},
		{"[::1]:8080", true},
		{"localhost:8080", true},
		{":8080", false},
		{"0.0.0.0:8080", false},
		{"192.168.1.10:8080", false},
		{"mail.example.com:443", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLoopback(tt.addr))
		})
	}
}
