package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	mcpoauth "github.com/giantswarm/mcp-oauth"
	"github.com/giantswarm/mcp-oauth/providers"
	"golang.org/x/oauth2"
)

const (
	// DefaultUserInfoURL validates Google access tokens.
	DefaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	// DefaultAuthCacheTTL bounds how long a validated token is trusted
	// without asking the userinfo endpoint again.
	DefaultAuthCacheTTL = 5 * time.Minute

	// ProtectedResourcePath serves the OAuth protected resource metadata
	// (RFC 9728).
	ProtectedResourcePath = "/.well-known/oauth-protected-resource"

	googleIssuer = "https://accounts.google.com"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// AuthConfig configures an Authenticator.
type AuthConfig struct {
	// AllowedEmails lists the Google accounts that may use the server.
	AllowedEmails []string
	// Resource is the public base URL announced in the resource metadata.
	Resource string
	// UserInfoURL defaults to DefaultUserInfoURL.
	UserInfoURL string
	// CacheTTL defaults to DefaultAuthCacheTTL.
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Authenticator admits requests that carry a Google access token of an
// allowed account. The caller is put into the request context as
// mcp-oauth user info.
type Authenticator struct {
	cfg     AuthConfig
	allowed map[string]bool

	mu    sync.Mutex
	cache map[string]cachedUser
	now   func() time.Time
}

type cachedUser struct {
	user    *providers.UserInfo
	expires time.Time
}

// NewAuthenticator creates an Authenticator. At least one allowed email is
// required.
func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	allowed := make(map[string]bool, len(cfg.AllowedEmails))
	for _, email := range cfg.AllowedEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			allowed[email] = true
		}
	}
	if len(allowed) == 0 {
		return nil, errors.New("at least one allowed email is required")
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = DefaultUserInfoURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultAuthCacheTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Authenticator{
		cfg:     cfg,
		allowed: allowed,
		cache:   make(map[string]cachedUser),
		now:     time.Now,
	}, nil
}

// Protect returns next guarded by bearer token validation.
func (a *Authenticator) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			a.unauthorized(w, errMissingToken)
			return
		}

		user, err := a.validate(r.Context(), token)
		if err != nil {
			a.cfg.Logger.Debug("rejected MCP request",
				slog.String("remote", r.RemoteAddr),
				slog.String("reason", err.Error()))
			a.unauthorized(w, err)
			return
		}
		if !a.allowed[strings.ToLower(user.Email)] {
			a.cfg.Logger.Warn("MCP request from account that is not allowed",
				slog.String("remote", r.RemoteAddr),
				slog.String("email", user.Email))
			writeAuthError(w, http.StatusForbidden, "access_denied", "account is not allowed to use this server")
			return
		}

		next.ServeHTTP(w, r.WithContext(mcpoauth.ContextWithUserInfo(r.Context(), user)))
	})
}

// ServeProtectedResourceMetadata tells clients to obtain tokens from Google.
func (a *Authenticator) ServeProtectedResourceMetadata(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"resource":                 a.cfg.Resource,
		"authorization_servers":    []string{googleIssuer},
		"bearer_methods_supported": []string{"header"},
		"scopes_supported":         []string{"openid", "email", "profile"},
	})
}

func (a *Authenticator) validate(ctx context.Context, token string) (*providers.UserInfo, error) {
	sum := sha256.Sum256([]byte(token))
	key := hex.EncodeToString(sum[:])

	a.mu.Lock()
	cached, ok := a.cache[key]
	a.mu.Unlock()
	if ok && a.now().Before(cached.expires) {
		return cached.user, nil
	}

	user, err := a.userInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	for k, c := range a.cache {
		if !a.now().Before(c.expires) {
			delete(a.cache, k)
		}
	}
	a.cache[key] = cachedUser{user: user, expires: a.now().Add(a.cfg.CacheTTL)}
	a.mu.Unlock()
	return user, nil
}

func (a *Authenticator) userInfo(ctx context.Context, token string) (*providers.UserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.cfg.HTTPClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", errInvalidToken, resp.StatusCode)
	}

	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, fmt.Errorf("%w: no verified email", errInvalidToken)
	}
	return &providers.UserInfo{Email: info.Email, Name: info.Name}, nil
}

func (a *Authenticator) unauthorized(w http.ResponseWriter, err error) {
	challenge := fmt.Sprintf(`Bearer resource_metadata=%q`, strings.TrimSuffix(a.cfg.Resource, "/")+ProtectedResourcePath)
	code := "invalid_token"
	if errors.Is(err, errMissingToken) {
		code = "missing_token"
	} else {
		challenge += `, error="invalid_token"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	writeAuthError(w, http.StatusUnauthorized, code, err.Error())
}

func writeAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// IsLoopback reports whether addr only listens on a loopback interface.
// An empty host listens on every interface.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
