package google

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultRedirectURL is the loopback address the consent page redirects to.
// Nothing needs to listen there; the user copies the code parameter from the
// address bar.
const DefaultRedirectURL = "http://localhost"

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName checks that an account name is safe to use in keys.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}

// OAuthConfig returns the OAuth2 configuration for the Gmail and Calendar
// adapters.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  DefaultRedirectURL,
		Scopes:       DefaultOAuthScopes,
	}
}

// AuthURL returns the consent page URL. Offline access and a forced consent
// prompt make Google issue a refresh token every time.
func AuthURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HTTPClient returns an HTTP client authorized as account. Refreshed tokens
// are written back through provider when it can save them.
// The client uses HTTP/1.1 to avoid HTTP/2 protocol errors.
func HTTPClient(ctx context.Context, cfg *oauth2.Config, provider TokenProvider, account string) (*http.Client, error) {
	tok, err := provider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	src := cfg.TokenSource(ctx, tok)
	if saver, ok := provider.(TokenSaver); ok {
		src = &persistingSource{
			base:    src,
			last:    tok.AccessToken,
			persist: func(t *oauth2.Token) error { return saver.SaveTokenForAccount(account, t) },
		}
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(tok, src),
			Base:   &http.Transport{ForceAttemptHTTP2: false},
		},
	}, nil
}

// persistingSource saves every token that differs from the last one seen.
type persistingSource struct {
	base    oauth2.TokenSource
	last    string
	persist func(*oauth2.Token) error
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		if err := s.persist(tok); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
