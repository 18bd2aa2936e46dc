package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxassist/internal/credential"
)

// ErrNoToken is returned when an account has never been authorized.
var ErrNoToken = errors.New("no Google OAuth token for account")

// TokenProvider is an interface for providing OAuth tokens for Google APIs.
type TokenProvider interface {
	// GetTokenForAccount retrieves an OAuth token for the specified account
	GetTokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount checks if a token exists for the specified account
	HasTokenForAccount(account string) bool
}

// TokenSaver is implemented by providers that can store refreshed tokens.
type TokenSaver interface {
	SaveTokenForAccount(account string, tok *oauth2.Token) error
}

// SecretStore is the part of credential.Store the provider needs.
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// KeyringTokenProvider keeps tokens as JSON in the keyring, one entry per
// account.
type KeyringTokenProvider struct {
	store SecretStore
}

// NewKeyringTokenProvider creates a provider backed by store.
func NewKeyringTokenProvider(store SecretStore) *KeyringTokenProvider {
	return &KeyringTokenProvider{store: store}
}

// GetTokenForAccount loads the stored token of account.
func (p *KeyringTokenProvider) GetTokenForAccount(_ context.Context, account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := p.store.Get(credential.GoogleTokenKey(account))
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return nil, fmt.Errorf("%w %q; run 'inboxassist auth google'", ErrNoToken, account)
		}
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, fmt.Errorf("decoding stored token for %q: %w", account, err)
	}
	return &tok, nil
}

// HasTokenForAccount reports whether a token is stored for account.
func (p *KeyringTokenProvider) HasTokenForAccount(account string) bool {
	_, err := p.GetTokenForAccount(context.Background(), account)
	return err == nil
}

// SaveTokenForAccount stores tok for account.
func (p *KeyringTokenProvider) SaveTokenForAccount(account string, tok *oauth2.Token) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return p.store.Set(credential.GoogleTokenKey(account), string(data))
}

// Exchange trades an authorization code for a token and stores it.
func (p *KeyringTokenProvider) Exchange(ctx context.Context, cfg *oauth2.Config, account, code string) error {
	if err := validateAccountName(account); err != nil {
		return err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return p.SaveTokenForAccount(account, tok)
}
