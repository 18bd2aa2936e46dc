package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

// ServiceName is the keyring service all secrets are stored under.
const ServiceName = "inboxassist"

// Well-known keys.
const (
	KeyInferenceAPIKey = "inference-api-key"
	keyGoogleToken     = "google-token:"
	keyIMAPPassword    = "imap-password:"
)

// GoogleTokenKey is the key of the stored OAuth token for a Google account.
func GoogleTokenKey(account string) string {
	return keyGoogleToken + account
}

// IMAPPasswordKey is the key of the stored IMAP password for a user.
func IMAPPasswordKey(user string) string {
	return keyIMAPPassword + user
}

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an open keyring. Tests pass keyring.NewArrayKeyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// DefaultFileDir is where the encrypted file backend keeps secrets when no
// system keyring is available.
func DefaultFileDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "credentials")
	}
	return filepath.Join(dir, ServiceName, "credentials")
}

// Open opens the system keyring, falling back to an encrypted file store in
// fileDir (DefaultFileDir when empty).
func Open(fileDir string) (*Store, error) {
	if fileDir == "" {
		fileDir = DefaultFileDir()
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(ServiceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewStore(ring), nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: ServiceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Backends that report missing keys yield ErrNotFound.
func (s *Store) Delete(key string) error {
	if err := s.ring.Remove(key); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("deleting credential %q: %w", key, ErrNotFound)
		}
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Has reports whether key has a stored value.
func (s *Store) Has(key string) bool {
	_, err := s.ring.Get(key)
	return err == nil
}
