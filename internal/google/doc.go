// Package google provides OAuth2 authentication and token management for
// the Gmail and Calendar adapters.
//
// Tokens are kept in the system keyring, one JSON entry per account name, and
// refreshed tokens are written back transparently by HTTPClient.
package google
