// Package credential stores secrets (the inference API key, Google OAuth
// tokens and IMAP passwords) in the operating system keyring.
package credential
