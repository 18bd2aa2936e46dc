// Package imap fetches messages from an IMAP mailbox as host email items and
// stores generated replies as drafts.
//
// Each operation opens its own connection, logs in, runs and logs out, so a
// Client holds no network state between calls. Messages are parsed with the
// eml package.
package imap
