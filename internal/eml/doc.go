// Package eml reads RFC 5322 message files as host email items and writes
// reply drafts in the same format.
//
// FileHost turns a message on disk into a host with a reply form (a sibling
// .reply.eml file) and a compose surface (a sibling .draft.txt file). The
// IMAP adapter reuses Parse and BuildReply.
package eml
