// Package host describes the mail client the assistant runs against.
//
// Items are a tagged variant: Item.Kind selects between EmailItem and
// AppointmentItem. Write-back surfaces (reply form, compose selection,
// new-appointment form) are optional capabilities found by type assertion
// on a Host. Adapters for .eml files, IMAP, Gmail and Google Calendar live in
// their own packages; hosttest has in-memory fakes.
package host
