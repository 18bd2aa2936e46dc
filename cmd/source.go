package cmd

import (
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/config"
)

// sourceFlags select the item a command runs against.
type sourceFlags struct {
	eml           string
	gmail         string
	imapUID       uint32
	imapAddr      string
	imapUser      string
	calendarEvent string
	account       string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.eml, "eml", "", "Path of an RFC 5322 message file (.eml)")
	flags.StringVar(&f.gmail, "gmail", "", "Gmail message ID")
	flags.Uint32Var(&f.imapUID, "imap-uid", 0, "UID of a message in the IMAP mailbox")
	flags.StringVar(&f.imapAddr, "imap-addr", "", "IMAP server address host:port (overrides imap.addr)")
	flags.StringVar(&f.imapUser, "imap-user", "", "IMAP user name (overrides imap.user)")
	flags.StringVar(&f.calendarEvent, "calendar-event", "", "Google Calendar event ID")
	flags.StringVar(&f.account, "account", "", "Google account name (default: google.account)")
	cmd.MarkFlagsMutuallyExclusive("eml", "gmail", "imap-uid", "calendar-event")
	cmd.MarkFlagsOneRequired("eml", "gmail", "imap-uid", "calendar-event")
}

// apply copies the IMAP overrides into cfg.
func (f *sourceFlags) apply(cfg *config.Config) {
	if f.imapAddr != "" {
		cfg.IMAP.Addr = f.imapAddr
	}
	if f.imapUser != "" {
		cfg.IMAP.User = f.imapUser
	}
}

func (f *sourceFlags) source() app.Source {
	return app.Source{
		EML:             f.eml,
		GmailID:         f.gmail,
		IMAPUID:         f.imapUID,
		CalendarEventID: f.calendarEvent,
		Account:         f.account,
	}
}
