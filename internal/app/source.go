package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/teemow/inboxassist/internal/eml"
	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/host"
)

// ErrNoSource is returned by Open when no source field is set.
var ErrNoSource = errors.New("no item source given: use an eml path, a gmail id, an imap uid or a calendar event id")

// ErrMailPath is returned by MailPath for paths MCP clients may not open.
var ErrMailPath = errors.New("eml path not allowed")

// Source selects the item an action runs against. Exactly one field must be
// set.
type Source struct {
	EML             string `json:"eml,omitempty"`
	GmailID         string `json:"gmail_id,omitempty"`
	IMAPUID         uint32 `json:"imap_uid,omitempty"`
	CalendarEventID string `json:"calendar_event_id,omitempty"`
	// Account is the Google account for GmailID and CalendarEventID; empty
	// means google.account.
	Account string `json:"account,omitempty"`
}

func (s Source) count() int {
	n := 0
	for _, set := range []bool{s.EML != "", s.GmailID != "", s.IMAPUID != 0, s.CalendarEventID != ""} {
		if set {
			n++
		}
	}
	return n
}

// Validate checks that exactly one source is set.
func (s Source) Validate() error {
	switch s.count() {
	case 0:
		return ErrNoSource
	case 1:
		return nil
	default:
		return errors.New("only one item source may be given")
	}
}

// MailPath resolves an eml path given by an MCP client. The file must have
// the .eml extension and lie inside mail.dir once symlinks are resolved.
// Relative paths are taken relative to mail.dir.
func (a *App) MailPath(path string) (string, error) {
	root := a.Config.Mail.Dir
	if root == "" {
		return "", fmt.Errorf("%w: eml sources are disabled, set mail.dir", ErrMailPath)
	}
	if !strings.EqualFold(filepath.Ext(path), ".eml") {
		return "", fmt.Errorf("%w: %s is not an .eml file", ErrMailPath, path)
	}

	root, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("mail.dir: %w", err)
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("mail.dir: %w", err)
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	resolved, err = filepath.Abs(resolved)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside mail.dir", ErrMailPath, path)
	}
	return resolved, nil
}

// Identity is the configured sender of replies and drafts.
func (a *App) Identity() host.Identity {
	return host.Identity{DisplayName: a.Config.Identity.Name, Address: a.Config.Identity.Email}
}

// Open loads the item named by src together with the host surfaces that
// belong to it.
func (a *App) Open(ctx context.Context, src Source) (host.Item, host.Host, error) {
	if err := src.Validate(); err != nil {
		return nil, nil, err
	}
	if a.IsClosed() {
		return nil, nil, ErrClosed
	}

	switch {
	case src.EML != "":
		fh, err := eml.OpenFileHost(src.EML, eml.WithFrom(a.Identity()))
		if err != nil {
			return nil, nil, err
		}
		return fh.Item(), fh, nil

	case src.GmailID != "":
		client, err := a.GmailClient(src.Account)
		if err != nil {
			return nil, nil, fmt.Errorf("gmail: %w", err)
		}
		msg, err := client.Item(ctx, src.GmailID)
		if err != nil {
			return nil, nil, err
		}
		return msg, client.Host(msg, gmail.WithFrom(a.Identity())), nil

	case src.IMAPUID != 0:
		client, err := a.IMAPClient()
		if err != nil {
			return nil, nil, fmt.Errorf("imap: %w", err)
		}
		msg, err := client.FetchItem(ctx, src.IMAPUID)
		if err != nil {
			return nil, nil, err
		}
		return msg, client.Host(msg, a.Identity()), nil

	default:
		client, err := a.CalendarClient(src.Account)
		if err != nil {
			return nil, nil, fmt.Errorf("calendar: %w", err)
		}
		event, err := client.Appointment(ctx, client.CalendarID(), src.CalendarEventID)
		if err != nil {
			return nil, nil, err
		}
		return event, client, nil
	}
}

// AppointmentForm returns the surface calendar entries are created on. A
// host that already has one is returned as is; otherwise the Google
// Calendar of account is used.
func (a *App) AppointmentForm(h host.Host, account string) (host.AppointmentForm, error) {
	if form, ok := h.(host.AppointmentForm); ok {
		return form, nil
	}
	client, err := a.CalendarClient(account)
	if err != nil {
		return nil, err
	}
	return client, nil
}
