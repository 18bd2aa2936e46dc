package google

// DefaultOAuthScopes are the Google OAuth scopes inboxassist asks for.
//
// The scopes provide access to:
//   - Gmail: read messages and create reply drafts
//   - Google Calendar: read and create events
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.compose",
	"https://www.googleapis.com/auth/calendar.events",
}
