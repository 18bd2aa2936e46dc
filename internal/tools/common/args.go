package common

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/inboxassist/internal/app"
)

// StringArg returns the string argument name or "" when it is missing or
// not a string.
func StringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// SourceOptions declares the item source parameters on a tool.
func SourceOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("eml",
			mcp.Description("Path of an RFC 5322 message file (.eml) inside the configured mail directory"),
		),
		mcp.WithString("gmail_id",
			mcp.Description("Gmail message ID"),
		),
		mcp.WithNumber("imap_uid",
			mcp.Description("UID of a message in the configured IMAP mailbox"),
		),
		mcp.WithString("calendar_event_id",
			mcp.Description("Google Calendar event ID"),
		),
		mcp.WithString("account",
			mcp.Description("Google account name (default: the configured account)"),
		),
	}
}

// SourceFromArgs reads the parameters declared by SourceOptions. Exactly one
// source must be given.
func SourceFromArgs(args map[string]any) (app.Source, error) {
	src := app.Source{
		EML:             StringArg(args, "eml"),
		GmailID:         StringArg(args, "gmail_id"),
		CalendarEventID: StringArg(args, "calendar_event_id"),
		Account:         StringArg(args, "account"),
	}
	if v, ok := args["imap_uid"]; ok && v != nil {
		uid, err := uidArg(v)
		if err != nil {
			return app.Source{}, err
		}
		src.IMAPUID = uid
	}
	return src, src.Validate()
}

func uidArg(v any) (uint32, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("imap_uid must be a number: %w", err)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("imap_uid must be a number")
	}
	if f < 1 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("imap_uid must be a positive integer, got %v", v)
	}
	return uint32(f), nil
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ErrorResult reports err to the client as a tool error.
func ErrorResult(format string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format+": %v", err))
}
