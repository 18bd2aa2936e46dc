package google_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/app"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/tools/common"
)

// RegisterGoogleTools registers the Google OAuth tools with the MCP server.
func RegisterGoogleTools(s *mcpserver.MCPServer, a *app.App) error {
	if a == nil {
		return errors.New("app is required")
	}

	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize Gmail and Calendar access for a specific account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured google.account). Used to manage multiple Google accounts."),
		),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", a,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(ctx, request, a)
		}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Save the OAuth authorization code to complete Gmail and Calendar authentication for a specific account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: the configured google.account). Used to manage multiple Google accounts."),
		),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandler("google_save_auth_code", a,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, a)
		}))

	return nil
}

func accountArg(args map[string]any, a *app.App) string {
	if account := common.StringArg(args, "account"); account != "" {
		return account
	}
	return a.Config.Google.Account
}

func handleGetAuthURL(_ context.Context, request mcp.CallToolRequest, a *app.App) (*mcp.CallToolResult, error) {
	if a.Config.Google.ClientID == "" {
		return mcp.NewToolResultError("google.client_id is not configured"), nil
	}
	account := accountArg(request.GetArguments(), a)
	authURL := google.AuthURL(google.OAuthConfig(a.Config.Google.ClientID, a.Config.Google.ClientSecret), account)

	result := fmt.Sprintf(`To authorize Gmail and Calendar access for account "%s":

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Gmail and Calendar
4. Copy the code parameter from the address you are redirected to

5. Call the google_save_auth_code tool with the code and account name to complete authentication`, account, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, a *app.App) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := accountArg(args, a)

	authCode := common.StringArg(args, "authCode")
	if authCode == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	tokens, err := a.TokenProvider()
	if err != nil {
		return common.ErrorResult("cannot store token", err), nil
	}
	oauthCfg := google.OAuthConfig(a.Config.Google.ClientID, a.Config.Google.ClientSecret)
	if err := tokens.Exchange(ctx, oauthCfg, account, authCode); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save authorization code for account %s: %v", account, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Authorization successful for account '%s'. Gmail and Calendar can now be used as item sources.", account)), nil
}
