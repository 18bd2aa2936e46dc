// Package google_tools provides MCP tools for Google OAuth authentication.
//
// The Gmail and Calendar item sources need a token per account. The flow:
//  1. Call google_get_auth_url to get the authorization URL
//  2. The user visits the URL and authorizes access
//  3. Call google_save_auth_code with the code from the redirect
//
// Tokens live in the system keyring and are refreshed as needed.
package google_tools
