// Package cmd implements the command-line interface for inboxassist.
//
// This package provides the following commands:
//   - analyze, summarize, translate, calendar, custom: Run an action against one item
//   - reply: Generate a reply in a chosen style and write it to a reply draft
//   - models, model-info, health, generate: Talk to the inference service directly
//   - auth google: Authorize a Google account for Gmail and Calendar
//   - credential: Store secrets in the system keyring
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Every item command takes exactly one of --eml, --gmail, --imap-uid or
// --calendar-event.
package cmd
