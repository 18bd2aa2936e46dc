// Package assistant_tools exposes the assistant actions as MCP tools:
//   - assistant_run_action runs analyze, summarize, reply, translate,
//     calendar or custom against an item
//   - assistant_reply generates a reply and delivers it to the item's reply
//     surface (a .reply.eml file, an IMAP draft or a Gmail draft)
//   - assistant_list_styles lists the reply style presets
//
// Items are addressed with the source parameters of common.SourceOptions.
package assistant_tools
