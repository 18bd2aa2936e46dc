// Package common provides shared helpers for the MCP tool packages:
// instrumentation of handlers, argument parsing and the item source
// parameters every assistant tool accepts.
package common
