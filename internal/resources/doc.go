// Package resources provides read-only MCP resources: the reply style
// presets, the prompt template of every action and the effective
// configuration with secrets redacted.
package resources
