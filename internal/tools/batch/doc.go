// Package batch provides helpers for MCP tools that take one or many
// inputs, such as inference_generate_batch. Inputs may arrive as a string,
// an array or a JSON-encoded array; per-entry results are aggregated under
// a batch id.
package batch
