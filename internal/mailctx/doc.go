// Package mailctx extracts a normalized Context from a host item and renders
// it as the German text block the model sees.
//
// Extraction is failure tolerant: recipient lookups that fail become empty
// lists and an unreadable body becomes a fixed placeholder. Only an item of
// an unsupported kind is an error. Conversation history is read through a
// host.ThreadSource; the default source reports host.ErrNotImplemented, which
// is kept on Context.ThreadErr instead of being returned.
package mailctx
