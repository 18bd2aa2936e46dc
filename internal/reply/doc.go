// Package reply generates answers to mail items and writes them straight
// into the mail client's reply surface.
//
// Extraction always follows the injector's thread setting, so the whole
// conversation can inform the answer. Style presets (formal, friendly,
// short, detailed) swap in a matching prompt and generation overrides.
package reply
