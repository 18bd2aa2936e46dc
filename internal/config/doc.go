// Package config loads inboxassist's configuration from a YAML file, a .env
// file and INBOXASSIST_* environment variables, in increasing order of
// precedence, on top of built-in defaults.
package config
