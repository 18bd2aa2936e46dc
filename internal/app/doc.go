// Package app wires the assistant together from a loaded configuration.
//
// New builds the components in dependency order: logger, instrumentation
// provider, credential store, inference client, context extractor, action
// orchestrator and reply injector. Commands and MCP tools receive the *App
// instead of reaching for package-level state. Google API clients are built
// lazily per account and cached for the lifetime of the App.
package app
