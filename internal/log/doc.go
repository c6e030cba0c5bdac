// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// Audit runs log the executed cargo command, its environment, and
// registry URLs. Any of these can carry credentials for private
// registries (CARGO_REGISTRY_TOKEN, URLs with embedded userinfo, bearer
// headers). The SecureHandler masks such values before they reach the
// underlying handler, so even --verbose output is safe to attach to an
// approval request or a CI log.
package log
