package resolver

import "errors"

// Dependency resolution errors.
// All of these are fatal: the audit cannot proceed without a complete,
// well-formed dependency graph.
var (
	// ErrManifestNotFound is returned when the project manifest does not
	// exist or cannot be read.
	ErrManifestNotFound = errors.New("project manifest not found")

	// ErrCargoNotFound is returned when no cargo binary is available on
	// the system PATH and none was configured.
	ErrCargoNotFound = errors.New("cargo not found: install Rust or set the cargo path in the configuration")

	// ErrMetadataFailed is returned when the cargo metadata invocation
	// fails or produces output that cannot be decoded.
	ErrMetadataFailed = errors.New("cargo metadata failed")
)
