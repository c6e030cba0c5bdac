package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoManifest is returned when no project manifest path is
	// specified. This should not happen through the CLI, which defaults
	// to ./Cargo.toml, but protects programmatic construction.
	ErrNoManifest = errors.New("no manifest specified: provide at least one Cargo.toml path")

	// ErrNoRegistryFile is returned when no offline registry listing is
	// configured via flag or config file.
	ErrNoRegistryFile = errors.New("no registry file specified: use --registry-file or set registryFile in .mirrorscan")

	// ErrInvalidTimeout is returned when the resolve timeout is not
	// positive. A zero or negative timeout would kill cargo immediately.
	ErrInvalidTimeout = errors.New("invalid resolve timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would mean no concurrent audits, effectively
	// stopping the run.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a
	// time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
