package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultManifestPath is the project manifest audited when no paths
	// are given on the command line, matching cargo's own default.
	DefaultManifestPath = "./Cargo.toml"

	// DefaultResolveTimeout bounds a single cargo metadata invocation.
	// Metadata resolution is local and normally completes in seconds; a
	// cargo blocked on a build lock should not hang the audit.
	DefaultResolveTimeout = 60 * time.Second

	// DefaultBatchSize of 4 concurrent audits balances throughput with
	// resource usage. Each audit spawns its own cargo process; higher
	// values mostly contend on disk and the cargo package cache.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "mirrorscan"
)

// Config holds all configuration options for mirrorscan.
// This struct is designed to be populated from CLI flags and passed
// through the application via dependency injection rather than global
// state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// ManifestPaths lists the project manifests to audit.
	// Must contain at least one entry.
	ManifestPaths []string

	// RegistryFile is the path to the offline registry listing:
	// one "name-version" artifact per line.
	RegistryFile string

	// CargoPath overrides the cargo binary location. Empty means search
	// the system PATH.
	CargoPath string

	// ResolveTimeout bounds each cargo metadata invocation.
	ResolveTimeout time.Duration

	// BatchSize is the number of concurrent audits when processing
	// multiple manifests.
	BatchSize int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// Write enables the write-back step: append the resolved version of
	// every gap to the registry file and re-sort it. Off by default;
	// adding entries to the mirror is an explicit operator decision.
	Write bool

	// DBDir is the directory path for storing the SQLite database.
	// When set, audit results are saved for historical comparison.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to save audit results to the database.
	SaveToDB bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .mirrorscan in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// ProjectConfigs holds per-project configuration loaded from the
	// config file.
	ProjectConfigs *File
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero (timeout, batch
// size). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		ManifestPaths:  []string{DefaultManifestPath},
		ResolveTimeout: DefaultResolveTimeout,
		BatchSize:      DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for mirrorscan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/mirrorscan
// On macOS: ~/Library/Application Support/mirrorscan
// On Windows: %LOCALAPPDATA%\mirrorscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mirrorscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any audit begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.ManifestPaths) == 0 {
		return ErrNoManifest
	}

	// The registry listing is the whole point of the audit
	if c.RegistryFile == "" {
		return ErrNoRegistryFile
	}

	// Timeout must be positive; zero timeout would kill cargo immediately
	if c.ResolveTimeout <= 0 {
		return ErrInvalidTimeout
	}

	// BatchSize must be positive; zero would mean no audits
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
