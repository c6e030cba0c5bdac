package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mirrorscan/mirrorscan/internal/config"
	"github.com/mirrorscan/mirrorscan/internal/database"
	"github.com/mirrorscan/mirrorscan/internal/log"
	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/mirrorscan/mirrorscan/internal/pipeline"
	"github.com/mirrorscan/mirrorscan/internal/registry"
	"github.com/mirrorscan/mirrorscan/internal/report"
	"github.com/mirrorscan/mirrorscan/internal/resolver"
	"github.com/spf13/cobra"
)

// ErrApprovalRequired is returned when the audit finds gaps that need
// operator approval. It drives the non-zero exit code that CI pipelines
// key on.
var ErrApprovalRequired = errors.New("audit found gaps requiring approval")

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [manifest-path...]",
		Short: "Audit project dependencies against the offline registry",
		Long: `Audit resolves each project's dependency graph with cargo metadata and
checks every entry against the offline registry listing.

Dependencies whose exact resolved version is present in the registry are
satisfied. Every other dependency is a gap, classified by the kind of
change importing it would mean for the mirror:
- NEW DEPENDENCY: the registry has no versions of the package at all
- DOWNGRADE: the registry's best version is newer than the one required
- MAJOR UPGRADE: the required version crosses a major version boundary
- MINOR/PATCH UPGRADE: a compatible newer version is required

New dependencies, downgrades, and major upgrades require operator
approval; if any are found the command exits with status 1.

Examples:
  # Audit the project in the current directory
  mirrorscan audit --registry-file mirror.txt

  # Audit multiple projects concurrently
  mirrorscan audit ./api/Cargo.toml ./worker/Cargo.toml -r mirror.txt

  # Output a JSON report to a file
  mirrorscan audit -r mirror.txt --json -o report.json

  # Append the missing artifacts to the registry listing after review
  mirrorscan audit -r mirror.txt --write

Configuration file (.mirrorscan) example:
  registryFile: /mirrors/crates/listing.txt
  projects:
    ./services/api/Cargo.toml:
      ignore:
        - internal-tooling
    ./services/worker/Cargo.toml:
      registryFile: /mirrors/worker/listing.txt`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	// Registry and resolution flags
	cmd.Flags().StringP("registry-file", "r", "",
		"Path to the offline registry listing (one name-version per line)")
	cmd.Flags().String("cargo", "",
		"Path to the cargo binary (default: search PATH)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultResolveTimeout,
		"Timeout for each cargo metadata invocation")

	// Batch auditing flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent audits")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .mirrorscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Write-back flag
	cmd.Flags().BoolP("write", "w", false,
		"Append each gap's resolved version to the registry listing and re-sort it")

	return cmd
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	// Build config from flags
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging with credential redaction
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAudit(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	// Get flag values
	var err error

	cfg.RegistryFile, err = cmd.Flags().GetString("registry-file")
	if err != nil {
		return nil, err
	}

	cfg.CargoPath, err = cmd.Flags().GetString("cargo")
	if err != nil {
		return nil, err
	}

	cfg.ResolveTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load project-specific configurations from config file.
	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use empty config if no file found.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.ProjectConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		// User explicitly specified a config file that doesn't exist
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		// Use empty config if no file found and user didn't explicitly specify one
		cfg.ProjectConfigs = &config.File{
			Projects: make(map[string]config.ProjectConfig),
		}
	}

	// The registry file may come from the config file when the flag is
	// absent; the flag wins when both are set.
	if cfg.RegistryFile == "" {
		cfg.RegistryFile = cfg.ProjectConfigs.RegistryFile
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Write, err = cmd.Flags().GetBool("write")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	// Always save to database using XDG data directory
	cfg.SaveToDB = true
	cfg.DBDir = config.XDGDataDir()

	// Positional arguments are manifest paths; default applies otherwise
	if len(args) > 0 {
		cfg.ManifestPaths = args
	}

	return cfg, nil
}

// runAudit executes the audit.
func runAudit(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting audit",
		"manifests", cfg.ManifestPaths,
		"registryFile", cfg.RegistryFile,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	// Open database connection if saving is enabled
	var db *database.HistoryDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	// Fail fast when cargo cannot be found at all. Projects with their
	// own cargoPath override skip this check; their resolvers probe the
	// configured binary on first use.
	if !hasCargoOverride(cfg) {
		if !newResolver(cfg, nil, logger).IsAvailable() {
			return resolver.ErrCargoNotFound
		}
	}

	var states []*pipeline.State
	var err error

	// Use batch processor for parallel auditing if multiple manifests
	if len(cfg.ManifestPaths) > 1 && cfg.BatchSize > 1 {
		states, err = runBatchAudit(ctx, cfg, db, logger)
	} else {
		states, err = runSequentialAudit(ctx, cfg, db, logger)
	}
	if err != nil {
		return err
	}

	// Output every report, then decide on write-back and exit status
	approvalGaps := 0
	for _, state := range states {
		if state == nil || state.Report == nil {
			continue
		}
		if err := outputReport(cfg, state.Report); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", state.ManifestPath, err)
		}
		approvalGaps += state.Report.ApprovalCount()
	}

	if cfg.Write {
		if err := writeBack(states, logger); err != nil {
			return err
		}
	}

	if approvalGaps > 0 {
		return fmt.Errorf("%w: %d gap(s)", ErrApprovalRequired, approvalGaps)
	}
	return nil
}

// effectiveCargoPath returns the cargo binary for one project: the
// per-project override when present, else the global flag value.
func effectiveCargoPath(cfg *config.Config, state *pipeline.State) string {
	if state != nil && state.CargoPath != "" {
		return state.CargoPath
	}
	return cfg.CargoPath
}

// effectiveTimeout returns the resolve timeout for one project: the
// per-project override when positive, else the global flag value.
func effectiveTimeout(cfg *config.Config, state *pipeline.State) time.Duration {
	if state != nil && state.ResolveTimeout > 0 {
		return state.ResolveTimeout
	}
	return cfg.ResolveTimeout
}

// hasCargoOverride reports whether any project config supplies its own
// cargo binary path.
func hasCargoOverride(cfg *config.Config) bool {
	if cfg.ProjectConfigs == nil {
		return false
	}
	if cfg.ProjectConfigs.Defaults.CargoPath != "" {
		return true
	}
	for _, pc := range cfg.ProjectConfigs.Projects {
		if pc.CargoPath != "" {
			return true
		}
	}
	return false
}

// newResolver creates the cargo resolver for one project's audit.
// A nil state yields a resolver built from the global flags alone.
func newResolver(cfg *config.Config, state *pipeline.State, logger *slog.Logger) *resolver.CargoResolver {
	opts := []resolver.CargoOption{
		resolver.WithTimeout(effectiveTimeout(cfg, state)),
		resolver.WithLogger(logger),
	}
	if path := effectiveCargoPath(cfg, state); path != "" {
		opts = append(opts, resolver.WithCargoPath(path))
	}
	return resolver.NewCargoResolver(opts...)
}

// newAuditPipeline assembles the steps of one project audit. The state
// must already carry any per-project overrides; the resolve step is
// built from its effective cargo path and timeout.
func newAuditPipeline(cfg *config.Config, state *pipeline.State, db *database.HistoryDB, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewResolveStep(newResolver(cfg, state, logger), logger),
		pipeline.NewLoadRegistryStep(logger),
		pipeline.NewAnalyzeStep(logger),
	)
	if db != nil {
		p.AddStep(pipeline.NewSaveStep(db, logger))
	}
	return p
}

// applyProjectConfig overrides per-project state from the config file.
func applyProjectConfig(cfg *config.Config, state *pipeline.State) {
	if cfg.ProjectConfigs == nil {
		return
	}
	pc := cfg.ProjectConfigs.GetProjectConfig(state.ManifestPath)
	if pc.RegistryFile != "" {
		state.RegistryFile = pc.RegistryFile
	}
	if pc.CargoPath != "" {
		state.CargoPath = pc.CargoPath
	}
	if pc.ResolveTimeoutSeconds > 0 {
		state.ResolveTimeout = time.Duration(pc.ResolveTimeoutSeconds) * time.Second
	}
	state.Ignore = pc.Ignore
}

// runSequentialAudit audits manifests one at a time.
//
// Unlike a network scan loop, a failed audit aborts the run instead of
// continuing: write-back after a partial run could approve entries no
// report covers.
func runSequentialAudit(ctx context.Context, cfg *config.Config, db *database.HistoryDB, logger *slog.Logger) ([]*pipeline.State, error) {
	states := make([]*pipeline.State, 0, len(cfg.ManifestPaths))

	for _, manifestPath := range cfg.ManifestPaths {
		select {
		case <-ctx.Done():
			return states, ctx.Err()
		default:
		}

		state := &pipeline.State{
			ManifestPath: manifestPath,
			RegistryFile: cfg.RegistryFile,
		}
		applyProjectConfig(cfg, state)

		fmt.Printf("Auditing %s...\n", manifestPath)
		startTime := time.Now()

		p := newAuditPipeline(cfg, state, db, logger)
		if err := p.Execute(ctx, state); err != nil {
			return states, fmt.Errorf("audit failed for %s: %w", manifestPath, err)
		}

		elapsed := time.Since(startTime)
		fmt.Printf("Audit completed in %s\n\n", elapsed.Round(time.Millisecond))

		states = append(states, state)
	}

	return states, nil
}

// runBatchAudit audits multiple manifests concurrently using BatchProcessor.
func runBatchAudit(ctx context.Context, cfg *config.Config, db *database.HistoryDB, logger *slog.Logger) ([]*pipeline.State, error) {
	fmt.Printf("Starting batch audit of %d projects (concurrency: %d)...\n\n",
		len(cfg.ManifestPaths), cfg.BatchSize)

	startTime := time.Now()

	bp := pipeline.NewBatchProcessor(
		func(state *pipeline.State) *pipeline.Pipeline {
			return newAuditPipeline(cfg, state, db, logger)
		},
		cfg.RegistryFile,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
		pipeline.WithStateCustomizer(func(state *pipeline.State) {
			applyProjectConfig(cfg, state)
		}),
	)

	states, err := bp.ProcessBatch(ctx, cfg.ManifestPaths)

	elapsed := time.Since(startTime)
	fmt.Printf("\nBatch audit completed in %s\n", elapsed.Round(time.Millisecond))

	return states, err
}

// writeBack merges each report's write-back entries into its registry
// listing. States sharing a registry file are merged into a single
// rewrite so the file is sorted and written once.
func writeBack(states []*pipeline.State, logger *slog.Logger) error {
	entriesByFile := make(map[string][]model.PackageID)
	for _, state := range states {
		if state == nil || state.Report == nil {
			continue
		}
		entriesByFile[state.RegistryFile] = append(
			entriesByFile[state.RegistryFile],
			state.Report.WriteBackEntries()...,
		)
	}

	for registryFile, entries := range entriesByFile {
		if len(entries) == 0 {
			continue
		}

		idx, err := registry.LoadFile(registryFile)
		if err != nil {
			return fmt.Errorf("write-back failed to reload %s: %w", registryFile, err)
		}

		added := idx.Merge(entries)
		if added == 0 {
			logger.Info("write-back: registry already up to date", "file", registryFile)
			continue
		}

		if err := idx.WriteFile(registryFile); err != nil {
			return fmt.Errorf("write-back failed for %s: %w", registryFile, err)
		}

		fmt.Printf("Added %d entries to %s\n", added, registryFile)
		logger.Info("registry listing updated",
			"file", registryFile,
			"added", added,
			"total", idx.Len(),
		)
	}

	return nil
}

// outputReport outputs the audit report in the requested format.
func outputReport(cfg *config.Config, auditReport *model.AuditReport) error {
	// Determine output destination
	var output *os.File
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Create/overwrite the output file with owner-only permissions.
		// Internal package names and registry paths are not for sharing.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	// JSON output (machine-readable report with all data)
	if cfg.JSONReport {
		writer := report.NewJSONWriter(output, report.WithPrettyPrint())
		_, err := writer.Write(auditReport)
		return err
	}

	// Markdown output
	if cfg.MarkdownReport {
		writer := report.NewMarkdownWriter(output)
		_, err := writer.Write(auditReport)
		return err
	}

	// Human-readable report (default)
	writer := report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	_, err := writer.Write(auditReport)
	return err
}
