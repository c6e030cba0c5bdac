package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/mirrorscan/mirrorscan/internal/database"
	"github.com/mirrorscan/mirrorscan/internal/engine"
	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/mirrorscan/mirrorscan/internal/registry"
	"github.com/mirrorscan/mirrorscan/internal/resolver"
)

// State carries the inputs and outputs of one project audit through the
// pipeline. Each step populates the fields later steps consume.
type State struct {
	// ManifestPath is the project manifest being audited.
	ManifestPath string

	// RegistryFile is the offline registry listing path.
	RegistryFile string

	// Ignore lists dependency names excluded from the audit. Ignored
	// dependencies are dropped right after resolution so they never reach
	// classification or write-back.
	Ignore []string

	// CargoPath, when non-empty, overrides the resolution binary for
	// this project. The pipeline factory reads it before building the
	// resolve step.
	CargoPath string

	// ResolveTimeout, when positive, overrides the resolution timeout
	// for this project.
	ResolveTimeout time.Duration

	// Dependencies is the resolved dependency graph, populated by the
	// resolve step.
	Dependencies []model.DependencyEntry

	// Index is the offline registry index, populated by the registry
	// load step.
	Index *registry.Index

	// Report is the finished audit report, populated by the analyze step.
	Report *model.AuditReport
}

// ResolveStep obtains the project's resolved dependency graph from the
// external resolution tool. This is the only step that runs an external
// process; everything after it operates on in-memory data.
type ResolveStep struct {
	resolver resolver.Resolver
	logger   *slog.Logger
}

// NewResolveStep creates a resolve step backed by the given resolver.
func NewResolveStep(r resolver.Resolver, logger *slog.Logger) *ResolveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveStep{resolver: r, logger: logger}
}

// Name returns the step name.
func (s *ResolveStep) Name() string { return "resolve" }

// Do resolves the dependency graph into state.Dependencies.
func (s *ResolveStep) Do(ctx context.Context, state *State) error {
	deps, err := s.resolver.Resolve(ctx, state.ManifestPath)
	if err != nil {
		return err
	}

	if len(state.Ignore) > 0 {
		deps = filterIgnored(deps, state.Ignore)
	}

	s.logger.Debug("resolved dependency graph",
		"manifest", state.ManifestPath,
		"dependencies", len(deps),
	)
	state.Dependencies = deps
	return nil
}

// filterIgnored removes entries whose name appears in the ignore list.
func filterIgnored(deps []model.DependencyEntry, ignore []string) []model.DependencyEntry {
	ignored := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ignored[name] = struct{}{}
	}

	kept := make([]model.DependencyEntry, 0, len(deps))
	for _, dep := range deps {
		if _, ok := ignored[dep.Name]; ok {
			continue
		}
		kept = append(kept, dep)
	}
	return kept
}

// LoadRegistryStep reads and indexes the offline registry listing.
type LoadRegistryStep struct {
	logger *slog.Logger
}

// NewLoadRegistryStep creates a registry load step.
func NewLoadRegistryStep(logger *slog.Logger) *LoadRegistryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadRegistryStep{logger: logger}
}

// Name returns the step name.
func (s *LoadRegistryStep) Name() string { return "load-registry" }

// Do loads the registry listing into state.Index.
func (s *LoadRegistryStep) Do(_ context.Context, state *State) error {
	idx, err := registry.LoadFile(state.RegistryFile)
	if err != nil {
		return err
	}

	s.logger.Debug("loaded offline registry",
		"file", state.RegistryFile,
		"artifacts", idx.Len(),
		"packages", idx.PackageCount(),
	)
	state.Index = idx
	return nil
}

// AnalyzeStep runs the satisfaction engine over the resolved dependencies
// and the registry index.
type AnalyzeStep struct {
	logger *slog.Logger
}

// NewAnalyzeStep creates an analyze step.
func NewAnalyzeStep(logger *slog.Logger) *AnalyzeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeStep{logger: logger}
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string { return "analyze" }

// Do produces state.Report from the accumulated inputs.
func (s *AnalyzeStep) Do(_ context.Context, state *State) error {
	state.Report = engine.Analyze(state.Dependencies, state.Index, state.ManifestPath, state.RegistryFile)

	s.logger.Debug("analysis complete",
		"manifest", state.ManifestPath,
		"gaps", state.Report.TotalGaps(),
		"require_approval", state.Report.ApprovalCount(),
	)
	return nil
}

// SaveStep persists the finished report to the audit history database.
type SaveStep struct {
	db     *database.HistoryDB
	logger *slog.Logger
}

// NewSaveStep creates a save step writing to db.
func NewSaveStep(db *database.HistoryDB, logger *slog.Logger) *SaveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveStep{db: db, logger: logger}
}

// Name returns the step name.
func (s *SaveStep) Name() string { return "save-history" }

// Do saves state.Report for later comparison.
func (s *SaveStep) Do(ctx context.Context, state *State) error {
	if err := s.db.SaveReport(ctx, state.Report); err != nil {
		return err
	}

	s.logger.Debug("report saved to history",
		"manifest", state.ManifestPath,
	)
	return nil
}
