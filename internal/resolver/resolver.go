package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/mirrorscan/mirrorscan/internal/semver"
)

// Resolver produces a project's resolved dependency graph as an ordered
// sequence of entries. The core never shells out itself; it consumes the
// output of a Resolver as opaque, pre-parsed input data.
//
// Design decision: We use an interface rather than calling cargo directly
// from the audit pipeline so tests can substitute a fixed dependency list
// and so other build-graph sources can be added without touching the
// engine.
type Resolver interface {
	// Resolve returns the dependency entries for the project rooted at
	// manifestPath, in the order the resolution tool reports them.
	Resolve(ctx context.Context, manifestPath string) ([]model.DependencyEntry, error)
}

// DefaultTimeout bounds a single cargo metadata invocation. Metadata
// resolution is local and normally completes in seconds; a stuck cargo
// (e.g. waiting on a lock held by another build) should not hang the
// audit indefinitely.
const DefaultTimeout = 60 * time.Second

// CargoResolver obtains the dependency graph by invoking
// `cargo metadata --format-version 1` and decoding its JSON output.
// Only runtime edges are considered: dev and build dependencies are
// skipped, and workspace-local path packages (those without a registry
// source) are excluded from the result.
type CargoResolver struct {
	// binary is the cargo executable path. Empty until resolved via
	// IsAvailable or the first Resolve call.
	binary string

	// timeout bounds each cargo invocation.
	timeout time.Duration

	// logger receives debug output for the executed command.
	logger *slog.Logger
}

// CargoOption configures a CargoResolver.
type CargoOption func(*CargoResolver)

// WithCargoPath overrides the cargo binary location instead of searching
// the system PATH.
func WithCargoPath(path string) CargoOption {
	return func(r *CargoResolver) {
		if path != "" {
			r.binary = path
		}
	}
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) CargoOption {
	return func(r *CargoResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger used for command debug output.
func WithLogger(logger *slog.Logger) CargoOption {
	return func(r *CargoResolver) {
		r.logger = logger
	}
}

// NewCargoResolver creates a CargoResolver with the given options.
func NewCargoResolver(opts ...CargoOption) *CargoResolver {
	r := &CargoResolver{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// IsAvailable checks whether the cargo binary can be found.
func (r *CargoResolver) IsAvailable() bool {
	if r.binary != "" {
		return true
	}
	path, err := exec.LookPath("cargo")
	if err != nil {
		return false
	}
	r.binary = path
	return true
}

// metadataOutput mirrors the subset of the `cargo metadata` JSON schema
// the resolver consumes.
type metadataOutput struct {
	Packages         []metadataPackage `json:"packages"`
	WorkspaceMembers []string          `json:"workspace_members"`
	Resolve          *struct {
		Nodes []struct {
			ID   string `json:"id"`
			Deps []struct {
				Pkg      string `json:"pkg"`
				DepKinds []struct {
					Kind *string `json:"kind"` // null = runtime, "dev", "build"
				} `json:"dep_kinds"`
			} `json:"deps"`
		} `json:"nodes"`
	} `json:"resolve"`
}

type metadataPackage struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Version      string  `json:"version"`
	Source       *string `json:"source"`
	Dependencies []struct {
		Name string  `json:"name"`
		Req  string  `json:"req"`
		Kind *string `json:"kind"` // null = runtime, "dev", "build"
	} `json:"dependencies"`
}

// Resolve invokes cargo metadata and converts its package list into
// ordered dependency entries.
//
// The resolved version of each entry comes from the package record; the
// requirement comes from the runtime dependency edges naming the
// package, matched against its resolved version. Packages only
// reachable through dev or build edges are excluded when the metadata
// carries a resolve graph; a package no runtime edge declares falls
// back to an exact requirement on its resolved version.
func (r *CargoResolver) Resolve(ctx context.Context, manifestPath string) ([]model.DependencyEntry, error) {
	if _, err := os.Stat(manifestPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, manifestPath)
	}
	if !r.IsAvailable() {
		return nil, ErrCargoNotFound
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.binary,
		"metadata", "--format-version", "1", "--manifest-path", manifestPath)
	r.logger.Debug("running dependency resolution", "command", cmd.String())

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %v: %s", ErrMetadataFailed, err, string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%w: %v", ErrMetadataFailed, err)
	}

	return parseMetadata(output)
}

// parseMetadata decodes cargo metadata JSON into dependency entries.
// Any malformed version or requirement string aborts with a parse error
// naming the offending literal; a malformed entry is never dropped.
//
// When the metadata carries a resolve graph, entries are limited to the
// runtime closure: packages reachable from the workspace members over
// runtime (non-dev, non-build) edges. Metadata without a resolve graph
// keeps every registry package, for compatibility with stripped output.
func parseMetadata(output []byte) ([]model.DependencyEntry, error) {
	var meta metadataOutput
	if err := json.Unmarshal(output, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataFailed, err)
	}

	closure := runtimeClosure(&meta)

	// Runtime requirements per package name, in metadata order. A crate
	// resolved at two versions carries one declaration per edge, so each
	// entry later picks the requirement its resolved version satisfies.
	requirements := make(map[string][]string)
	for _, pkg := range meta.Packages {
		if closure != nil && !closure[pkg.ID] && pkg.Source != nil {
			continue // outside the runtime closure, its edges do not count
		}
		for _, dep := range pkg.Dependencies {
			if dep.Kind != nil {
				continue // dev or build edge
			}
			requirements[dep.Name] = append(requirements[dep.Name], dep.Req)
		}
	}

	var entries []model.DependencyEntry
	for _, pkg := range meta.Packages {
		if pkg.Source == nil {
			continue // workspace-local path package, not a registry artifact
		}
		if closure != nil && !closure[pkg.ID] {
			continue // only dev or build edges lead here
		}

		resolved, err := semver.ParseVersion(pkg.Version)
		if err != nil {
			return nil, err
		}

		req, err := matchRequirement(requirements[pkg.Name], resolved)
		if err != nil {
			return nil, err
		}

		entries = append(entries, model.DependencyEntry{
			Name:        pkg.Name,
			Requirement: req,
			Resolved:    resolved,
		})
	}

	return entries, nil
}

// matchRequirement returns the first declared requirement the resolved
// version satisfies, or an exact requirement on the resolved version
// when none matches.
func matchRequirement(candidates []string, resolved semver.Version) (semver.Requirement, error) {
	for _, text := range candidates {
		req, err := semver.ParseRequirement(text)
		if err != nil {
			return semver.Requirement{}, err
		}
		if req.Check(resolved) {
			return req, nil
		}
	}
	return semver.ParseRequirement("=" + resolved.String())
}

// runtimeClosure walks the resolve graph from the workspace members and
// returns the set of package IDs reachable over runtime edges. It
// returns nil when the metadata has no resolve graph, meaning no
// scoping can be applied.
func runtimeClosure(meta *metadataOutput) map[string]bool {
	if meta.Resolve == nil {
		return nil
	}

	edges := make(map[string][]string, len(meta.Resolve.Nodes))
	for _, node := range meta.Resolve.Nodes {
		for _, dep := range node.Deps {
			// An edge with no recorded kinds is a plain runtime edge.
			runtime := len(dep.DepKinds) == 0
			for _, dk := range dep.DepKinds {
				if dk.Kind == nil {
					runtime = true
					break
				}
			}
			if runtime {
				edges[node.ID] = append(edges[node.ID], dep.Pkg)
			}
		}
	}

	closure := make(map[string]bool, len(meta.Resolve.Nodes))
	queue := append([]string(nil), meta.WorkspaceMembers...)
	for _, id := range queue {
		closure[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range edges[id] {
			if !closure[next] {
				closure[next] = true
				queue = append(queue, next)
			}
		}
	}
	return closure
}
