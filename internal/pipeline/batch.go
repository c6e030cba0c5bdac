package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor audits multiple project manifests concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on a single project audit
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each project audit.
	// It receives the project's state after customization so per-project
	// overrides (cargo path, timeout) can shape the pipeline's steps.
	pipelineFactory func(*State) *Pipeline

	// registryFile is the offline registry listing shared by all audits.
	registryFile string

	// concurrency is the maximum number of concurrent audits.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// customize, if set, adjusts each project's state before its pipeline
	// runs. Used to apply per-project configuration such as registry
	// overrides and ignore lists.
	customize func(*State)

	// results stores completed audit states by input index.
	// Access is synchronized via mutex.
	results []*State
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithStateCustomizer sets a function that adjusts each project's state
// before its pipeline runs. The function is called with the base state
// (manifest path and shared registry file already set) and may override
// any field.
func WithStateCustomizer(fn func(*State)) BatchOption {
	return func(b *BatchProcessor) {
		b.customize = fn
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called once per audit, after the state
// customizer has run, so each audit gets a fresh pipeline built for that
// project's effective configuration.
func NewBatchProcessor(pipelineFactory func(*State) *Pipeline, registryFile string, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		registryFile:    registryFile,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits multiple project manifests concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each manifest gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Unlike a network scan batch, one project's failed audit fails the whole
// batch: writing back a registry file after a partial batch could approve
// entries no report covers, so the first error cancels the remaining
// audits. Completed states are still returned alongside the error.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, manifestPaths []string) ([]*State, error) {
	bp.logger.Info("starting batch audit",
		"total_projects", len(manifestPaths),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain input order
	bp.results = make([]*State, len(manifestPaths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, manifestPath := range manifestPaths {
		i, manifestPath := i, manifestPath
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing project",
				"manifest", manifestPath,
				"index", i+1,
				"total", len(manifestPaths),
			)

			state := &State{
				ManifestPath: manifestPath,
				RegistryFile: bp.registryFile,
			}
			if bp.customize != nil {
				bp.customize(state)
			}

			p := bp.pipelineFactory(state)
			err := p.Execute(ctx, state)

			bp.mu.Lock()
			bp.results[i] = state
			bp.mu.Unlock()

			if err != nil {
				return err
			}

			bp.logger.Info("audit completed",
				"manifest", manifestPath,
				"gaps", state.Report.TotalGaps(),
			)
			return nil
		})
	}

	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch audit complete",
		"total_projects", len(manifestPaths),
		"elapsed", elapsed,
	)

	return bp.results, err
}
