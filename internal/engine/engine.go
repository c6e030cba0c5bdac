package engine

import (
	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/mirrorscan/mirrorscan/internal/registry"
)

// Analyze audits an ordered dependency list against an offline registry
// index and produces the gap report.
//
// For each dependency in input order: look up the mirror's version set
// for its name (empty when absent), find the best satisfying candidate,
// and either count the dependency as satisfied (exact resolved version
// available) or classify the gap. Dependencies fully satisfied by the
// mirror never appear in the gap list.
//
// Analyze is deterministic: identical inputs produce byte-identical gap
// lists and counts. Candidate traversal breaks ties only by the version
// ordering, never by map iteration or insertion order. The analysis is a
// single synchronous pass with no I/O; both inputs were marshalled into
// memory before this call.
func Analyze(deps []model.DependencyEntry, idx *registry.Index, manifestPath, registryFile string) *model.AuditReport {
	var gaps []model.Gap
	satisfied := 0

	for _, dep := range deps {
		candidates := idx.Versions(dep.Name)

		category, best := classify(dep.Requirement, dep.Resolved, candidates)
		if category == model.CategorySatisfied {
			satisfied++
			continue
		}

		gaps = append(gaps, model.Gap{
			Name:         dep.Name,
			Requirement:  dep.Requirement,
			Resolved:     dep.Resolved,
			BestOffline:  best,
			Category:     category,
			CategoryText: category.String(),
		})
	}

	return model.NewAuditReport(manifestPath, registryFile, len(deps), satisfied, gaps)
}
