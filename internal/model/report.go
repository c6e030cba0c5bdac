package model

import "time"

// AuditReport is the result of auditing one project's dependency graph
// against an offline registry.
//
// Design decision: Category counts are derived from the gap list at
// construction time rather than stored independently, so they can never
// drift from the gaps they summarize. The report is read-only once built.
type AuditReport struct {
	// ManifestPath is the project manifest that was audited.
	ManifestPath string `json:"manifest_path"`

	// RegistryFile is the offline registry listing the audit ran against.
	RegistryFile string `json:"registry_file"`

	// DateAudited is when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// DependencyCount is the total number of dependency entries examined.
	DependencyCount int `json:"dependency_count"`

	// SatisfiedCount is the number of dependencies the registry satisfies
	// with the exact resolved version. Satisfied entries never appear in
	// Gaps.
	SatisfiedCount int `json:"satisfied_count"`

	// Gaps lists every unsatisfied dependency in input order.
	Gaps []Gap `json:"gaps,omitempty"`

	// === Per-category counts, derived from Gaps ===

	NewDependencyCount     int `json:"new_dependency_count"`
	DowngradeCount         int `json:"downgrade_count"`
	MajorUpgradeCount      int `json:"major_upgrade_count"`
	MinorPatchUpgradeCount int `json:"minor_patch_upgrade_count"`

	// Error contains any error message if the audit failed partway.
	Error string `json:"error,omitempty"`
}

// NewAuditReport builds a report from an ordered gap list, deriving the
// per-category counts.
func NewAuditReport(manifestPath, registryFile string, dependencyCount, satisfiedCount int, gaps []Gap) *AuditReport {
	r := &AuditReport{
		ManifestPath:    manifestPath,
		RegistryFile:    registryFile,
		DateAudited:     time.Now(),
		DependencyCount: dependencyCount,
		SatisfiedCount:  satisfiedCount,
		Gaps:            gaps,
	}
	r.countByCategory()
	return r
}

// countByCategory recomputes the derived per-category counts.
func (r *AuditReport) countByCategory() {
	r.NewDependencyCount = 0
	r.DowngradeCount = 0
	r.MajorUpgradeCount = 0
	r.MinorPatchUpgradeCount = 0

	for _, g := range r.Gaps {
		switch g.Category {
		case CategoryNewDependency:
			r.NewDependencyCount++
		case CategoryDowngrade:
			r.DowngradeCount++
		case CategoryMajorUpgrade:
			r.MajorUpgradeCount++
		case CategoryMinorPatchUpgrade:
			r.MinorPatchUpgradeCount++
		}
	}
}

// TotalGaps returns the number of unsatisfied dependencies.
func (r *AuditReport) TotalGaps() int {
	return len(r.Gaps)
}

// FullySatisfied reports whether the registry satisfies every dependency
// with its exact resolved version.
func (r *AuditReport) FullySatisfied() bool {
	return len(r.Gaps) == 0
}

// CountByCategory returns the number of gaps with the given category.
func (r *AuditReport) CountByCategory(c Category) int {
	switch c {
	case CategoryNewDependency:
		return r.NewDependencyCount
	case CategoryDowngrade:
		return r.DowngradeCount
	case CategoryMajorUpgrade:
		return r.MajorUpgradeCount
	case CategoryMinorPatchUpgrade:
		return r.MinorPatchUpgradeCount
	default:
		return 0
	}
}

// ApprovalCount returns the number of gaps requiring operator approval.
func (r *AuditReport) ApprovalCount() int {
	count := 0
	for _, g := range r.Gaps {
		if g.RequiresApproval() {
			count++
		}
	}
	return count
}

// GapsByCategory returns the gaps with the given category, preserving
// input order.
func (r *AuditReport) GapsByCategory(c Category) []Gap {
	var result []Gap
	for _, g := range r.Gaps {
		if g.Category == c {
			result = append(result, g)
		}
	}
	return result
}

// WriteBackEntries returns the registry entries that accepting every gap
// would append to the mirror listing, in gap order.
func (r *AuditReport) WriteBackEntries() []PackageID {
	entries := make([]PackageID, 0, len(r.Gaps))
	for _, g := range r.Gaps {
		entries = append(entries, g.WriteBackEntry())
	}
	return entries
}
