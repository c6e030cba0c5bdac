package model

import "github.com/mirrorscan/mirrorscan/internal/semver"

// Gap is one dependency the offline registry cannot satisfy with the exact
// resolved version, together with its risk classification.
// Gaps are produced by the satisfaction engine and consumed read-only by
// the report writers and the write-back step.
type Gap struct {
	// Name is the package name.
	Name string `json:"name"`

	// Requirement is the declared version requirement.
	Requirement semver.Requirement `json:"requirement"`

	// Resolved is the version the upstream resolver picked; this is the
	// version that would be added to the mirror on write-back.
	Resolved semver.Version `json:"resolved"`

	// BestOffline is the highest version the registry holds for the
	// package that satisfies the requirement, or failing that, the highest
	// version it holds at all. Nil when the registry has no versions for
	// the package name.
	BestOffline *semver.Version `json:"best_offline,omitempty"`

	// Category is the risk classification of the needed change.
	Category Category `json:"category"`

	// CategoryText is the human-readable category, duplicated for JSON
	// consumers that do not know the enum values.
	CategoryText string `json:"category_text"`
}

// WriteBackEntry returns the registry entry that accepting this gap would
// append to the mirror listing.
func (g Gap) WriteBackEntry() PackageID {
	return PackageID{Name: g.Name, Version: g.Resolved}
}

// RequiresApproval reports whether an operator must approve this gap
// before write-back.
func (g Gap) RequiresApproval() bool {
	return g.Category.RequiresApproval()
}
