package model

// Category classifies the change an offline registry needs in order to
// satisfy one dependency. Exactly one category applies per dependency.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Category int

const (
	// CategorySatisfied indicates the registry already holds the exact
	// resolved version. Satisfied dependencies never appear in the gap list.
	CategorySatisfied Category = iota

	// CategoryMinorPatchUpgrade indicates the registry's best version for
	// the package shares the resolved major version but trails by minor or
	// patch. Pulling in the resolved version is auto-approved.
	CategoryMinorPatchUpgrade

	// CategoryMajorUpgrade indicates the resolved version crosses a major
	// version boundary relative to the registry's best version.
	// Major upgrades can break API compatibility and require approval.
	CategoryMajorUpgrade

	// CategoryDowngrade indicates the resolved version is lower than the
	// registry's best version for the package. Moving backward relative to
	// the mirror requires approval.
	CategoryDowngrade

	// CategoryNewDependency indicates the registry holds no version of the
	// package at all. New dependencies require approval.
	CategoryNewDependency
)

// String returns a human-readable representation of the category.
func (c Category) String() string {
	switch c {
	case CategorySatisfied:
		return "SATISFIED"
	case CategoryMinorPatchUpgrade:
		return "MINOR/PATCH UPGRADE"
	case CategoryMajorUpgrade:
		return "MAJOR UPGRADE"
	case CategoryDowngrade:
		return "DOWNGRADE"
	case CategoryNewDependency:
		return "NEW DEPENDENCY"
	default:
		return "UNKNOWN"
	}
}

// RequiresApproval reports whether an operator must explicitly approve
// pulling this change into the offline registry. Only same-major
// minor/patch upgrades are considered safe enough to auto-approve.
func (c Category) RequiresApproval() bool {
	switch c {
	case CategoryMajorUpgrade, CategoryDowngrade, CategoryNewDependency:
		return true
	default:
		return false
	}
}

// CategoryInfo contains metadata about a gap category: why it matters and
// what an operator should do about it.
type CategoryInfo struct {
	Impact         string
	Recommendation string
}

// categoryInfoMapping maps categories to their metadata.
// This centralized mapping keeps risk wording consistent across the text,
// JSON, and markdown report writers.
var categoryInfoMapping = map[Category]CategoryInfo{
	CategoryMinorPatchUpgrade: {
		Impact:         "The mirror trails the resolved version within the same major release. Semantic versioning promises backward compatibility for this change.",
		Recommendation: "Safe to add. Run with --write to append the resolved version to the registry file.",
	},
	CategoryMajorUpgrade: {
		Impact:         "The resolved version crosses a major version boundary and may contain breaking API changes relative to what the mirror holds.",
		Recommendation: "Review the package changelog before approving. Confirm downstream projects build against the new major version.",
	},
	CategoryDowngrade: {
		Impact:         "The resolved version is older than what the mirror already holds. Accepting it moves the mirror backward and may reintroduce fixed bugs or vulnerabilities.",
		Recommendation: "Verify why the project pins an older version before approving. Prefer updating the project's lockfile instead.",
	},
	CategoryNewDependency: {
		Impact:         "The mirror holds no version of this package. Adding it grows the audited dependency surface.",
		Recommendation: "Review the package source and license before approving its first entry in the mirror.",
	},
}

// GetCategoryInfo returns the metadata for a category.
// Categories without metadata (such as CategorySatisfied) return an empty
// CategoryInfo.
func GetCategoryInfo(c Category) CategoryInfo {
	return categoryInfoMapping[c]
}

// Categories lists all gap-producing categories in report display order:
// the most dangerous changes first.
func Categories() []Category {
	return []Category{
		CategoryNewDependency,
		CategoryDowngrade,
		CategoryMajorUpgrade,
		CategoryMinorPatchUpgrade,
	}
}
