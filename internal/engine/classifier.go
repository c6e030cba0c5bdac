package engine

import (
	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/mirrorscan/mirrorscan/internal/semver"
)

// classify assigns a gap category for one dependency given the versions
// the mirror holds for its name. It returns the category and the offline
// version the classification compared against (nil when the mirror holds
// nothing for the name).
//
// The comparison reference is the best satisfying version when one
// exists, otherwise the highest version the mirror holds at all, so a
// mirror that carries the package but cannot satisfy the requirement
// still gets a meaningful upgrade/downgrade category instead of a blunt
// "new dependency".
//
// Classification always compares the reference against the resolved
// (lockfile) version, never against the requirement string: the
// requirement only bounds acceptability, while the resolved version is
// the actual artifact a write-back would add.
//
// The decision table, evaluated in order:
//  1. mirror holds nothing for the name            -> NewDependency
//  2. reference equals resolved and satisfies      -> Satisfied
//  3. resolved is lower than the reference         -> Downgrade
//  4. resolved crosses a major version boundary    -> MajorUpgrade
//  5. otherwise (same major, minor/patch trails)   -> MinorPatchUpgrade
func classify(req semver.Requirement, resolved semver.Version, candidates []semver.Version) (model.Category, *semver.Version) {
	if len(candidates) == 0 {
		return model.CategoryNewDependency, nil
	}

	best, satisfies := semver.MaxSatisfying(req, candidates)
	if !satisfies {
		// No satisfying version offline; compare against the highest the
		// mirror holds regardless of satisfaction.
		best, _ = semver.Max(candidates)
	}

	switch {
	case satisfies && best.Equal(resolved):
		return model.CategorySatisfied, &best
	case resolved.LessThan(best):
		return model.CategoryDowngrade, &best
	case resolved.Major() != best.Major():
		return model.CategoryMajorUpgrade, &best
	default:
		return model.CategoryMinorPatchUpgrade, &best
	}
}
