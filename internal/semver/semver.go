// Package semver provides strict semantic version parsing and cargo-style
// requirement matching for registry auditing.
//
// Versions are plain (major, minor, patch) triples. Unlike general-purpose
// semver parsers, ParseVersion rejects anything that is not exactly three
// dot-separated non-negative integers: pre-release tags, build metadata,
// and partial versions are parse errors, never coerced. Offline registry
// entries are concrete artifacts, so a lenient parse here would silently
// match files that do not exist.
//
// Requirements follow cargo range syntax: a bare version means caret
// ("compatible with"), explicit operators are honored literally, and "*"
// or the empty string accepts anything. Constraint checking is delegated
// to github.com/Masterminds/semver/v3, which implements the caret
// zero-leading special cases (^0.3 stays below 0.4.0, ^0.0.3 is exact).
package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Parse errors. Both always wrap the offending literal into the returned
// error message so that a failed audit names the exact input string.
var (
	// ErrInvalidVersion is returned when a version string is not exactly
	// three dot-separated non-negative integers.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrInvalidRequirement is returned when a requirement string uses a
	// range syntax the parser does not recognize.
	ErrInvalidRequirement = errors.New("invalid requirement")
)

// Version is an immutable semantic version triple.
// The zero value is "0.0.0"; construct via ParseVersion or New.
type Version struct {
	major uint64
	minor uint64
	patch uint64
}

// New creates a Version from its components.
func New(major, minor, patch uint64) Version {
	return Version{major: major, minor: minor, patch: patch}
}

// ParseVersion parses a strict three-component semantic version.
// Any other shape (missing component, extra component, non-numeric
// component, pre-release or build metadata suffix) returns an error
// wrapping ErrInvalidVersion and quoting the input verbatim.
func ParseVersion(raw string) (Version, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q: expected exactly three dot-separated components", ErrInvalidVersion, raw)
	}

	var nums [3]uint64
	for i, part := range parts {
		// strconv.ParseUint accepts "+5"; require plain digits.
		if part == "" || strings.IndexFunc(part, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
			return Version{}, fmt.Errorf("%w: %q: component %q is not a non-negative integer", ErrInvalidVersion, raw, part)
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, raw, err)
		}
		nums[i] = n
	}

	return Version{major: nums[0], minor: nums[1], patch: nums[2]}, nil
}

// MustParseVersion is like ParseVersion but panics on error.
// Intended for tests and compile-time constants only.
func MustParseVersion(raw string) Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.major }

// Minor returns the minor component.
func (v Version) Minor() uint64 { return v.minor }

// Patch returns the patch component.
func (v Version) Patch() uint64 { return v.patch }

// String returns the canonical "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// Compare orders versions lexicographically by (major, minor, patch).
// It returns -1 if v < other, 0 if equal, 1 if v > other.
func (v Version) Compare(other Version) int {
	if v.major != other.major {
		return cmpUint(v.major, other.major)
	}
	if v.minor != other.minor {
		return cmpUint(v.minor, other.minor)
	}
	return cmpUint(v.patch, other.patch)
}

// Equal reports whether both versions are identical.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// LessThan reports whether v orders before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// MarshalJSON encodes the version as its canonical string form.
func (v Version) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(v.String())), nil
}

// UnmarshalJSON decodes a version from its canonical string form.
func (v *Version) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, string(data))
	}
	parsed, err := ParseVersion(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// mm converts to the Masterminds representation for constraint checks.
func (v Version) mm() *mm.Version {
	return mm.New(v.major, v.minor, v.patch, "", "")
}

// Requirement is an immutable predicate over Version, parsed once per
// declared dependency from cargo range syntax.
type Requirement struct {
	raw string
	c   *mm.Constraints
}

// ParseRequirement parses a cargo-style version requirement.
//
// A bare version (e.g. "1", "0.3", "1.2.3") is normalized to caret
// semantics before constraint parsing, matching cargo's default.
// Explicit operators (=, >=, >, <, <=, ^, ~), wildcard components, and
// comma-separated AND clauses pass through unchanged. "*" and the empty
// string accept any version.
func ParseRequirement(raw string) (Requirement, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "*" {
		c, err := mm.NewConstraint("*")
		if err != nil {
			return Requirement{}, fmt.Errorf("%w: %q: %v", ErrInvalidRequirement, raw, err)
		}
		return Requirement{raw: trimmed, c: c}, nil
	}

	clauses := strings.Split(trimmed, ",")
	for i, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return Requirement{}, fmt.Errorf("%w: %q: empty clause", ErrInvalidRequirement, raw)
		}
		if isBareVersion(clause) {
			clause = "^" + clause
		}
		clauses[i] = clause
	}

	c, err := mm.NewConstraint(strings.Join(clauses, ", "))
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q: %v", ErrInvalidRequirement, raw, err)
	}
	return Requirement{raw: trimmed, c: c}, nil
}

// MustParseRequirement is like ParseRequirement but panics on error.
// Intended for tests only.
func MustParseRequirement(raw string) Requirement {
	r, err := ParseRequirement(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// isBareVersion reports whether the clause is a plain version with no
// operator or wildcard, i.e. only digits and dots. Only these clauses
// receive implicit caret semantics.
func isBareVersion(clause string) bool {
	for _, r := range clause {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return len(clause) > 0
}

// String returns the requirement as originally written (trimmed).
func (r Requirement) String() string { return r.raw }

// Check reports whether the version satisfies the requirement.
// The zero-value Requirement satisfies nothing.
func (r Requirement) Check(v Version) bool {
	if r.c == nil {
		return false
	}
	return r.c.Check(v.mm())
}

// MarshalJSON encodes the requirement as its source string.
func (r Requirement) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.raw)), nil
}

// UnmarshalJSON decodes and re-parses a requirement from its source string.
func (r *Requirement) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequirement, string(data))
	}
	parsed, err := ParseRequirement(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MaxSatisfying returns the highest version in candidates that satisfies
// the requirement, or false if none does. Ties between equal versions are
// broken by the version ordering alone, never by slice order, so the
// result is deterministic for any permutation of candidates.
func MaxSatisfying(r Requirement, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !r.Check(candidate) {
			continue
		}
		if !found || best.LessThan(candidate) {
			best = candidate
			found = true
		}
	}
	return best, found
}

// Max returns the highest version in candidates, or false if empty.
func Max(candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !found || best.LessThan(candidate) {
			best = candidate
			found = true
		}
	}
	return best, found
}
