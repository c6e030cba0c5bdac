package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mirrorscan/mirrorscan/internal/semver"
)

// ErrMalformedPackageID is returned when a registry line cannot be split
// into a package name and a valid version.
var ErrMalformedPackageID = errors.New("malformed package identifier")

// PackageID identifies one concrete artifact: a package name at an exact
// version. It is the unit of registry membership.
type PackageID struct {
	Name    string         `json:"name"`
	Version semver.Version `json:"version"`
}

// ParsePackageID parses a registry line of the form "name-version".
//
// Package names may themselves contain dashes, so the split point is the
// LAST dash in the line (e.g. "serde-json-1.0.0" yields name "serde-json").
// The suffix after that dash must parse as a strict version; otherwise an
// error wrapping ErrMalformedPackageID quotes the line verbatim.
func ParsePackageID(line string) (PackageID, error) {
	idx := strings.LastIndex(line, "-")
	if idx <= 0 || idx == len(line)-1 {
		return PackageID{}, fmt.Errorf("%w: %q", ErrMalformedPackageID, line)
	}

	version, err := semver.ParseVersion(line[idx+1:])
	if err != nil {
		return PackageID{}, fmt.Errorf("%w: %q: %v", ErrMalformedPackageID, line, err)
	}

	return PackageID{Name: line[:idx], Version: version}, nil
}

// String returns the canonical registry line form "name-version".
func (p PackageID) String() string {
	return p.Name + "-" + p.Version.String()
}

// DependencyEntry is one entry from the project's resolved dependency
// graph: the declared requirement plus the version the upstream resolver
// actually picked, independent of what the offline mirror holds.
type DependencyEntry struct {
	// Name is the package name.
	Name string `json:"name"`

	// Requirement is the declared version requirement for the package.
	Requirement semver.Requirement `json:"requirement"`

	// Resolved is the exact version the resolver selected.
	Resolved semver.Version `json:"resolved"`
}
