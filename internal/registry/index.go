package registry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mirrorscan/mirrorscan/internal/model"
	"github.com/mirrorscan/mirrorscan/internal/semver"
)

// Index is an in-memory view of an offline registry listing: every
// (name, version) artifact the mirror physically holds.
//
// The index is built once per run and is read-only during analysis.
// Write-back of newly approved entries happens through Merge + WriteFile
// strictly after the audit report is finalized, so there is never a
// read/write overlap with the engine.
type Index struct {
	// versions maps package name to the versions available offline,
	// kept sorted ascending so lookups are deterministic regardless of
	// the order lines appeared in the file.
	versions map[string][]semver.Version

	// entries tracks the exact line set for duplicate suppression and
	// lexicographic write-back.
	entries map[string]struct{}
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		versions: make(map[string][]semver.Version),
		entries:  make(map[string]struct{}),
	}
}

// LoadFile reads a registry listing from disk and parses it into an Index.
// A missing or unreadable file is a fatal input error; callers surface it
// before any analysis starts.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided registry path is intentional
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRegistryUnreadable, path, err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	return Parse(f)
}

// Parse reads "name-version" lines from r into an Index.
// Blank lines are skipped; surrounding whitespace is trimmed. A line that
// cannot be decomposed into a name and a strict version aborts parsing
// with an error quoting that line, never a silently dropped entry.
func Parse(r io.Reader) (*Index, error) {
	idx := NewIndex()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		id, err := model.ParsePackageID(line)
		if err != nil {
			return nil, err
		}
		idx.Add(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnreadable, err)
	}

	return idx, nil
}

// Add inserts one artifact into the index. Duplicate entries are ignored.
func (idx *Index) Add(id model.PackageID) {
	line := id.String()
	if _, ok := idx.entries[line]; ok {
		return
	}
	idx.entries[line] = struct{}{}

	vs := idx.versions[id.Name]
	pos := sort.Search(len(vs), func(i int) bool { return !vs[i].LessThan(id.Version) })
	vs = append(vs, semver.Version{})
	copy(vs[pos+1:], vs[pos:])
	vs[pos] = id.Version
	idx.versions[id.Name] = vs
}

// Versions returns the versions the mirror holds for a package name,
// sorted ascending. A name absent from the registry yields an empty
// slice; that is the expected "nothing offline" signal, not an error.
// The returned slice must not be modified.
func (idx *Index) Versions(name string) []semver.Version {
	return idx.versions[name]
}

// Contains reports whether the mirror holds this exact artifact.
func (idx *Index) Contains(id model.PackageID) bool {
	_, ok := idx.entries[id.String()]
	return ok
}

// Len returns the number of distinct artifacts in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// PackageCount returns the number of distinct package names in the index.
func (idx *Index) PackageCount() int {
	return len(idx.versions)
}

// Merge adds every entry to the index, skipping duplicates, and returns
// the number of entries actually added.
func (idx *Index) Merge(entries []model.PackageID) int {
	added := 0
	for _, e := range entries {
		if idx.Contains(e) {
			continue
		}
		idx.Add(e)
		added++
	}
	return added
}

// Lines returns every artifact line sorted lexicographically.
// This is the persisted form of the registry listing.
func (idx *Index) Lines() []string {
	lines := make([]string, 0, len(idx.entries))
	for line := range idx.entries {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// WriteFile persists the index to path, one entry per line sorted
// lexicographically, overwriting the whole file. The write goes through
// a temporary file in the same directory and a rename so a failed write
// never truncates the existing listing.
func (idx *Index) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary registry file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, line := range idx.Lines() {
		if _, err := w.WriteString(line + "\n"); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("failed to write registry file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temporary registry file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry file: %w", err)
	}
	return nil
}
