// Package registry reads and writes the offline mirror listing: a flat
// text file with one "name-version" artifact per line. It exposes the
// listing as an immutable in-memory index keyed by package name, and
// handles the sorted write-back of newly approved entries.
package registry
