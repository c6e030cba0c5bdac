// Package resolver obtains a project's resolved dependency graph from an
// external build tool. The default implementation shells out to
// `cargo metadata` and marshals its JSON output into the in-memory
// dependency model before any analysis begins; the audit engine itself
// never performs process or network I/O.
package resolver
