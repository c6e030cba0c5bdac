// Package database provides SQLite-based persistence for audit reports.
// Stored reports power the compare command, which diffs a project's
// registry gaps between audit runs.
package database
