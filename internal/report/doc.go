// Package report renders audit reports in multiple output formats:
// human-readable text for terminals, JSON for tool integration, and
// GitHub-flavored Markdown for sharing approval decisions.
package report
