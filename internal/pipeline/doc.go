// Package pipeline orchestrates the audit flow: resolve the dependency
// graph, load the offline registry, run the satisfaction engine, and
// optionally persist the report. A batch processor audits multiple
// project manifests concurrently against one shared registry listing.
package pipeline
