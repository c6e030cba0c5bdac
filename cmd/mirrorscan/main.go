// Package main provides the entry point for the Mirrorscan CLI.
//
// Mirrorscan audits a project's resolved dependency graph against an
// offline package registry. It classifies every missing artifact by the
// kind of change importing it would mean for the mirror.
//
// Usage:
//
//	mirrorscan audit ./Cargo.toml --registry-file mirror.txt
//	mirrorscan compare ./Cargo.toml
//
// See --help for all available options.
package main

// main is the entry point for Mirrorscan.
func main() {
	Execute()
}
