// Package config provides configuration structures and utilities for Mirrorscan.
// It defines the main configuration options for auditing project manifests
// against an offline registry, batch settings, and report generation preferences.
package config
