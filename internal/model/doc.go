// Package model defines the data structures shared across mirrorscan:
// package identifiers, dependency entries, gap classifications, and the
// audit report produced by the satisfaction engine.
package model
