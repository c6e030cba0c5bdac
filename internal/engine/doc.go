// Package engine implements the dependency satisfaction engine: a single
// deterministic pass over a project's resolved dependency list against an
// offline registry index, classifying every unsatisfiable requirement by
// the risk of the change needed to close it.
package engine
