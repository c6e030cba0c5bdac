package registry

import "errors"

// Registry input errors.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() for programmatic handling while the wrapped message carries
// the offending path or line.
var (
	// ErrRegistryUnreadable is returned when the registry listing file is
	// absent or cannot be read. This is fatal and surfaced before any
	// analysis starts.
	ErrRegistryUnreadable = errors.New("registry file unreadable")
)
