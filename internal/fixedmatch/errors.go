// internal/fixedmatch/errors.go
package fixedmatch

import "errors"

// Business outcomes are values, not panics: callers render them directly.
// Only infrastructure faults (store unreachable, bad SQL) are returned as
// wrapped opaque errors.
var (
	// Not found
	ErrMatchNotFound       = errors.New("match not found")
	ErrProvisionalNotFound = errors.New("provisional match not found")

	// Invalid state
	ErrNotPlaceholder    = errors.New("match is not a placeholder")
	ErrAlreadyHasPlayers = errors.New("match already has players")
	ErrMatchInPast       = errors.New("match is in the past")
	ErrNotPrivate        = errors.New("match is not private")
	ErrInvalidRenewal    = errors.New("match is not valid for renewal")

	// Resource exhausted
	ErrNoCourtAvailable = errors.New("no court available for the requested time")

	// Window expired
	ErrRenewalExpired = errors.New("renewal window has expired")

	// Unauthorized
	ErrNotOrganizer = errors.New("only the organizer can perform this action")
)
