package service

import "errors"

// Sentinel errors shared by the session and authorization services.
// They let callers distinguish "denied" from "could not determine"
// instead of collapsing both into a silent false.
var (
	// ErrUnavailable marks a failure to reach a remote store within the
	// operation's deadline. Callers degrade to a cached value or a safe
	// default rather than surfacing this to users.
	ErrUnavailable = errors.New("remote store unavailable")

	// ErrTrialNotEligible is returned when the device already consumed
	// the requested trial kind or a trial is otherwise not startable.
	ErrTrialNotEligible = errors.New("trial not eligible")

	// ErrInvalidTrialKind is returned for unknown trial kinds.
	ErrInvalidTrialKind = errors.New("invalid trial kind")

	// errSessionExpired marks a mirrored session past its expiry.
	errSessionExpired = errors.New("session expired")
)
