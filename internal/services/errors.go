package services

import "errors"

// Outcome kinds the handlers map to HTTP statuses. Callers match these with
// errors.Is; everything else is treated as an internal error.
var (
	// ErrKwekNotFound means no kwek exists with the given id.
	ErrKwekNotFound = errors.New("kwek not found")

	// ErrNotKwekOwner means the kwek exists but belongs to another user.
	// Kept distinct from ErrKwekNotFound: existence is not hidden from
	// unauthorized callers.
	ErrNotKwekOwner = errors.New("kwek does not belong to caller")

	// ErrUserNotFound means no local user matches the given username.
	ErrUserNotFound = errors.New("user not found")

	// ErrCallerNotProvisioned means an authenticated subject has no local
	// user record. Every valid token holder is expected to have been
	// provisioned via the webhook, so this is a provisioning inconsistency,
	// not a normal request outcome.
	ErrCallerNotProvisioned = errors.New("no local user for authenticated subject")

	// ErrUpstreamUserNotFound means the identity provider has no user for
	// the requested subject id.
	ErrUpstreamUserNotFound = errors.New("identity provider has no such user")

	// ErrUserAlreadyExists means a local user is already linked to the
	// subject id being provisioned.
	ErrUserAlreadyExists = errors.New("user already exists for subject")
)
