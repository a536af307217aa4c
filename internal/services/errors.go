package services

import "errors"

// Error taxonomy surfaced to handlers. NotFound and Gone are distinct
// so callers can tell "never existed" from "you were too slow".
var (
	// ErrNotFound means the entity is absent or already purged
	ErrNotFound = errors.New("not found")

	// ErrGone means the entity existed but is expired or consumed
	ErrGone = errors.New("gone")

	// ErrInvalidTTL means a requested expiry is out of policy bounds
	ErrInvalidTTL = errors.New("invalid ttl")

	// ErrConflict means a concurrent writer won a race for the same record
	ErrConflict = errors.New("conflict")

	// ErrStorageFailure means the payload backend failed; creates surface
	// it immediately, deletes are retried by the sweep
	ErrStorageFailure = errors.New("storage failure")

	// ErrForbidden means the caller may not touch this entity
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput means the request payload fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized means the credential is missing, unknown or revoked
	ErrUnauthorized = errors.New("unauthorized")
)
