package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrNotPending is returned when a confirm transition finds the proposal
	// outside the pending state.
	ErrNotPending = errors.New("persistence: proposal not pending")
	// ErrNotConfirmed is returned when a reopen transition finds the
	// proposal outside the confirmed state.
	ErrNotConfirmed = errors.New("persistence: proposal not confirmed")
	// ErrConstraintViolation is returned when stored data would violate a
	// schema constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
