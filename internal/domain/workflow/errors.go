package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not configured for the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every guard for a configured trigger rejects it
	ErrGuardFailed = errors.New("guard condition failed")
)

// Error taxonomy surfaced by workflow operations. Callers match with errors.Is.
var (
	// ErrValidation marks malformed or missing input
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized marks a role or ownership mismatch
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidState marks an operation attempted from the wrong status
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound marks an unknown request
	ErrNotFound = errors.New("not found")

	// ErrDispatch marks a cart dispatch failure. It is recorded as data, never returned to approvers.
	ErrDispatch = errors.New("cart dispatch failed")
)
