package core

import "errors"

// Error kinds the workflow distinguishes. Services wrap these with
// fmt.Errorf("%w: ...") so callers can branch on errors.Is while still
// getting a human-readable reason.
var (
	// ErrValidation marks malformed or missing required input.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence marks an unreachable store or a rejected write on the
	// primary path.
	ErrPersistence = errors.New("persistence failed")

	// ErrConflict marks a decision attempt on an already-decided change, or
	// an approved add whose part number already exists.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a referenced change or item that is absent.
	ErrNotFound = errors.New("not found")

	// ErrNotification marks a Notifier failure. Always non-fatal to the
	// operation that triggered it: reported alongside success, never
	// escalated.
	ErrNotification = errors.New("notification failed")
)
