package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidRating is returned when a rating value is not one of
	// Again, Hard, Good or Easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrInvalidCardState is returned when a card state value is unknown.
	ErrInvalidCardState = errors.New("invalid card state")

	// ErrCardSuspended is returned when a rating is submitted against a
	// suspended card. The card must be unsuspended explicitly before it
	// can be graded again.
	ErrCardSuspended = errors.New("card is suspended and cannot be rated")

	// ErrCardNotSuspended is returned when unsuspend is requested for a
	// card that is not suspended.
	ErrCardNotSuspended = errors.New("card is not suspended")
)

// InvariantViolationError reports a loaded CardSchedulingState that fails
// its own invariants (ease out of range, negative interval, learning step
// out of range). It identifies the offending card so the host can decide
// whether to reset or quarantine it; it is never silently repaired, and it
// must never take down scheduling for the rest of a project.
type InvariantViolationError struct {
	CardID uuid.UUID
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("card %s violates invariant on %s: %s", e.CardID, e.Field, e.Reason)
}

// IsInvariantViolation reports whether err is (or wraps) an
// InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}
