package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	// Entity-specific variants below wrap it so errors.Is(err, ErrNotFound)
	// matches all of them.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrUnavailable is returned when the underlying store cannot be
	// reached or a statement fails for infrastructure reasons. Callers
	// treat it as retryable; no partial write has been applied.
	ErrUnavailable = errors.New("store unavailable")

	// ErrCardStateNotFound indicates the scheduling state row for a
	// (user, project, card) triple does not exist.
	ErrCardStateNotFound = fmt.Errorf("%w: card scheduling state", ErrNotFound)

	// ErrSettingsNotFound indicates no settings override record exists at
	// the requested tier. This is a normal condition: the resolver simply
	// falls through to the next tier.
	ErrSettingsNotFound = fmt.Errorf("%w: settings override", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError wraps a failure with the entity and operation for context,
// while preserving the underlying error for errors.Is/As.
type StoreError struct {
	Entity    string // e.g. "card_state", "daily_usage"
	Operation string // e.g. "get_for_update", "record_review"
	Err       error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation on %s failed: %v", e.Operation, e.Entity, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError for the given entity and operation.
func NewStoreError(entity, operation string, err error) *StoreError {
	return &StoreError{Entity: entity, Operation: operation, Err: err}
}
