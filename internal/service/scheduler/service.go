// Package scheduler orchestrates the scheduling engine over the store
// boundary: it resolves settings, runs the pure rating state machine
// inside a transaction, keeps the daily counters in step, and emits cache
// invalidation signals for every state-affecting write.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/domain/srs"
)

// RatingSubmission is one rating event as submitted by the host. EventID
// is caller-supplied and makes the whole submission idempotent: retrying
// after a transient failure can neither double-count usage nor write a
// second review log row. SiblingIDs carries the grouping membership for
// bury_siblings; the engine never decides grouping itself.
type RatingSubmission struct {
	Rating     domain.Rating `json:"rating"`
	EventID    uuid.UUID     `json:"event_id"`
	SiblingIDs []uuid.UUID   `json:"sibling_ids,omitempty"`
}

// Service is the operation surface the engine exposes to its host.
type Service interface {
	// GetCardState returns a card's scheduling state, creating it
	// atomically on first access.
	GetCardState(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)

	// RateCard applies a rating to a card and returns the new state. The
	// read-modify-write runs in one transaction with the row locked, so
	// concurrent ratings of the same card serialize. Returns
	// domain.ErrCardSuspended (wrapped) when the card accepts no ratings.
	RateCard(ctx context.Context, userID, projectID, cardID uuid.UUID, submission RatingSubmission) (*domain.CardSchedulingState, error)

	// GetNextCard picks the next card to study in a project. Returns
	// ErrNoCardsDue when nothing is eligible; that is the normal end of a
	// study session, not a failure.
	GetNextCard(ctx context.Context, userID, projectID uuid.UUID) (uuid.UUID, error)

	// GetDueStats computes the queue statistics for a project with the
	// same eligibility rules GetNextCard selects by.
	GetDueStats(ctx context.Context, userID, projectID uuid.UUID) (*srs.Stats, error)

	// ClearLeech clears a card's sticky leech flag.
	ClearLeech(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)

	// SuspendCard takes a card out of study until unsuspended.
	SuspendCard(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)

	// UnsuspendCard returns a suspended card to its review cycle.
	UnsuspendCard(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)
}

// Common error types for the scheduler service.
var (
	// ErrNoCardsDue indicates nothing in the project is eligible to study.
	ErrNoCardsDue = errors.New("no cards due for study")

	// ErrCardStateNotFound indicates the card's scheduling state does not
	// exist (the owning card was deleted).
	ErrCardStateNotFound = errors.New("card scheduling state not found")

	// ErrInvalidRating indicates the submitted rating is not one of
	// again/hard/good/easy.
	ErrInvalidRating = errors.New("invalid rating")
)

// ServiceError wraps errors from the scheduler service with the failed
// operation, so consumers differentiate with errors.As instead of string
// matching.
type ServiceError struct {
	Operation string // e.g. "rate_card", "get_next_card"
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
