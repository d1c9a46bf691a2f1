package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// CardStateStore persists per-(user, project, card) scheduling state.
// Version: 1.0
type CardStateStore interface {
	// GetOrCreate returns the scheduling state for a card, creating the
	// row atomically if it does not exist yet ("create if absent"). This
	// is the only way a state row comes into existence, which closes the
	// race window where a card could be visible with no state. The
	// startingEase seeds a freshly created row.
	GetOrCreate(
		ctx context.Context,
		userID, projectID, cardID uuid.UUID,
		startingEase float64,
	) (*domain.CardSchedulingState, error)

	// GetForUpdate retrieves a card's state with a row-level lock
	// (SELECT ... FOR UPDATE). Must be used inside a transaction whenever
	// the caller intends to write the row back, so two concurrent ratings
	// of the same card serialize instead of losing an update.
	// Returns ErrCardStateNotFound if the row does not exist.
	GetForUpdate(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)

	// ListByProject returns every state row for a user's project. Rows
	// are returned as stored; invariant checking is the caller's concern
	// so a single corrupt row cannot fail the whole listing.
	ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.CardSchedulingState, error)

	// Update writes a card's state back. Returns ErrCardStateNotFound if
	// the row does not exist.
	Update(ctx context.Context, state *domain.CardSchedulingState) error

	// WithTx returns a CardStateStore bound to the given transaction.
	WithTx(tx *sql.Tx) CardStateStore
}
