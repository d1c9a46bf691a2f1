package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// ReviewLogStore persists the append-only review history. Appending the
// same event twice is a no-op keyed on the event ID, matching the usage
// counters' idempotence.
// Version: 1.0
type ReviewLogStore interface {
	// Append writes one review log entry. Replaying an event ID that has
	// already been logged succeeds without writing a second row.
	Append(ctx context.Context, entry *domain.ReviewLog) error

	// ListByCard returns the review history for one card, newest first,
	// limited to limit entries (0 = no limit).
	ListByCard(ctx context.Context, userID, cardID uuid.UUID, limit int) ([]*domain.ReviewLog, error)

	// WithTx returns a ReviewLogStore bound to the given transaction.
	WithTx(tx *sql.Tx) ReviewLogStore
}
