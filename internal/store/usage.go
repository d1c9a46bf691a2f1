package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// DailyUsageStore persists the per-day study counters. A missing row reads
// as zero usage; counters reset implicitly at the local day boundary via
// the day key.
// Version: 1.0
type DailyUsageStore interface {
	// GetUsage returns the counters for one scope and day. Never returns
	// ErrNotFound: an absent row is a zero-valued DailyUsage.
	GetUsage(ctx context.Context, scope domain.UsageScope, day string) (domain.DailyUsage, error)

	// RecordNewCard increments the new-cards counter for the scope and
	// day, at most once per rating event: replaying the same eventID is a
	// no-op, so a caller retrying after a transient failure cannot double
	// count.
	RecordNewCard(ctx context.Context, scope domain.UsageScope, day string, eventID uuid.UUID) error

	// RecordReview increments the reviews-completed counter with the same
	// per-event idempotence as RecordNewCard.
	RecordReview(ctx context.Context, scope domain.UsageScope, day string, eventID uuid.UUID) error

	// WithTx returns a DailyUsageStore bound to the given transaction.
	WithTx(tx *sql.Tx) DailyUsageStore
}
