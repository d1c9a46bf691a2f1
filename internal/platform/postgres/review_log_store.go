package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/platform/logger"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// ReviewLogStore is the PostgreSQL implementation of store.ReviewLogStore.
type ReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewReviewLogStore creates a PostgreSQL review log store. A nil logger
// falls back to slog.Default().
func NewReviewLogStore(db store.DBTX, log *slog.Logger) *ReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReviewLogStore{
		db:     db,
		logger: log.With(slog.String("component", "review_log_store")),
	}
}

var _ store.ReviewLogStore = (*ReviewLogStore)(nil)

// Append implements store.ReviewLogStore.Append. The event ID is the
// primary key, so replaying an already-logged event writes nothing.
func (s *ReviewLogStore) Append(ctx context.Context, entry *domain.ReviewLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO review_logs
			(event_id, user_id, project_id, card_id, rating,
			 state_before, state_after, interval_before, interval_after,
			 ease_before, ease_after, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.EventID, entry.UserID, entry.ProjectID, entry.CardID, entry.Rating,
		entry.StateBefore, entry.StateAfter, entry.IntervalBefore, entry.IntervalAfter,
		entry.EaseBefore, entry.EaseAfter, entry.ReviewedAt)
	if err != nil {
		log.Error("failed to append review log",
			slog.String("event_id", entry.EventID.String()),
			slog.String("card_id", entry.CardID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("review_log", "append",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return nil
}

// ListByCard implements store.ReviewLogStore.ListByCard.
func (s *ReviewLogStore) ListByCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
	limit int,
) ([]*domain.ReviewLog, error) {
	query := `
		SELECT event_id, user_id, project_id, card_id, rating,
			state_before, state_after, interval_before, interval_after,
			ease_before, ease_after, reviewed_at
		FROM review_logs
		WHERE user_id = $1 AND card_id = $2
		ORDER BY reviewed_at DESC
	`
	args := []any{userID, cardID}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("review_log", "list_by_card",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.ReviewLog
	for rows.Next() {
		var entry domain.ReviewLog
		if err := rows.Scan(
			&entry.EventID, &entry.UserID, &entry.ProjectID, &entry.CardID, &entry.Rating,
			&entry.StateBefore, &entry.StateAfter, &entry.IntervalBefore, &entry.IntervalAfter,
			&entry.EaseBefore, &entry.EaseAfter, &entry.ReviewedAt,
		); err != nil {
			return nil, store.NewStoreError("review_log", "list_by_card",
				fmt.Errorf("%w: %v", store.ErrUnavailable, err))
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_log", "list_by_card",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return entries, nil
}

// WithTx implements store.ReviewLogStore.WithTx.
func (s *ReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &ReviewLogStore{db: tx, logger: s.logger}
}
