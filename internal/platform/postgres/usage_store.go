package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/platform/logger"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// DailyUsageStore is the PostgreSQL implementation of
// store.DailyUsageStore. Idempotence is anchored in the usage_events
// table: each (event, scope, kind) is claimed with an ON CONFLICT DO
// NOTHING insert, and the counter is only bumped when the claim actually
// inserted a row. A retried event therefore cannot double count.
type DailyUsageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewDailyUsageStore creates a PostgreSQL daily usage store. A nil logger
// falls back to slog.Default().
func NewDailyUsageStore(db store.DBTX, log *slog.Logger) *DailyUsageStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &DailyUsageStore{
		db:     db,
		logger: log.With(slog.String("component", "daily_usage_store")),
	}
}

var _ store.DailyUsageStore = (*DailyUsageStore)(nil)

// Counter kinds recorded in usage_events.
const (
	usageKindNewCard = "new_card"
	usageKindReview  = "review"
)

// GetUsage implements store.DailyUsageStore.GetUsage. A missing row is a
// zero-valued DailyUsage, never an error.
func (s *DailyUsageStore) GetUsage(
	ctx context.Context,
	scope domain.UsageScope,
	day string,
) (domain.DailyUsage, error) {
	usage := domain.DailyUsage{Scope: scope, Day: day}

	query := `
		SELECT new_cards_studied, reviews_completed
		FROM daily_usage
		WHERE user_id = $1 AND project_id = $2 AND day = $3
	`
	err := s.db.QueryRowContext(ctx, query, scope.UserID, scope.ProjectID, day).
		Scan(&usage.NewCardsStudied, &usage.ReviewsCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usage, nil
		}
		return domain.DailyUsage{}, store.NewStoreError("daily_usage", "get_usage",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return usage, nil
}

// RecordNewCard implements store.DailyUsageStore.RecordNewCard.
func (s *DailyUsageStore) RecordNewCard(
	ctx context.Context,
	scope domain.UsageScope,
	day string,
	eventID uuid.UUID,
) error {
	return s.record(ctx, scope, day, eventID, usageKindNewCard)
}

// RecordReview implements store.DailyUsageStore.RecordReview.
func (s *DailyUsageStore) RecordReview(
	ctx context.Context,
	scope domain.UsageScope,
	day string,
	eventID uuid.UUID,
) error {
	return s.record(ctx, scope, day, eventID, usageKindReview)
}

// record claims the (event, scope, kind) tuple and increments the matching
// counter only when the claim is new.
func (s *DailyUsageStore) record(
	ctx context.Context,
	scope domain.UsageScope,
	day string,
	eventID uuid.UUID,
	kind string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	claim := `
		INSERT INTO usage_events (event_id, user_id, project_id, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id, project_id, kind) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, claim, eventID, scope.UserID, scope.ProjectID, kind)
	if err != nil {
		log.Error("failed to claim usage event",
			slog.String("event_id", eventID.String()),
			slog.String("scope", scope.String()),
			slog.String("kind", kind),
			slog.String("error", err.Error()))
		return store.NewStoreError("daily_usage", "record_"+kind,
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	claimed, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("daily_usage", "record_"+kind,
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	if claimed == 0 {
		// Replay of an already-recorded event; counters stay as they are.
		log.Debug("usage event already recorded",
			slog.String("event_id", eventID.String()),
			slog.String("scope", scope.String()),
			slog.String("kind", kind))
		return nil
	}

	var column string
	switch kind {
	case usageKindNewCard:
		column = "new_cards_studied"
	case usageKindReview:
		column = "reviews_completed"
	}

	// Atomic per-scope increment; concurrent submissions for the same
	// user serialize on the row.
	upsert := `
		INSERT INTO daily_usage (user_id, project_id, day, new_cards_studied, reviews_completed)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, project_id, day)
		DO UPDATE SET ` + column + ` = daily_usage.` + column + ` + 1
	`
	newInit, reviewInit := 0, 0
	if kind == usageKindNewCard {
		newInit = 1
	} else {
		reviewInit = 1
	}
	if _, err := s.db.ExecContext(ctx, upsert, scope.UserID, scope.ProjectID, day, newInit, reviewInit); err != nil {
		log.Error("failed to increment daily usage",
			slog.String("scope", scope.String()),
			slog.String("day", day),
			slog.String("kind", kind),
			slog.String("error", err.Error()))
		return store.NewStoreError("daily_usage", "record_"+kind,
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return nil
}

// WithTx implements store.DailyUsageStore.WithTx.
func (s *DailyUsageStore) WithTx(tx *sql.Tx) store.DailyUsageStore {
	return &DailyUsageStore{db: tx, logger: s.logger}
}
