package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/platform/logger"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// CardStateStore is the PostgreSQL implementation of store.CardStateStore.
type CardStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewCardStateStore creates a PostgreSQL card state store. A nil logger
// falls back to slog.Default().
func NewCardStateStore(db store.DBTX, log *slog.Logger) *CardStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CardStateStore{
		db:     db,
		logger: log.With(slog.String("component", "card_state_store")),
	}
}

var _ store.CardStateStore = (*CardStateStore)(nil)

const cardStateColumns = `user_id, project_id, card_id, state, due, interval_days,
	ease, learning_step, lapses, repetitions, is_leech, created_at, updated_at`

// GetOrCreate implements store.CardStateStore.GetOrCreate. The insert is
// ON CONFLICT DO NOTHING, so concurrent first accesses of the same card
// agree on a single row; the read-back then returns whichever write won.
func (s *CardStateStore) GetOrCreate(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
	startingEase float64,
) (*domain.CardSchedulingState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := time.Now().UTC()

	insert := `
		INSERT INTO card_scheduling_states
			(user_id, project_id, card_id, state, due, interval_days,
			 ease, learning_step, lapses, repetitions, is_leech, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, 0, 0, 0, FALSE, $7, $7)
		ON CONFLICT (user_id, project_id, card_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, insert,
		userID, projectID, cardID, domain.CardStateNew, now, startingEase, now)
	if err != nil {
		log.Error("failed to create card state row",
			slog.String("card_id", cardID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card_state", "get_or_create",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	query := `
		SELECT ` + cardStateColumns + `
		FROM card_scheduling_states
		WHERE user_id = $1 AND project_id = $2 AND card_id = $3
	`
	state, err := scanCardState(s.db.QueryRowContext(ctx, query, userID, projectID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The row we just ensured is gone: the card was deleted
			// concurrently and the cascade removed it.
			return nil, store.ErrCardStateNotFound
		}
		return nil, store.NewStoreError("card_state", "get_or_create",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return state, nil
}

// GetForUpdate implements store.CardStateStore.GetForUpdate.
func (s *CardStateStore) GetForUpdate(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	query := `
		SELECT ` + cardStateColumns + `
		FROM card_scheduling_states
		WHERE user_id = $1 AND project_id = $2 AND card_id = $3
		FOR UPDATE
	`
	state, err := scanCardState(s.db.QueryRowContext(ctx, query, userID, projectID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrCardStateNotFound
		}
		return nil, store.NewStoreError("card_state", "get_for_update",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return state, nil
}

// ListByProject implements store.CardStateStore.ListByProject.
func (s *CardStateStore) ListByProject(
	ctx context.Context,
	userID, projectID uuid.UUID,
) ([]*domain.CardSchedulingState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + cardStateColumns + `
		FROM card_scheduling_states
		WHERE user_id = $1 AND project_id = $2
		ORDER BY created_at, card_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID, projectID)
	if err != nil {
		log.Error("failed to list card states",
			slog.String("project_id", projectID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("card_state", "list_by_project",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	defer func() { _ = rows.Close() }()

	var states []*domain.CardSchedulingState
	for rows.Next() {
		state, err := scanCardState(rows)
		if err != nil {
			return nil, store.NewStoreError("card_state", "list_by_project",
				fmt.Errorf("%w: %v", store.ErrUnavailable, err))
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card_state", "list_by_project",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	return states, nil
}

// Update implements store.CardStateStore.Update.
func (s *CardStateStore) Update(ctx context.Context, state *domain.CardSchedulingState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE card_scheduling_states
		SET state = $4, due = $5, interval_days = $6, ease = $7,
			learning_step = $8, lapses = $9, repetitions = $10,
			is_leech = $11, updated_at = $12
		WHERE user_id = $1 AND project_id = $2 AND card_id = $3
	`
	result, err := s.db.ExecContext(ctx, query,
		state.UserID, state.ProjectID, state.CardID,
		state.State, state.Due, state.Interval, state.Ease,
		state.LearningStep, state.Lapses, state.Repetitions,
		state.IsLeech, state.UpdatedAt)
	if err != nil {
		log.Error("failed to update card state",
			slog.String("card_id", state.CardID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("card_state", "update",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("card_state", "update",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
	if affected == 0 {
		return store.ErrCardStateNotFound
	}
	return nil
}

// WithTx implements store.CardStateStore.WithTx.
func (s *CardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return &CardStateStore{db: tx, logger: s.logger}
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCardState(row rowScanner) (*domain.CardSchedulingState, error) {
	var state domain.CardSchedulingState
	err := row.Scan(
		&state.UserID, &state.ProjectID, &state.CardID,
		&state.State, &state.Due, &state.Interval,
		&state.Ease, &state.LearningStep, &state.Lapses,
		&state.Repetitions, &state.IsLeech,
		&state.CreatedAt, &state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}
