package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// SettingsStore is the PostgreSQL implementation of store.SettingsStore.
// Override records are stored as JSONB so the set of overridable fields
// can grow without schema churn; the resolver validates every value it
// reads, so a stale or hand-edited payload degrades to a tier fallback
// rather than an error.
type SettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewSettingsStore creates a PostgreSQL settings store. A nil logger falls
// back to slog.Default().
func NewSettingsStore(db store.DBTX, log *slog.Logger) *SettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SettingsStore{
		db:     db,
		logger: log.With(slog.String("component", "settings_store")),
	}
}

var _ store.SettingsStore = (*SettingsStore)(nil)

// GetProjectOverride implements store.SettingsStore.GetProjectOverride.
func (s *SettingsStore) GetProjectOverride(
	ctx context.Context,
	userID, projectID uuid.UUID,
) (*domain.SettingsOverride, error) {
	return s.get(ctx, userID, projectID)
}

// GetUserDefaults implements store.SettingsStore.GetUserDefaults. User
// defaults are stored under the nil project ID.
func (s *SettingsStore) GetUserDefaults(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.SettingsOverride, error) {
	return s.get(ctx, userID, uuid.Nil)
}

func (s *SettingsStore) get(ctx context.Context, userID, projectID uuid.UUID) (*domain.SettingsOverride, error) {
	query := `
		SELECT payload
		FROM settings_overrides
		WHERE user_id = $1 AND project_id = $2
	`
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, userID, projectID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSettingsNotFound
		}
		return nil, store.NewStoreError("settings_override", "get",
			fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}

	var override domain.SettingsOverride
	if err := json.Unmarshal(payload, &override); err != nil {
		// A corrupt payload behaves like an absent record: the resolver
		// falls through to the next tier instead of failing the call.
		s.logger.Warn("discarding unparseable settings override",
			slog.String("user_id", userID.String()),
			slog.String("project_id", projectID.String()),
			slog.String("error", err.Error()))
		return nil, store.ErrSettingsNotFound
	}
	return &override, nil
}
