package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// SettingsStore provides the raw override records the settings resolver
// merges. Both methods return ErrSettingsNotFound when no record exists at
// that tier, which the resolver treats as "inherit everything".
// Version: 1.0
type SettingsStore interface {
	// GetProjectOverride returns the settings override for one project.
	GetProjectOverride(ctx context.Context, userID, projectID uuid.UUID) (*domain.SettingsOverride, error)

	// GetUserDefaults returns the user's default settings override.
	GetUserDefaults(ctx context.Context, userID uuid.UUID) (*domain.SettingsOverride, error)
}
