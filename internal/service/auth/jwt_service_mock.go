package auth

import (
	"context"

	"github.com/google/uuid"
)

// MockJWTService is a function-field mock of JWTService for testing.
type MockJWTService struct {
	GenerateTokenFunc func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateTokenFunc func(ctx context.Context, tokenString string) (*Claims, error)
}

var _ JWTService = (*MockJWTService)(nil)

// GenerateToken delegates to GenerateTokenFunc when set.
func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(ctx, userID)
	}
	return "mock-token", nil
}

// ValidateToken delegates to ValidateTokenFunc when set.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, tokenString)
	}
	return nil, ErrInvalidToken
}
