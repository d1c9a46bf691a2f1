package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolabs/mnemo-api/internal/config"
)

func newTestService(t *testing.T) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "0123456789abcdef0123456789abcdef",
		TokenLifetimeMinutes: 30,
	})
	require.NoError(t, err)
	return svc.(*hmacJWTService)
}

func TestNewJWTService_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "too-short",
		TokenLifetimeMinutes: 30,
	})
	assert.Error(t, err)
}

func TestJWTService_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	userID := uuid.New()

	issued := time.Now().Add(-2 * time.Hour)
	svc.timeFunc = func() time.Time { return issued }
	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	svc.timeFunc = time.Now
	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_TamperedToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	token, err := svc.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	token, err := svc.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	other, err := NewJWTService(config.AuthConfig{
		JWTSecret:            "ffffffffffffffffffffffffffffffff",
		TokenLifetimeMinutes: 30,
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_GarbageInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.ValidateToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
