package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService validates the bearer tokens the identity service mints for
// study clients. This API never issues tokens to end users; GenerateToken
// exists for operational tooling and tests.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the given user.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken validates an access token string and extracts the
	// claims. Returns ErrExpiredToken, ErrTokenNotYetValid or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated claim set of an accepted access token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// TokenType indicates the purpose of the token; only "access" tokens
	// are accepted here.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
