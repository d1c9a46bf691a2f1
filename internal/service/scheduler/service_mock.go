package scheduler

import (
	"context"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/domain/srs"
)

// MockService is a function-field mock of the Service interface for
// handler tests.
type MockService struct {
	GetCardStateFunc  func(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)
	RateCardFunc      func(ctx context.Context, userID, projectID, cardID uuid.UUID, submission RatingSubmission) (*domain.CardSchedulingState, error)
	GetNextCardFunc   func(ctx context.Context, userID, projectID uuid.UUID) (uuid.UUID, error)
	GetDueStatsFunc   func(ctx context.Context, userID, projectID uuid.UUID) (*srs.Stats, error)
	ClearLeechFunc    func(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)
	SuspendCardFunc   func(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)
	UnsuspendCardFunc func(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)
}

var _ Service = (*MockService)(nil)

// GetCardState delegates to GetCardStateFunc when set.
func (m *MockService) GetCardState(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	if m.GetCardStateFunc != nil {
		return m.GetCardStateFunc(ctx, userID, projectID, cardID)
	}
	return nil, nil
}

// RateCard delegates to RateCardFunc when set.
func (m *MockService) RateCard(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
	submission RatingSubmission,
) (*domain.CardSchedulingState, error) {
	if m.RateCardFunc != nil {
		return m.RateCardFunc(ctx, userID, projectID, cardID, submission)
	}
	return nil, nil
}

// GetNextCard delegates to GetNextCardFunc when set.
func (m *MockService) GetNextCard(
	ctx context.Context,
	userID, projectID uuid.UUID,
) (uuid.UUID, error) {
	if m.GetNextCardFunc != nil {
		return m.GetNextCardFunc(ctx, userID, projectID)
	}
	return uuid.Nil, ErrNoCardsDue
}

// GetDueStats delegates to GetDueStatsFunc when set.
func (m *MockService) GetDueStats(
	ctx context.Context,
	userID, projectID uuid.UUID,
) (*srs.Stats, error) {
	if m.GetDueStatsFunc != nil {
		return m.GetDueStatsFunc(ctx, userID, projectID)
	}
	return &srs.Stats{}, nil
}

// ClearLeech delegates to ClearLeechFunc when set.
func (m *MockService) ClearLeech(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	if m.ClearLeechFunc != nil {
		return m.ClearLeechFunc(ctx, userID, projectID, cardID)
	}
	return nil, nil
}

// SuspendCard delegates to SuspendCardFunc when set.
func (m *MockService) SuspendCard(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	if m.SuspendCardFunc != nil {
		return m.SuspendCardFunc(ctx, userID, projectID, cardID)
	}
	return nil, nil
}

// UnsuspendCard delegates to UnsuspendCardFunc when set.
func (m *MockService) UnsuspendCard(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	if m.UnsuspendCardFunc != nil {
		return m.UnsuspendCardFunc(ctx, userID, projectID, cardID)
	}
	return nil, nil
}
