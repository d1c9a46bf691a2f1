package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/events"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeCardStateStore implements store.CardStateStore with function fields.
type fakeCardStateStore struct {
	getOrCreateFn   func(ctx context.Context, userID, projectID, cardID uuid.UUID, startingEase float64) (*domain.CardSchedulingState, error)
	getForUpdateFn  func(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error)
	listByProjectFn func(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.CardSchedulingState, error)
	updateFn        func(ctx context.Context, state *domain.CardSchedulingState) error
}

func (f *fakeCardStateStore) GetOrCreate(ctx context.Context, userID, projectID, cardID uuid.UUID, startingEase float64) (*domain.CardSchedulingState, error) {
	if f.getOrCreateFn != nil {
		return f.getOrCreateFn(ctx, userID, projectID, cardID, startingEase)
	}
	return domain.NewCardSchedulingState(userID, projectID, cardID, startingEase, testNow), nil
}

func (f *fakeCardStateStore) GetForUpdate(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error) {
	if f.getForUpdateFn != nil {
		return f.getForUpdateFn(ctx, userID, projectID, cardID)
	}
	return nil, store.ErrCardStateNotFound
}

func (f *fakeCardStateStore) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*domain.CardSchedulingState, error) {
	if f.listByProjectFn != nil {
		return f.listByProjectFn(ctx, userID, projectID)
	}
	return nil, nil
}

func (f *fakeCardStateStore) Update(ctx context.Context, state *domain.CardSchedulingState) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, state)
	}
	return nil
}

func (f *fakeCardStateStore) WithTx(tx *sql.Tx) store.CardStateStore { return f }

// fakeUsageStore implements store.DailyUsageStore with function fields.
type fakeUsageStore struct {
	getUsageFn func(ctx context.Context, scope domain.UsageScope, day string) (domain.DailyUsage, error)
}

func (f *fakeUsageStore) GetUsage(ctx context.Context, scope domain.UsageScope, day string) (domain.DailyUsage, error) {
	if f.getUsageFn != nil {
		return f.getUsageFn(ctx, scope, day)
	}
	return domain.DailyUsage{Scope: scope, Day: day}, nil
}

func (f *fakeUsageStore) RecordNewCard(ctx context.Context, scope domain.UsageScope, day string, eventID uuid.UUID) error {
	return nil
}

func (f *fakeUsageStore) RecordReview(ctx context.Context, scope domain.UsageScope, day string, eventID uuid.UUID) error {
	return nil
}

func (f *fakeUsageStore) WithTx(tx *sql.Tx) store.DailyUsageStore { return f }

// fakeSettingsStore implements store.SettingsStore. Nil overrides read as
// "no record at this tier".
type fakeSettingsStore struct {
	userDefaults    *domain.SettingsOverride
	projectOverride *domain.SettingsOverride
	err             error
}

func (f *fakeSettingsStore) GetUserDefaults(ctx context.Context, userID uuid.UUID) (*domain.SettingsOverride, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.userDefaults == nil {
		return nil, store.ErrSettingsNotFound
	}
	return f.userDefaults, nil
}

func (f *fakeSettingsStore) GetProjectOverride(ctx context.Context, userID, projectID uuid.UUID) (*domain.SettingsOverride, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.projectOverride == nil {
		return nil, store.ErrSettingsNotFound
	}
	return f.projectOverride, nil
}

// fakeReviewLogStore implements store.ReviewLogStore.
type fakeReviewLogStore struct{}

func (f *fakeReviewLogStore) Append(ctx context.Context, entry *domain.ReviewLog) error {
	return nil
}

func (f *fakeReviewLogStore) ListByCard(ctx context.Context, userID, cardID uuid.UUID, limit int) ([]*domain.ReviewLog, error) {
	return nil, nil
}

func (f *fakeReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore { return f }

type testDeps struct {
	cardStates *fakeCardStateStore
	usage      *fakeUsageStore
	settings   *fakeSettingsStore
	reviewLogs *fakeReviewLogStore
}

// newTestService wires a service over fakes. The sql.DB handle is opened
// but never connected; only the transactional paths would touch it, and
// those are exercised against a real database in the integration tests.
func newTestService(t *testing.T) (*serviceImpl, *testDeps) {
	t.Helper()

	db, err := sql.Open("pgx", "postgres://unused")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deps := &testDeps{
		cardStates: &fakeCardStateStore{},
		usage:      &fakeUsageStore{},
		settings:   &fakeSettingsStore{},
		reviewLogs: &fakeReviewLogStore{},
	}
	svc := NewService(Config{
		DB:         db,
		CardStates: deps.cardStates,
		Usage:      deps.usage,
		Settings:   deps.settings,
		ReviewLogs: deps.reviewLogs,
		Emitter:    events.NewInMemoryEmitter(nil),
	}).(*serviceImpl)
	svc.now = func() time.Time { return testNow }
	return svc, deps
}

func dueReview(userID, projectID uuid.UUID) *domain.CardSchedulingState {
	state := domain.NewCardSchedulingState(userID, projectID, uuid.New(), 2.5, testNow)
	state.State = domain.CardStateReview
	state.Interval = 10
	state.Due = testNow.Add(-time.Hour)
	return state
}

func TestNewService_NilDependenciesPanic(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewService(Config{}) })
}

func TestGetNextCard(t *testing.T) {
	t.Parallel()
	userID, projectID := uuid.New(), uuid.New()

	t.Run("returns the due card", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		card := dueReview(userID, projectID)
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{card}, nil
		}

		got, err := svc.GetNextCard(context.Background(), userID, projectID)
		require.NoError(t, err)
		assert.Equal(t, card.CardID, got)
	})

	t.Run("empty project yields no cards due", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService(t)

		_, err := svc.GetNextCard(context.Background(), userID, projectID)
		assert.ErrorIs(t, err, ErrNoCardsDue)
	})

	t.Run("project new card quota applies", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		limit := 0
		deps.settings.projectOverride = &domain.SettingsOverride{NewCardsPerDay: &limit}
		fresh := domain.NewCardSchedulingState(userID, projectID, uuid.New(), 2.5, testNow)
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{fresh}, nil
		}

		_, err := svc.GetNextCard(context.Background(), userID, projectID)
		assert.ErrorIs(t, err, ErrNoCardsDue)
	})

	t.Run("user-wide new card quota binds across projects", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		userLimit, projectLimit := 1, 10
		deps.settings.userDefaults = &domain.SettingsOverride{NewCardsPerDay: &userLimit}
		deps.settings.projectOverride = &domain.SettingsOverride{NewCardsPerDay: &projectLimit}
		deps.usage.getUsageFn = func(_ context.Context, scope domain.UsageScope, day string) (domain.DailyUsage, error) {
			usage := domain.DailyUsage{Scope: scope, Day: day}
			if !scope.IsProjectScope() {
				// The one allowed new card was studied in another project.
				usage.NewCardsStudied = 1
			}
			return usage, nil
		}
		fresh := domain.NewCardSchedulingState(userID, projectID, uuid.New(), 2.5, testNow)
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{fresh}, nil
		}

		_, err := svc.GetNextCard(context.Background(), userID, projectID)
		assert.ErrorIs(t, err, ErrNoCardsDue)
	})

	t.Run("buried cards are skipped for the session", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		card := dueReview(userID, projectID)
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{card}, nil
		}
		svc.session(userID, projectID).Bury(card.CardID)

		_, err := svc.GetNextCard(context.Background(), userID, projectID)
		assert.ErrorIs(t, err, ErrNoCardsDue)
	})

	t.Run("store failure wraps as service error", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return nil, store.ErrUnavailable
		}

		_, err := svc.GetNextCard(context.Background(), userID, projectID)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "get_next_card", svcErr.Operation)
		assert.ErrorIs(t, err, store.ErrUnavailable)
	})
}

func TestGetDueStats(t *testing.T) {
	t.Parallel()
	userID, projectID := uuid.New(), uuid.New()

	t.Run("aggregates queue counts", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		learning := domain.NewCardSchedulingState(userID, projectID, uuid.New(), 2.5, testNow)
		learning.State = domain.CardStateLearning
		learning.Due = testNow.Add(-time.Minute)
		fresh := domain.NewCardSchedulingState(userID, projectID, uuid.New(), 2.5, testNow)
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{learning, dueReview(userID, projectID), fresh}, nil
		}

		stats, err := svc.GetDueStats(context.Background(), userID, projectID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DueLearningCards)
		assert.Equal(t, 1, stats.DueReviewCards)
		assert.Equal(t, 1, stats.AvailableNewCards)
		assert.Equal(t, 3, stats.TotalDue)
	})

	t.Run("max reviews cap from project settings", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		maxReviews := 2
		deps.settings.projectOverride = &domain.SettingsOverride{MaxReviewsPerDay: &maxReviews}
		deps.usage.getUsageFn = func(_ context.Context, scope domain.UsageScope, day string) (domain.DailyUsage, error) {
			return domain.DailyUsage{Scope: scope, Day: day, ReviewsCompleted: 1}, nil
		}
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{
				dueReview(userID, projectID),
				dueReview(userID, projectID),
				dueReview(userID, projectID),
			}, nil
		}

		stats, err := svc.GetDueStats(context.Background(), userID, projectID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DueReviewCards)
	})

	t.Run("corrupt rows counted but isolated", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		corrupt := dueReview(userID, projectID)
		corrupt.Ease = 0.1
		deps.cardStates.listByProjectFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.CardSchedulingState, error) {
			return []*domain.CardSchedulingState{corrupt, dueReview(userID, projectID)}, nil
		}

		stats, err := svc.GetDueStats(context.Background(), userID, projectID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.InvalidCards)
		assert.Equal(t, 1, stats.DueReviewCards)
	})
}

func TestGetCardState(t *testing.T) {
	t.Parallel()
	userID, projectID, cardID := uuid.New(), uuid.New(), uuid.New()

	t.Run("creates with resolved starting ease", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		ease := 2.2
		deps.settings.projectOverride = &domain.SettingsOverride{StartingEase: &ease}
		var seenEase float64
		deps.cardStates.getOrCreateFn = func(_ context.Context, u, p, c uuid.UUID, startingEase float64) (*domain.CardSchedulingState, error) {
			seenEase = startingEase
			return domain.NewCardSchedulingState(u, p, c, startingEase, testNow), nil
		}

		state, err := svc.GetCardState(context.Background(), userID, projectID, cardID)
		require.NoError(t, err)
		assert.Equal(t, 2.2, seenEase)
		assert.Equal(t, domain.CardStateNew, state.State)
		assert.Equal(t, cardID, state.CardID)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		deps.cardStates.getOrCreateFn = func(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, float64) (*domain.CardSchedulingState, error) {
			return nil, store.ErrCardStateNotFound
		}

		_, err := svc.GetCardState(context.Background(), userID, projectID, cardID)
		assert.ErrorIs(t, err, ErrCardStateNotFound)
	})

	t.Run("settings store failure is surfaced", func(t *testing.T) {
		t.Parallel()
		svc, deps := newTestService(t)
		deps.settings.err = errors.New("connection refused")

		_, err := svc.GetCardState(context.Background(), userID, projectID, cardID)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "get_card_state", svcErr.Operation)
	})
}

func TestRateCard_InvalidRating(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.RateCard(context.Background(), uuid.New(), uuid.New(), uuid.New(),
		RatingSubmission{Rating: domain.Rating("brilliant")})
	assert.ErrorIs(t, err, ErrInvalidRating)
}
