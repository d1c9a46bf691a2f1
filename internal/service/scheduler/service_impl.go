package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/domain/srs"
	"github.com/mnemolabs/mnemo-api/internal/events"
	"github.com/mnemolabs/mnemo-api/internal/platform/logger"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// Verify interface compliance at compile time.
var _ Service = (*serviceImpl)(nil)

// serviceImpl implements the Service interface.
type serviceImpl struct {
	db         *sql.DB
	cardStates store.CardStateStore
	usage      store.DailyUsageStore
	settings   store.SettingsStore
	reviewLogs store.ReviewLogStore
	resolver   *srs.Resolver
	emitter    events.Emitter
	logger     *slog.Logger

	// now is swappable for tests; defaults to UTC wall clock.
	now func() time.Time

	// sessions tracks the per-(user, project) bury sets for the current
	// study sessions. Buried cards are a UI-session concern, not
	// persisted state, so they live in memory and expire with the
	// process.
	sessions sync.Map // sessionKey -> *srs.Session
}

type sessionKey struct {
	userID    uuid.UUID
	projectID uuid.UUID
}

// Config bundles the dependencies of the scheduler service.
type Config struct {
	DB         *sql.DB
	CardStates store.CardStateStore
	Usage      store.DailyUsageStore
	Settings   store.SettingsStore
	ReviewLogs store.ReviewLogStore
	Emitter    events.Emitter
	Logger     *slog.Logger
}

// NewService creates the scheduler service implementation.
func NewService(cfg Config) Service {
	if cfg.DB == nil {
		panic("db cannot be nil")
	}
	if cfg.CardStates == nil {
		panic("cardStates cannot be nil")
	}
	if cfg.Usage == nil {
		panic("usage store cannot be nil")
	}
	if cfg.Settings == nil {
		panic("settings store cannot be nil")
	}
	if cfg.ReviewLogs == nil {
		panic("review log store cannot be nil")
	}
	if cfg.Emitter == nil {
		panic("emitter cannot be nil")
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &serviceImpl{
		db:         cfg.DB,
		cardStates: cfg.CardStates,
		usage:      cfg.Usage,
		settings:   cfg.Settings,
		reviewLogs: cfg.ReviewLogs,
		resolver:   srs.NewResolver(log),
		emitter:    cfg.Emitter,
		logger:     log.With(slog.String("component", "scheduler_service")),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// resolveSettings loads both override tiers and returns the project-
// effective settings plus the user-effective settings (the latter carries
// the user-wide daily limits). A missing tier is simply absent; a store
// failure is surfaced as retryable.
func (s *serviceImpl) resolveSettings(
	ctx context.Context,
	userID, projectID uuid.UUID,
) (project domain.EffectiveSettings, user domain.EffectiveSettings, err error) {
	userOverride, err := s.settings.GetUserDefaults(ctx, userID)
	if err != nil && !store.IsNotFoundError(err) {
		return project, user, fmt.Errorf("failed to load user settings: %w", err)
	}
	projectOverride, err := s.settings.GetProjectOverride(ctx, userID, projectID)
	if err != nil && !store.IsNotFoundError(err) {
		return project, user, fmt.Errorf("failed to load project settings: %w", err)
	}

	project = s.resolver.Resolve(projectOverride, userOverride)
	user = s.resolver.Resolve(nil, userOverride)
	return project, user, nil
}

// GetCardState implements Service.GetCardState.
func (s *serviceImpl) GetCardState(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	settings, _, err := s.resolveSettings(ctx, userID, projectID)
	if err != nil {
		return nil, NewServiceError("get_card_state", "settings resolution failed", err)
	}

	state, err := s.cardStates.GetOrCreate(ctx, userID, projectID, cardID, settings.StartingEase)
	if err != nil {
		if errors.Is(err, store.ErrCardStateNotFound) {
			return nil, ErrCardStateNotFound
		}
		log.Error("failed to load card state",
			slog.String("card_id", cardID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError("get_card_state", "store access failed", err)
	}
	return state, nil
}

// RateCard implements Service.RateCard.
func (s *serviceImpl) RateCard(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
	submission RatingSubmission,
) (*domain.CardSchedulingState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !submission.Rating.IsValid() {
		return nil, ErrInvalidRating
	}
	if submission.EventID == uuid.Nil {
		submission.EventID = uuid.New()
	}

	settings, _, err := s.resolveSettings(ctx, userID, projectID)
	if err != nil {
		return nil, NewServiceError("rate_card", "settings resolution failed", err)
	}

	now := s.now()
	day := domain.StudyDay(now, settings.Timezone)

	var updated *domain.CardSchedulingState
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardStates := s.cardStates.WithTx(tx)
		usage := s.usage.WithTx(tx)
		reviewLogs := s.reviewLogs.WithTx(tx)

		// Ensure the row exists, then reread it under a row lock so a
		// concurrent rating of the same card waits for this one.
		if _, err := cardStates.GetOrCreate(ctx, userID, projectID, cardID, settings.StartingEase); err != nil {
			return fmt.Errorf("failed to ensure card state: %w", err)
		}
		current, err := cardStates.GetForUpdate(ctx, userID, projectID, cardID)
		if err != nil {
			return fmt.Errorf("failed to lock card state: %w", err)
		}

		// A corrupt row is a data-integrity problem for this card only;
		// surface it untouched rather than grading on top of bad state.
		if err := current.CheckInvariants(&settings); err != nil {
			return err
		}

		wasNew := current.State == domain.CardStateNew

		next, err := srs.ApplyRating(current, submission.Rating, &settings, now)
		if err != nil {
			return err
		}

		if err := cardStates.Update(ctx, next); err != nil {
			return fmt.Errorf("failed to persist card state: %w", err)
		}

		entry := &domain.ReviewLog{
			EventID:        submission.EventID,
			UserID:         userID,
			ProjectID:      projectID,
			CardID:         cardID,
			Rating:         submission.Rating,
			StateBefore:    current.State,
			StateAfter:     next.State,
			IntervalBefore: current.Interval,
			IntervalAfter:  next.Interval,
			EaseBefore:     current.Ease,
			EaseAfter:      next.Ease,
			ReviewedAt:     now,
		}
		if err := reviewLogs.Append(ctx, entry); err != nil {
			return fmt.Errorf("failed to append review log: %w", err)
		}

		// The user-wide and project scopes are updated together: both
		// kinds of daily limits apply to the same rating.
		scopes := []domain.UsageScope{
			domain.UserScope(userID),
			domain.ProjectScope(userID, projectID),
		}
		for _, scope := range scopes {
			if err := usage.RecordReview(ctx, scope, day, submission.EventID); err != nil {
				return fmt.Errorf("failed to record review: %w", err)
			}
			if wasNew {
				if err := usage.RecordNewCard(ctx, scope, day, submission.EventID); err != nil {
					return fmt.Errorf("failed to record new card: %w", err)
				}
			}
		}

		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrCardSuspended) ||
			errors.Is(err, domain.ErrInvalidRating) ||
			domain.IsInvariantViolation(err) {
			return nil, err
		}
		if errors.Is(err, store.ErrCardStateNotFound) {
			return nil, ErrCardStateNotFound
		}
		log.Error("failed to rate card",
			slog.String("card_id", cardID.String()),
			slog.String("rating", string(submission.Rating)),
			slog.String("error", err.Error()))
		return nil, NewServiceError("rate_card", "rating transaction failed", err)
	}

	// Bury siblings for the remainder of the session when configured.
	// Grouping membership comes from the caller.
	if settings.BurySiblings && len(submission.SiblingIDs) > 0 {
		s.session(userID, projectID).Bury(submission.SiblingIDs...)
	}

	s.invalidate(ctx,
		events.CardStateScope(cardID),
		events.ProjectStatsScope(userID, projectID),
		events.DailyUsageScope(userID),
	)

	log.Debug("card rated",
		slog.String("card_id", cardID.String()),
		slog.String("rating", string(submission.Rating)),
		slog.String("state", string(updated.State)),
		slog.Int("interval", updated.Interval),
		slog.Float64("ease", updated.Ease))

	return updated, nil
}

// GetNextCard implements Service.GetNextCard.
func (s *serviceImpl) GetNextCard(
	ctx context.Context,
	userID, projectID uuid.UUID,
) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	states, quotas, settings, err := s.loadQueue(ctx, userID, projectID)
	if err != nil {
		return uuid.Nil, NewServiceError("get_next_card", "queue load failed", err)
	}

	buried := s.session(userID, projectID).Buried()
	cardID, ok := srs.SelectNext(states, quotas, &settings, buried, s.now(), nil)
	if !ok {
		log.Debug("no cards due",
			slog.String("user_id", userID.String()),
			slog.String("project_id", projectID.String()))
		return uuid.Nil, ErrNoCardsDue
	}
	return cardID, nil
}

// GetDueStats implements Service.GetDueStats.
func (s *serviceImpl) GetDueStats(
	ctx context.Context,
	userID, projectID uuid.UUID,
) (*srs.Stats, error) {
	states, quotas, settings, err := s.loadQueue(ctx, userID, projectID)
	if err != nil {
		return nil, NewServiceError("get_due_stats", "queue load failed", err)
	}

	buried := s.session(userID, projectID).Buried()
	stats := srs.ComputeStats(states, quotas, &settings, buried, s.now())
	if stats.InvalidCards > 0 {
		// Isolated per card: the queue keeps working, but someone should
		// look at the quarantined rows.
		logger.FromContextOrDefault(ctx, s.logger).Warn("skipped card states failing invariants",
			slog.String("project_id", projectID.String()),
			slog.Int("invalid_cards", stats.InvalidCards))
	}
	return &stats, nil
}

// loadQueue gathers everything selection and stats share: the project's
// state rows, the resolved settings, and today's usage for both scopes.
func (s *serviceImpl) loadQueue(
	ctx context.Context,
	userID, projectID uuid.UUID,
) ([]*domain.CardSchedulingState, srs.Quotas, domain.EffectiveSettings, error) {
	var quotas srs.Quotas

	settings, userSettings, err := s.resolveSettings(ctx, userID, projectID)
	if err != nil {
		return nil, quotas, settings, err
	}

	states, err := s.cardStates.ListByProject(ctx, userID, projectID)
	if err != nil {
		return nil, quotas, settings, fmt.Errorf("failed to list card states: %w", err)
	}

	day := domain.StudyDay(s.now(), settings.Timezone)
	userUsage, err := s.usage.GetUsage(ctx, domain.UserScope(userID), day)
	if err != nil {
		return nil, quotas, settings, fmt.Errorf("failed to load user usage: %w", err)
	}
	projectUsage, err := s.usage.GetUsage(ctx, domain.ProjectScope(userID, projectID), day)
	if err != nil {
		return nil, quotas, settings, fmt.Errorf("failed to load project usage: %w", err)
	}

	quotas = srs.Quotas{
		ProjectNewLimit: settings.NewCardsPerDay,
		GlobalNewLimit:  userSettings.NewCardsPerDay,
		MaxReviews:      settings.MaxReviewsPerDay,
		ProjectUsage:    projectUsage,
		UserUsage:       userUsage,
	}
	return states, quotas, settings, nil
}

// ClearLeech implements Service.ClearLeech.
func (s *serviceImpl) ClearLeech(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	return s.mutateState(ctx, "clear_leech", userID, projectID, cardID,
		func(state *domain.CardSchedulingState) error {
			state.IsLeech = false
			return nil
		})
}

// SuspendCard implements Service.SuspendCard.
func (s *serviceImpl) SuspendCard(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	return s.mutateState(ctx, "suspend_card", userID, projectID, cardID,
		func(state *domain.CardSchedulingState) error {
			state.State = domain.CardStateSuspended
			return nil
		})
}

// UnsuspendCard implements Service.UnsuspendCard. A card with an
// established interval returns to Review with its old due date; anything
// else restarts the learning steps, due immediately.
func (s *serviceImpl) UnsuspendCard(
	ctx context.Context,
	userID, projectID, cardID uuid.UUID,
) (*domain.CardSchedulingState, error) {
	now := s.now()
	return s.mutateState(ctx, "unsuspend_card", userID, projectID, cardID,
		func(state *domain.CardSchedulingState) error {
			if state.State != domain.CardStateSuspended {
				return domain.ErrCardNotSuspended
			}
			if state.Interval >= 1 {
				state.State = domain.CardStateReview
				if state.Due.Before(now) {
					state.Due = now
				}
			} else {
				state.State = domain.CardStateLearning
				state.LearningStep = 0
				state.Due = now
			}
			return nil
		})
}

// mutateState applies a small management mutation to a card's state under
// the same locking discipline as rating.
func (s *serviceImpl) mutateState(
	ctx context.Context,
	operation string,
	userID, projectID, cardID uuid.UUID,
	mutate func(*domain.CardSchedulingState) error,
) (*domain.CardSchedulingState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.CardSchedulingState
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cardStates := s.cardStates.WithTx(tx)

		state, err := cardStates.GetForUpdate(ctx, userID, projectID, cardID)
		if err != nil {
			return err
		}
		if err := mutate(state); err != nil {
			return err
		}
		state.UpdatedAt = s.now()
		if err := cardStates.Update(ctx, state); err != nil {
			return err
		}
		updated = state
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrCardStateNotFound) {
			return nil, ErrCardStateNotFound
		}
		if errors.Is(err, domain.ErrCardNotSuspended) {
			return nil, err
		}
		log.Error("card state mutation failed",
			slog.String("operation", operation),
			slog.String("card_id", cardID.String()),
			slog.String("error", err.Error()))
		return nil, NewServiceError(operation, "state mutation failed", err)
	}

	s.invalidate(ctx,
		events.CardStateScope(cardID),
		events.ProjectStatsScope(userID, projectID),
	)
	return updated, nil
}

// session returns the bury session for a (user, project) pair, creating
// it on first use.
func (s *serviceImpl) session(userID, projectID uuid.UUID) *srs.Session {
	key := sessionKey{userID: userID, projectID: projectID}
	if v, ok := s.sessions.Load(key); ok {
		return v.(*srs.Session)
	}
	v, _ := s.sessions.LoadOrStore(key, srs.NewSession())
	return v.(*srs.Session)
}

// invalidate emits the given cache scopes. Failures are logged by the
// emitter; a stale cache entry is preferable to failing the write that
// already committed.
func (s *serviceImpl) invalidate(ctx context.Context, scopes ...string) {
	for _, scope := range scopes {
		_ = s.emitter.Emit(ctx, events.NewInvalidationEvent(scope))
	}
}
