package srs

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// Quotas carries the daily limits and the usage already recorded today.
// The project and global new-card limits apply simultaneously: the number
// of new cards still introducible is the minimum of the two remainders.
type Quotas struct {
	ProjectNewLimit int // new_cards_per_day resolved with the project tier
	GlobalNewLimit  int // new_cards_per_day resolved from user defaults only
	MaxReviews      int // max_reviews_per_day, 0 = unlimited

	ProjectUsage domain.DailyUsage
	UserUsage    domain.DailyUsage
}

// RemainingNew returns how many new cards may still be introduced today,
// bounded by both the project and the user-wide limit. Never negative.
func (q Quotas) RemainingNew() int {
	project := q.ProjectNewLimit - q.ProjectUsage.NewCardsStudied
	global := q.GlobalNewLimit - q.UserUsage.NewCardsStudied
	remaining := project
	if global < remaining {
		remaining = global
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingReviews returns how many reviews may still be completed today,
// or -1 when reviews are unlimited.
func (q Quotas) RemainingReviews() int {
	if q.MaxReviews == 0 {
		return -1
	}
	remaining := q.MaxReviews - q.UserUsage.ReviewsCompleted
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stats are the aggregate queue counts shown to the user. They are
// computed with the exact same eligibility predicates as SelectNext, so
// the two can never disagree about whether a card is available.
type Stats struct {
	AvailableNewCards int `json:"available_new_cards"`
	DueLearningCards  int `json:"due_learning_cards"`
	DueReviewCards    int `json:"due_review_cards"`
	TotalDue          int `json:"total_due"`

	// InvalidCards counts state rows that failed their own invariants and
	// were skipped. They never poison the rest of the queue.
	InvalidCards int `json:"invalid_cards,omitempty"`
}

// Session tracks the cards buried for the remainder of the current study
// session. Grading a card with bury_siblings enabled adds its siblings
// here; grouping membership is decided by the caller, never by the
// selector. A Session is safe for concurrent use: one instance is shared
// by every in-flight request for the same user and project.
type Session struct {
	mu     sync.Mutex
	buried map[uuid.UUID]struct{}
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{buried: make(map[uuid.UUID]struct{})}
}

// Bury excludes the given cards from the rest of the session.
func (s *Session) Bury(cardIDs ...uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range cardIDs {
		s.buried[id] = struct{}{}
	}
}

// IsBuried reports whether a card is buried in this session.
func (s *Session) IsBuried(cardID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buried[cardID]
	return ok
}

// Buried returns a snapshot of the bury set in the form SelectNext
// consumes. Bury calls after the snapshot do not affect it.
func (s *Session) Buried() map[uuid.UUID]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[uuid.UUID]struct{}, len(s.buried))
	for id := range s.buried {
		snapshot[id] = struct{}{}
	}
	return snapshot
}

// Eligibility predicates. SelectNext and ComputeStats both route through
// these; any change to one side is a change to both.

func usable(s *domain.CardSchedulingState, settings *domain.EffectiveSettings, buried map[uuid.UUID]struct{}) bool {
	if s.State == domain.CardStateSuspended {
		return false
	}
	if buried != nil {
		if _, ok := buried[s.CardID]; ok {
			return false
		}
	}
	return s.CheckInvariants(settings) == nil
}

func dueLearning(s *domain.CardSchedulingState, now time.Time) bool {
	if s.State != domain.CardStateLearning && s.State != domain.CardStateRelearning {
		return false
	}
	return !s.Due.After(now)
}

func dueReview(s *domain.CardSchedulingState, now time.Time) bool {
	return s.State == domain.CardStateReview && !s.Due.After(now)
}

func isNew(s *domain.CardSchedulingState) bool {
	return s.State == domain.CardStateNew
}

// SelectNext picks the single next card to show, or reports none. Priority
// order: due learning/relearning cards (earliest due), then due review
// cards (earliest due; with review_ahead the earliest review card even if
// not yet due), then new cards within the remaining daily quota, ordered
// per new_card_order. Buried and suspended cards are excluded entirely,
// and a card whose loaded state violates its invariants is skipped without
// affecting the others. Returning false is a normal terminal result.
func SelectNext(
	states []*domain.CardSchedulingState,
	quotas Quotas,
	settings *domain.EffectiveSettings,
	buried map[uuid.UUID]struct{},
	now time.Time,
	rng *rand.Rand,
) (uuid.UUID, bool) {
	var (
		bestLearning *domain.CardSchedulingState
		bestReview   *domain.CardSchedulingState
		aheadReview  *domain.CardSchedulingState
		newCards     []*domain.CardSchedulingState
	)

	for _, s := range states {
		if !usable(s, settings, buried) {
			continue
		}

		switch {
		case dueLearning(s, now):
			if bestLearning == nil || s.Due.Before(bestLearning.Due) {
				bestLearning = s
			}
		case dueReview(s, now):
			if bestReview == nil || s.Due.Before(bestReview.Due) {
				bestReview = s
			}
		case isNew(s):
			newCards = append(newCards, s)
		case s.State == domain.CardStateReview:
			// Not yet due; only interesting when reviewing ahead.
			if aheadReview == nil || s.Due.Before(aheadReview.Due) {
				aheadReview = s
			}
		}
	}

	if bestLearning != nil {
		return bestLearning.CardID, true
	}

	if quotas.RemainingReviews() != 0 {
		if bestReview != nil {
			return bestReview.CardID, true
		}
		if settings.ReviewAhead && aheadReview != nil {
			return aheadReview.CardID, true
		}
	}

	if remaining := quotas.RemainingNew(); remaining > 0 && len(newCards) > 0 {
		return pickNew(newCards, settings.NewCardOrder, rng), true
	}

	return uuid.Nil, false
}

// ComputeStats aggregates the queue counts under the same predicates and
// quota caps as SelectNext. availableNewCards is positive exactly when
// SelectNext could return a new card from the same inputs.
func ComputeStats(
	states []*domain.CardSchedulingState,
	quotas Quotas,
	settings *domain.EffectiveSettings,
	buried map[uuid.UUID]struct{},
	now time.Time,
) Stats {
	var stats Stats
	var eligibleNew, aheadReviews int

	for _, s := range states {
		if s.State != domain.CardStateSuspended && s.CheckInvariants(settings) != nil {
			stats.InvalidCards++
			continue
		}
		if !usable(s, settings, buried) {
			continue
		}

		switch {
		case dueLearning(s, now):
			stats.DueLearningCards++
		case dueReview(s, now):
			stats.DueReviewCards++
		case isNew(s):
			eligibleNew++
		case s.State == domain.CardStateReview:
			aheadReviews++
		}
	}

	// Apply the same daily caps selection applies.
	if remaining := quotas.RemainingReviews(); remaining >= 0 && stats.DueReviewCards > remaining {
		stats.DueReviewCards = remaining
	}
	// With review_ahead and no review card due, SelectNext serves the
	// earliest future review card; count that one card as due work.
	if settings.ReviewAhead && stats.DueReviewCards == 0 && aheadReviews > 0 &&
		quotas.RemainingReviews() != 0 {
		stats.DueReviewCards = 1
	}
	stats.AvailableNewCards = eligibleNew
	if remaining := quotas.RemainingNew(); stats.AvailableNewCards > remaining {
		stats.AvailableNewCards = remaining
	}

	stats.TotalDue = stats.DueLearningCards + stats.DueReviewCards + stats.AvailableNewCards
	return stats
}

// pickNew orders the eligible new cards per the configured order and
// returns the winner. Random picks uniformly; Due uses the state row's
// due/insertion order as a stable proxy; Created sorts by the row's
// creation time. Card ID breaks ties so the order is deterministic.
func pickNew(newCards []*domain.CardSchedulingState, order domain.NewCardOrder, rng *rand.Rand) uuid.UUID {
	switch order {
	case domain.NewCardOrderRandom:
		if rng != nil {
			return newCards[rng.Intn(len(newCards))].CardID
		}
		return newCards[rand.Intn(len(newCards))].CardID

	case domain.NewCardOrderCreated:
		sort.Slice(newCards, func(i, j int) bool {
			if !newCards[i].CreatedAt.Equal(newCards[j].CreatedAt) {
				return newCards[i].CreatedAt.Before(newCards[j].CreatedAt)
			}
			return newCards[i].CardID.String() < newCards[j].CardID.String()
		})
		return newCards[0].CardID

	default: // NewCardOrderDue
		sort.Slice(newCards, func(i, j int) bool {
			if !newCards[i].Due.Equal(newCards[j].Due) {
				return newCards[i].Due.Before(newCards[j].Due)
			}
			return newCards[i].CardID.String() < newCards[j].CardID.String()
		})
		return newCards[0].CardID
	}
}
