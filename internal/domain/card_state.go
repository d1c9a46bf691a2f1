package domain

import (
	"time"

	"github.com/google/uuid"
)

// CardState represents the lifecycle stage of a card's scheduling state.
type CardState string

// Possible card states.
const (
	CardStateNew        CardState = "new"
	CardStateLearning   CardState = "learning"
	CardStateReview     CardState = "review"
	CardStateRelearning CardState = "relearning"
	CardStateSuspended  CardState = "suspended"
)

// IsValid reports whether s is a known card state.
func (s CardState) IsValid() bool {
	switch s {
	case CardStateNew, CardStateLearning, CardStateReview,
		CardStateRelearning, CardStateSuspended:
		return true
	default:
		return false
	}
}

// Rating represents the user's grade for a single review.
type Rating string

// Possible rating values.
const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// IsValid reports whether r is a known rating.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	default:
		return false
	}
}

// CardSchedulingState tracks the scheduling state of one card for one user
// within one project. There is exactly one row per (user, project, card);
// the row is created atomically on first scheduling access so a card can
// never exist without a state row.
type CardSchedulingState struct {
	UserID       uuid.UUID `json:"user_id"`
	ProjectID    uuid.UUID `json:"project_id"`
	CardID       uuid.UUID `json:"card_id"`
	State        CardState `json:"state"`
	Due          time.Time `json:"due"`           // ignored for selection while suspended
	Interval     int       `json:"interval"`      // days; 0 outside Review, >= 1 in Review
	Ease         float64   `json:"ease"`          // always within [minimum_ease, maximum_ease]
	LearningStep int       `json:"learning_step"` // index into the active step list
	Lapses       int       `json:"lapses"`
	Repetitions  int       `json:"repetitions"`
	IsLeech      bool      `json:"is_leech"` // sticky until cleared explicitly
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewCardSchedulingState creates the initial state row for a card: New,
// due immediately, with the starting ease from the effective settings.
func NewCardSchedulingState(
	userID, projectID, cardID uuid.UUID,
	startingEase float64,
	now time.Time,
) *CardSchedulingState {
	return &CardSchedulingState{
		UserID:    userID,
		ProjectID: projectID,
		CardID:    cardID,
		State:     CardStateNew,
		Due:       now,
		Interval:  0,
		Ease:      startingEase,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CheckInvariants verifies the state against the invariants it must hold
// under the given settings. It returns an *InvariantViolationError naming
// the offending field, or nil. Callers treat a violation as a
// data-integrity problem for this one card only.
func (s *CardSchedulingState) CheckInvariants(settings *EffectiveSettings) error {
	if !s.State.IsValid() {
		return &InvariantViolationError{
			CardID: s.CardID,
			Field:  "state",
			Reason: "unknown state value " + string(s.State),
		}
	}

	if s.Interval < 0 {
		return &InvariantViolationError{
			CardID: s.CardID,
			Field:  "interval",
			Reason: "interval is negative",
		}
	}
	if s.State == CardStateReview && s.Interval < 1 {
		return &InvariantViolationError{
			CardID: s.CardID,
			Field:  "interval",
			Reason: "review card has interval below 1 day",
		}
	}

	if s.Ease < settings.MinimumEase || s.Ease > settings.MaximumEase {
		return &InvariantViolationError{
			CardID: s.CardID,
			Field:  "ease",
			Reason: "ease outside configured bounds",
		}
	}

	if s.Lapses < 0 {
		return &InvariantViolationError{
			CardID: s.CardID,
			Field:  "lapses",
			Reason: "lapse count is negative",
		}
	}
	if s.Repetitions < 0 {
		return &InvariantViolationError{
			CardID: s.CardID,
			Field:  "repetitions",
			Reason: "repetition count is negative",
		}
	}

	switch s.State {
	case CardStateLearning:
		if s.LearningStep < 0 || s.LearningStep >= len(settings.LearningSteps) {
			return &InvariantViolationError{
				CardID: s.CardID,
				Field:  "learning_step",
				Reason: "step index out of range for learning steps",
			}
		}
	case CardStateRelearning:
		if s.LearningStep < 0 || s.LearningStep >= len(settings.RelearningSteps) {
			return &InvariantViolationError{
				CardID: s.CardID,
				Field:  "learning_step",
				Reason: "step index out of range for relearning steps",
			}
		}
	}

	return nil
}

// Clone returns a copy of the state. The scheduler never mutates its
// input; it works on a clone and returns it.
func (s *CardSchedulingState) Clone() *CardSchedulingState {
	out := *s
	return &out
}
