package srs

import (
	"time"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// ApplyRating computes a card's next scheduling state from its current
// state, the user's rating, the effective settings, and the review time.
// It is pure: the input state is never mutated, there is no I/O, and every
// (state, rating) pair is handled explicitly.
//
// A rating against a suspended card returns domain.ErrCardSuspended with
// the state untouched; the caller must unsuspend the card first. An
// unknown rating or state returns the matching domain error.
func ApplyRating(
	state *domain.CardSchedulingState,
	rating domain.Rating,
	settings *domain.EffectiveSettings,
	now time.Time,
) (*domain.CardSchedulingState, error) {
	if !rating.IsValid() {
		return nil, domain.ErrInvalidRating
	}

	next := state.Clone()
	next.UpdatedAt = now

	switch state.State {
	case domain.CardStateNew:
		applyNew(next, rating, settings, now)

	case domain.CardStateLearning:
		applyLearning(next, rating, settings, settings.LearningSteps, now)

	case domain.CardStateRelearning:
		applyRelearning(next, rating, settings, now)

	case domain.CardStateReview:
		applyReview(next, rating, settings, now)

	case domain.CardStateSuspended:
		return nil, domain.ErrCardSuspended

	default:
		return nil, domain.ErrInvalidCardState
	}

	return next, nil
}

// applyNew handles the first rating a card ever receives. Easy skips the
// learning steps entirely; every other rating enters the first step.
func applyNew(
	next *domain.CardSchedulingState,
	rating domain.Rating,
	settings *domain.EffectiveSettings,
	now time.Time,
) {
	switch rating {
	case domain.RatingAgain, domain.RatingHard, domain.RatingGood:
		next.State = domain.CardStateLearning
		next.LearningStep = 0
		next.Interval = 0
		next.Due = stepDue(now, settings.LearningSteps, 0)
	case domain.RatingEasy:
		graduate(next, settings, settings.EasyInterval, now)
	}
}

// applyLearning advances a card through the learning steps. Graduation
// with Good uses the graduating interval; Easy graduates immediately with
// the easy interval regardless of remaining steps.
func applyLearning(
	next *domain.CardSchedulingState,
	rating domain.Rating,
	settings *domain.EffectiveSettings,
	steps []int,
	now time.Time,
) {
	switch rating {
	case domain.RatingAgain:
		next.LearningStep = 0
		next.Due = stepDue(now, steps, 0)
	case domain.RatingHard:
		// Repeat the current step with the same delay.
		next.Due = stepDue(now, steps, next.LearningStep)
	case domain.RatingGood:
		if next.LearningStep+1 < len(steps) {
			next.LearningStep++
			next.Due = stepDue(now, steps, next.LearningStep)
		} else {
			graduate(next, settings, settings.GraduatingInterval, now)
		}
	case domain.RatingEasy:
		graduate(next, settings, settings.EasyInterval, now)
	}
}

// applyRelearning advances a lapsed card through the relearning steps.
// Unlike first-time learning, graduation keeps the lapse-recovered
// interval computed when the card fell out of Review, and Again while
// relearning counts as a further lapse.
func applyRelearning(
	next *domain.CardSchedulingState,
	rating domain.Rating,
	settings *domain.EffectiveSettings,
	now time.Time,
) {
	steps := settings.RelearningSteps

	switch rating {
	case domain.RatingAgain:
		next.LearningStep = 0
		next.Due = stepDue(now, steps, 0)
		next.Lapses++
		checkLeechAfterLapse(next, settings)
	case domain.RatingHard:
		next.Due = stepDue(now, steps, next.LearningStep)
	case domain.RatingGood:
		if next.LearningStep+1 < len(steps) {
			next.LearningStep++
			next.Due = stepDue(now, steps, next.LearningStep)
		} else {
			regraduate(next, settings, next.Interval, now)
		}
	case domain.RatingEasy:
		regraduate(next, settings, maxInt(next.Interval, settings.EasyInterval), now)
	}
}

// applyReview handles a card already in the long-term review cycle.
func applyReview(
	next *domain.CardSchedulingState,
	rating domain.Rating,
	settings *domain.EffectiveSettings,
	now time.Time,
) {
	switch rating {
	case domain.RatingAgain:
		next.State = domain.CardStateRelearning
		next.LearningStep = 0
		next.Lapses++
		next.Ease = clampEase(next.Ease-settings.LapseEasePenalty, settings)
		next.Interval = clampInterval(
			int(float64(next.Interval)*settings.LapseRecoveryFactor),
			settings,
		)
		next.Due = stepDue(now, settings.RelearningSteps, 0)
		checkLeechAfterLapse(next, settings)

	case domain.RatingHard:
		hard := maxInt(
			next.Interval+1,
			int(float64(next.Interval)*settings.HardIntervalFactor),
		)
		next.Interval = clampInterval(hard, settings)
		next.Repetitions++
		next.Due = now.AddDate(0, 0, next.Interval)

	case domain.RatingGood:
		hard := maxInt(
			next.Interval+1,
			int(float64(next.Interval)*settings.HardIntervalFactor),
		)
		good := maxInt(hard, int(float64(next.Interval)*next.Ease))
		next.Interval = clampInterval(good, settings)
		next.Repetitions++
		next.Due = now.AddDate(0, 0, next.Interval)

	case domain.RatingEasy:
		hard := maxInt(
			next.Interval+1,
			int(float64(next.Interval)*settings.HardIntervalFactor),
		)
		good := maxInt(hard, int(float64(next.Interval)*next.Ease))
		easy := maxInt(good, int(float64(next.Interval)*next.Ease*settings.EasyBonus))
		next.Interval = clampInterval(easy, settings)
		next.Ease = clampEase(next.Ease+0.15, settings)
		next.Repetitions++
		next.Due = now.AddDate(0, 0, next.Interval)
	}
}

// graduate moves a card from the learning phase into Review with the given
// interval. The starting ease is applied only on the card's first
// graduation, i.e. when it has never reached Review before; after that the
// card keeps its accumulated ease.
func graduate(
	next *domain.CardSchedulingState,
	settings *domain.EffectiveSettings,
	interval int,
	now time.Time,
) {
	if next.Repetitions == 0 && next.Lapses == 0 {
		next.Ease = settings.StartingEase
	}
	next.State = domain.CardStateReview
	next.LearningStep = 0
	next.Interval = clampInterval(interval, settings)
	next.Due = now.AddDate(0, 0, next.Interval)
}

// regraduate returns a relearning card to Review, keeping the
// lapse-recovered interval rather than resetting to the graduating
// interval. Ease is left as the lapse penalty set it.
func regraduate(
	next *domain.CardSchedulingState,
	settings *domain.EffectiveSettings,
	interval int,
	now time.Time,
) {
	next.State = domain.CardStateReview
	next.LearningStep = 0
	next.Interval = clampInterval(interval, settings)
	next.Due = now.AddDate(0, 0, next.Interval)
}

// checkLeechAfterLapse flags the card as a leech once its lapse count
// reaches the threshold, in the same call that records the triggering
// lapse, and applies the configured leech action.
func checkLeechAfterLapse(next *domain.CardSchedulingState, settings *domain.EffectiveSettings) {
	if !CheckLeech(next.Lapses, settings.LeechThreshold) {
		return
	}
	next.IsLeech = true
	ApplyLeechAction(next, settings.LeechAction)
}

// stepDue computes the due time for a learning/relearning step. The step
// index is clamped to the list so a shrunk configuration cannot push the
// index out of range mid-flight.
func stepDue(now time.Time, steps []int, step int) time.Time {
	if step >= len(steps) {
		step = len(steps) - 1
	}
	if step < 0 {
		step = 0
	}
	return now.Add(time.Duration(steps[step]) * time.Minute)
}

// clampInterval bounds a Review interval to [1, max_interval] days.
func clampInterval(interval int, settings *domain.EffectiveSettings) int {
	if interval < 1 {
		return 1
	}
	if interval > settings.MaxInterval {
		return settings.MaxInterval
	}
	return interval
}

// clampEase bounds an ease value to the configured window.
func clampEase(ease float64, settings *domain.EffectiveSettings) float64 {
	if ease < settings.MinimumEase {
		return settings.MinimumEase
	}
	if ease > settings.MaximumEase {
		return settings.MaximumEase
	}
	return ease
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
