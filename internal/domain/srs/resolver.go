package srs

import (
	"log/slog"
	"time"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// Resolver merges raw settings overrides into one fully populated,
// range-validated EffectiveSettings. The merge is three-tiered: a project
// value wins if present and valid, then the user default, then the
// hard-coded global default. An invalid override value is discarded in
// favor of the next tier and logged as a recoverable condition; resolution
// itself never fails.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a settings resolver. A nil logger falls back to
// slog.Default().
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		logger: logger.With(slog.String("component", "settings_resolver")),
	}
}

// Resolve computes the effective settings from the project and user
// override tiers. Either tier may be nil, meaning no overrides at that
// level. The result is recomputed on each scheduling call; it is cheap and
// carries no caching state.
func (r *Resolver) Resolve(project, user *domain.SettingsOverride) domain.EffectiveSettings {
	eff := domain.DefaultSettings()

	// Lower tier first so the project tier wins on conflict.
	if user != nil {
		r.apply(&eff, user, "user")
	}
	if project != nil {
		r.apply(&eff, project, "project")
	}

	// Cross-field repair: the ease window must be non-empty no matter
	// which tiers the two bounds came from.
	if eff.MaximumEase < eff.MinimumEase {
		r.reject("maximum_ease", "cross", "maximum ease below minimum ease")
		eff.MaximumEase = eff.MinimumEase
	}
	if eff.StartingEase < eff.MinimumEase {
		eff.StartingEase = eff.MinimumEase
	}
	if eff.StartingEase > eff.MaximumEase {
		eff.StartingEase = eff.MaximumEase
	}

	return eff
}

// apply overlays one override tier onto eff, field by field, keeping the
// prior value whenever the override is out of range.
func (r *Resolver) apply(eff *domain.EffectiveSettings, o *domain.SettingsOverride, tier string) {
	if o.NewCardsPerDay != nil {
		if *o.NewCardsPerDay >= 0 {
			eff.NewCardsPerDay = *o.NewCardsPerDay
		} else {
			r.reject("new_cards_per_day", tier, "must be >= 0")
		}
	}
	if o.MaxReviewsPerDay != nil {
		if *o.MaxReviewsPerDay >= 0 {
			eff.MaxReviewsPerDay = *o.MaxReviewsPerDay
		} else {
			r.reject("max_reviews_per_day", tier, "must be >= 0")
		}
	}
	if o.LearningSteps != nil {
		if validSteps(o.LearningSteps) {
			eff.LearningSteps = append([]int(nil), o.LearningSteps...)
		} else {
			r.reject("learning_steps", tier, "must be a non-empty list of positive minutes")
		}
	}
	if o.RelearningSteps != nil {
		if validSteps(o.RelearningSteps) {
			eff.RelearningSteps = append([]int(nil), o.RelearningSteps...)
		} else {
			r.reject("relearning_steps", tier, "must be a non-empty list of positive minutes")
		}
	}

	if o.GraduatingInterval != nil {
		if *o.GraduatingInterval >= 1 {
			eff.GraduatingInterval = *o.GraduatingInterval
		} else {
			r.reject("graduating_interval", tier, "must be >= 1 day")
		}
	}
	if o.EasyInterval != nil {
		if *o.EasyInterval >= 1 {
			eff.EasyInterval = *o.EasyInterval
		} else {
			r.reject("easy_interval", tier, "must be >= 1 day")
		}
	}
	if o.StartingEase != nil {
		if *o.StartingEase >= 1.0 {
			eff.StartingEase = *o.StartingEase
		} else {
			r.reject("starting_ease", tier, "must be >= 1.0")
		}
	}
	if o.MinimumEase != nil {
		if *o.MinimumEase >= 1.0 {
			eff.MinimumEase = *o.MinimumEase
		} else {
			r.reject("minimum_ease", tier, "must be >= 1.0")
		}
	}
	if o.MaximumEase != nil {
		if *o.MaximumEase >= 1.0 {
			eff.MaximumEase = *o.MaximumEase
		} else {
			r.reject("maximum_ease", tier, "must be >= 1.0")
		}
	}
	if o.EasyBonus != nil {
		if *o.EasyBonus >= 1.0 {
			eff.EasyBonus = *o.EasyBonus
		} else {
			r.reject("easy_bonus", tier, "must be >= 1.0")
		}
	}
	if o.HardIntervalFactor != nil {
		if *o.HardIntervalFactor > 0 {
			eff.HardIntervalFactor = *o.HardIntervalFactor
		} else {
			r.reject("hard_interval_factor", tier, "must be > 0")
		}
	}
	if o.EasyIntervalFactor != nil {
		if *o.EasyIntervalFactor > 0 {
			eff.EasyIntervalFactor = *o.EasyIntervalFactor
		} else {
			r.reject("easy_interval_factor", tier, "must be > 0")
		}
	}
	if o.LapseRecoveryFactor != nil {
		if *o.LapseRecoveryFactor > 0 && *o.LapseRecoveryFactor <= 1.0 {
			eff.LapseRecoveryFactor = *o.LapseRecoveryFactor
		} else {
			r.reject("lapse_recovery_factor", tier, "must be in (0, 1]")
		}
	}
	if o.LapseEasePenalty != nil {
		if *o.LapseEasePenalty >= 0 {
			eff.LapseEasePenalty = *o.LapseEasePenalty
		} else {
			r.reject("lapse_ease_penalty", tier, "must be >= 0")
		}
	}
	if o.MaxInterval != nil {
		if *o.MaxInterval >= 1 {
			eff.MaxInterval = *o.MaxInterval
		} else {
			r.reject("max_interval", tier, "must be >= 1 day")
		}
	}

	if o.LeechThreshold != nil {
		if *o.LeechThreshold >= 1 {
			eff.LeechThreshold = *o.LeechThreshold
		} else {
			r.reject("leech_threshold", tier, "must be >= 1")
		}
	}
	if o.LeechAction != nil {
		if action := domain.LeechAction(*o.LeechAction); action.IsValid() {
			eff.LeechAction = action
		} else {
			r.reject("leech_action", tier, "unknown action "+*o.LeechAction)
		}
	}
	if o.NewCardOrder != nil {
		if order := domain.NewCardOrder(*o.NewCardOrder); order.IsValid() {
			eff.NewCardOrder = order
		} else {
			r.reject("new_card_order", tier, "unknown order "+*o.NewCardOrder)
		}
	}
	if o.ReviewAhead != nil {
		eff.ReviewAhead = *o.ReviewAhead
	}
	if o.BurySiblings != nil {
		eff.BurySiblings = *o.BurySiblings
	}

	if o.Timezone != nil {
		if _, err := time.LoadLocation(*o.Timezone); err == nil {
			eff.Timezone = *o.Timezone
		} else {
			r.reject("timezone", tier, "unknown IANA zone "+*o.Timezone)
		}
	}
}

// reject logs a discarded override value. This is a recoverable condition:
// the previous tier's value stays in effect.
func (r *Resolver) reject(field, tier, reason string) {
	r.logger.Warn("discarding invalid settings override",
		slog.String("field", field),
		slog.String("tier", tier),
		slog.String("reason", reason))
}

func validSteps(steps []int) bool {
	if len(steps) == 0 {
		return false
	}
	for _, m := range steps {
		if m <= 0 {
			return false
		}
	}
	return true
}
