package srs

import (
	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// CheckLeech reports whether a card with the given lapse count has crossed
// the leech threshold. It is exposed separately from the rating path so it
// can be unit-tested on its own.
func CheckLeech(lapses, threshold int) bool {
	if threshold < 1 {
		threshold = 1
	}
	return lapses >= threshold
}

// ApplyLeechAction applies the configured leech action to the card state
// in place. Suspend overrides whatever state the rating just computed;
// Tag leaves the computed state alone, relying on the IsLeech flag for
// external surfacing. The IsLeech flag itself is sticky and is set by the
// caller before invoking the action.
func ApplyLeechAction(state *domain.CardSchedulingState, action domain.LeechAction) {
	switch action {
	case domain.LeechActionSuspend:
		state.State = domain.CardStateSuspended
	case domain.LeechActionTag:
		// Flag only; scheduling continues unchanged.
	}
}
