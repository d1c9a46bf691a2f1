package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

func TestCheckLeech(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckLeech(0, 8))
	assert.False(t, CheckLeech(7, 8))
	assert.True(t, CheckLeech(8, 8))
	assert.True(t, CheckLeech(20, 8))

	// A non-positive threshold behaves as the tightest valid one.
	assert.True(t, CheckLeech(1, 0))
	assert.False(t, CheckLeech(0, -3))
}

func TestApplyLeechAction(t *testing.T) {
	t.Parallel()

	t.Run("suspend overrides the computed state", func(t *testing.T) {
		t.Parallel()
		state := reviewCard(5, 2.3, 8)
		state.State = domain.CardStateRelearning
		state.IsLeech = true

		ApplyLeechAction(state, domain.LeechActionSuspend)
		assert.Equal(t, domain.CardStateSuspended, state.State)
	})

	t.Run("tag leaves scheduling alone", func(t *testing.T) {
		t.Parallel()
		state := reviewCard(5, 2.3, 8)
		state.State = domain.CardStateRelearning
		state.IsLeech = true

		ApplyLeechAction(state, domain.LeechActionTag)
		assert.Equal(t, domain.CardStateRelearning, state.State)
		assert.True(t, state.IsLeech)
	})
}
