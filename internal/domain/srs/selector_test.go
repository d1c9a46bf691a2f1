package srs

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

func learningCard(due time.Time) *domain.CardSchedulingState {
	card := newCard()
	card.State = domain.CardStateLearning
	card.LearningStep = 0
	card.Due = due
	return card
}

func dueReviewCard(due time.Time) *domain.CardSchedulingState {
	card := reviewCard(10, 2.5, 0)
	card.Due = due
	return card
}

func openQuotas() Quotas {
	return Quotas{ProjectNewLimit: 20, GlobalNewLimit: 20, MaxReviews: 0}
}

func TestQuotas_RemainingNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		quotas Quotas
		want   int
	}{
		{
			name:   "nothing studied yet",
			quotas: Quotas{ProjectNewLimit: 10, GlobalNewLimit: 20},
			want:   10,
		},
		{
			name: "global remainder is the binding limit",
			quotas: Quotas{
				ProjectNewLimit: 10,
				GlobalNewLimit:  20,
				UserUsage:       domain.DailyUsage{NewCardsStudied: 15},
			},
			want: 5,
		},
		{
			name: "project remainder is the binding limit",
			quotas: Quotas{
				ProjectNewLimit: 10,
				GlobalNewLimit:  20,
				ProjectUsage:    domain.DailyUsage{NewCardsStudied: 8},
			},
			want: 2,
		},
		{
			name: "overshoot clamps to zero",
			quotas: Quotas{
				ProjectNewLimit: 10,
				GlobalNewLimit:  20,
				ProjectUsage:    domain.DailyUsage{NewCardsStudied: 12},
			},
			want: 0,
		},
		{
			name:   "zero limit is a hard stop",
			quotas: Quotas{ProjectNewLimit: 0, GlobalNewLimit: 20},
			want:   0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.quotas.RemainingNew())
		})
	}
}

func TestQuotas_RemainingReviews(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, Quotas{MaxReviews: 0}.RemainingReviews())
	assert.Equal(t, 3, Quotas{
		MaxReviews: 10,
		UserUsage:  domain.DailyUsage{ReviewsCompleted: 7},
	}.RemainingReviews())
	assert.Equal(t, 0, Quotas{
		MaxReviews: 10,
		UserUsage:  domain.DailyUsage{ReviewsCompleted: 14},
	}.RemainingReviews())
}

func TestSelectNext_PriorityOrder(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	t.Run("due learning beats due review and new", func(t *testing.T) {
		t.Parallel()
		learning := learningCard(testNow.Add(-time.Minute))
		states := []*domain.CardSchedulingState{
			newCard(),
			dueReviewCard(testNow.Add(-24 * time.Hour)),
			learning,
		}

		got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, learning.CardID, got)
	})

	t.Run("earliest due learning card wins", func(t *testing.T) {
		t.Parallel()
		earlier := learningCard(testNow.Add(-10 * time.Minute))
		later := learningCard(testNow.Add(-time.Minute))
		states := []*domain.CardSchedulingState{later, earlier}

		got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, earlier.CardID, got)
	})

	t.Run("due relearning counts as learning", func(t *testing.T) {
		t.Parallel()
		relearning := learningCard(testNow.Add(-time.Minute))
		relearning.State = domain.CardStateRelearning
		relearning.Lapses = 1
		relearning.Ease = 2.3
		states := []*domain.CardSchedulingState{
			dueReviewCard(testNow.Add(-24 * time.Hour)),
			relearning,
		}

		got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, relearning.CardID, got)
	})

	t.Run("due review beats new", func(t *testing.T) {
		t.Parallel()
		review := dueReviewCard(testNow.Add(-time.Hour))
		states := []*domain.CardSchedulingState{newCard(), review}

		got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, review.CardID, got)
	})

	t.Run("earliest due review card wins", func(t *testing.T) {
		t.Parallel()
		earlier := dueReviewCard(testNow.Add(-48 * time.Hour))
		later := dueReviewCard(testNow.Add(-time.Hour))
		states := []*domain.CardSchedulingState{later, earlier}

		got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, earlier.CardID, got)
	})

	t.Run("future learning card is not due", func(t *testing.T) {
		t.Parallel()
		states := []*domain.CardSchedulingState{learningCard(testNow.Add(5 * time.Minute))}

		_, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		assert.False(t, ok)
	})

	t.Run("empty queue reports none", func(t *testing.T) {
		t.Parallel()
		_, ok := SelectNext(nil, openQuotas(), &settings, nil, testNow, nil)
		assert.False(t, ok)
	})
}

func TestSelectNext_ReviewQuota(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	t.Run("exhausted quota skips reviews but not learning", func(t *testing.T) {
		t.Parallel()
		learning := learningCard(testNow.Add(-time.Minute))
		states := []*domain.CardSchedulingState{
			dueReviewCard(testNow.Add(-time.Hour)),
			learning,
		}
		quotas := openQuotas()
		quotas.MaxReviews = 5
		quotas.UserUsage.ReviewsCompleted = 5

		got, ok := SelectNext(states, quotas, &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, learning.CardID, got)
	})

	t.Run("exhausted quota falls through to new cards", func(t *testing.T) {
		t.Parallel()
		fresh := newCard()
		states := []*domain.CardSchedulingState{
			dueReviewCard(testNow.Add(-time.Hour)),
			fresh,
		}
		quotas := openQuotas()
		quotas.MaxReviews = 5
		quotas.UserUsage.ReviewsCompleted = 5

		got, ok := SelectNext(states, quotas, &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, fresh.CardID, got)
	})

	t.Run("zero max reviews means unlimited", func(t *testing.T) {
		t.Parallel()
		review := dueReviewCard(testNow.Add(-time.Hour))
		quotas := openQuotas()
		quotas.UserUsage.ReviewsCompleted = 1000

		got, ok := SelectNext([]*domain.CardSchedulingState{review}, quotas, &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, review.CardID, got)
	})
}

func TestSelectNext_ReviewAhead(t *testing.T) {
	t.Parallel()

	future := dueReviewCard(testNow.Add(48 * time.Hour))
	nearer := dueReviewCard(testNow.Add(24 * time.Hour))
	states := []*domain.CardSchedulingState{future, nearer}

	t.Run("disabled leaves future reviews alone", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		_, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		assert.False(t, ok)
	})

	t.Run("enabled picks the earliest future review", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.ReviewAhead = true

		got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, nearer.CardID, got)
	})

	t.Run("due review still wins over ahead review", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.ReviewAhead = true
		due := dueReviewCard(testNow.Add(-time.Hour))

		got, ok := SelectNext(append(states, due), openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, due.CardID, got)
	})
}

func TestSelectNext_NewCardQuota(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	t.Run("new card served within quota", func(t *testing.T) {
		t.Parallel()
		fresh := newCard()
		got, ok := SelectNext([]*domain.CardSchedulingState{fresh}, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, fresh.CardID, got)
	})

	t.Run("project quota exhausted", func(t *testing.T) {
		t.Parallel()
		quotas := openQuotas()
		quotas.ProjectUsage.NewCardsStudied = quotas.ProjectNewLimit

		_, ok := SelectNext([]*domain.CardSchedulingState{newCard()}, quotas, &settings, nil, testNow, nil)
		assert.False(t, ok)
	})

	t.Run("user-wide quota exhausted", func(t *testing.T) {
		t.Parallel()
		quotas := openQuotas()
		quotas.UserUsage.NewCardsStudied = quotas.GlobalNewLimit

		_, ok := SelectNext([]*domain.CardSchedulingState{newCard()}, quotas, &settings, nil, testNow, nil)
		assert.False(t, ok)
	})
}

func TestSelectNext_NewCardOrder(t *testing.T) {
	t.Parallel()

	t.Run("due order picks earliest due", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		first := newCard()
		first.Due = testNow.Add(-2 * time.Hour)
		second := newCard()
		second.Due = testNow.Add(-time.Hour)

		got, ok := SelectNext([]*domain.CardSchedulingState{second, first}, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, first.CardID, got)
	})

	t.Run("created order picks oldest card", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.NewCardOrder = domain.NewCardOrderCreated
		oldest := newCard()
		oldest.CreatedAt = testNow.Add(-72 * time.Hour)
		newest := newCard()
		newest.CreatedAt = testNow.Add(-time.Hour)

		got, ok := SelectNext([]*domain.CardSchedulingState{newest, oldest}, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, oldest.CardID, got)
	})

	t.Run("random order picks from the eligible pool", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.NewCardOrder = domain.NewCardOrderRandom
		states := []*domain.CardSchedulingState{newCard(), newCard(), newCard()}
		pool := map[uuid.UUID]bool{}
		for _, s := range states {
			pool[s.CardID] = true
		}
		rng := rand.New(rand.NewSource(1))

		for i := 0; i < 10; i++ {
			got, ok := SelectNext(states, openQuotas(), &settings, nil, testNow, rng)
			require.True(t, ok)
			assert.True(t, pool[got])
		}
	})
}

func TestSelectNext_Exclusions(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	t.Run("buried cards are skipped", func(t *testing.T) {
		t.Parallel()
		buriedCard := learningCard(testNow.Add(-10 * time.Minute))
		visible := learningCard(testNow.Add(-time.Minute))
		session := NewSession()
		session.Bury(buriedCard.CardID)

		got, ok := SelectNext(
			[]*domain.CardSchedulingState{buriedCard, visible},
			openQuotas(), &settings, session.Buried(), testNow, nil,
		)
		require.True(t, ok)
		assert.Equal(t, visible.CardID, got)
	})

	t.Run("suspended cards are never served", func(t *testing.T) {
		t.Parallel()
		suspended := dueReviewCard(testNow.Add(-time.Hour))
		suspended.State = domain.CardStateSuspended

		_, ok := SelectNext([]*domain.CardSchedulingState{suspended}, openQuotas(), &settings, nil, testNow, nil)
		assert.False(t, ok)
	})

	t.Run("invalid card is skipped without poisoning the queue", func(t *testing.T) {
		t.Parallel()
		corrupt := dueReviewCard(testNow.Add(-2 * time.Hour))
		corrupt.Interval = 0 // violates the review interval invariant
		healthy := dueReviewCard(testNow.Add(-time.Hour))

		got, ok := SelectNext([]*domain.CardSchedulingState{corrupt, healthy}, openQuotas(), &settings, nil, testNow, nil)
		require.True(t, ok)
		assert.Equal(t, healthy.CardID, got)
	})
}

func TestComputeStats(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	t.Run("counts by queue", func(t *testing.T) {
		t.Parallel()
		states := []*domain.CardSchedulingState{
			learningCard(testNow.Add(-time.Minute)),
			learningCard(testNow.Add(5 * time.Minute)), // not yet due
			dueReviewCard(testNow.Add(-time.Hour)),
			dueReviewCard(testNow.Add(24 * time.Hour)), // not yet due
			newCard(),
			newCard(),
		}

		stats := ComputeStats(states, openQuotas(), &settings, nil, testNow)
		assert.Equal(t, 1, stats.DueLearningCards)
		assert.Equal(t, 1, stats.DueReviewCards)
		assert.Equal(t, 2, stats.AvailableNewCards)
		assert.Equal(t, 4, stats.TotalDue)
		assert.Equal(t, 0, stats.InvalidCards)
	})

	t.Run("review count capped by remaining quota", func(t *testing.T) {
		t.Parallel()
		states := []*domain.CardSchedulingState{
			dueReviewCard(testNow.Add(-3 * time.Hour)),
			dueReviewCard(testNow.Add(-2 * time.Hour)),
			dueReviewCard(testNow.Add(-time.Hour)),
		}
		quotas := openQuotas()
		quotas.MaxReviews = 10
		quotas.UserUsage.ReviewsCompleted = 9

		stats := ComputeStats(states, quotas, &settings, nil, testNow)
		assert.Equal(t, 1, stats.DueReviewCards)
	})

	t.Run("new count capped by remaining quota", func(t *testing.T) {
		t.Parallel()
		states := []*domain.CardSchedulingState{newCard(), newCard(), newCard()}
		quotas := openQuotas()
		quotas.ProjectUsage.NewCardsStudied = quotas.ProjectNewLimit - 1

		stats := ComputeStats(states, quotas, &settings, nil, testNow)
		assert.Equal(t, 1, stats.AvailableNewCards)
	})

	t.Run("invalid cards counted separately", func(t *testing.T) {
		t.Parallel()
		corrupt := dueReviewCard(testNow.Add(-time.Hour))
		corrupt.Ease = 0.5
		states := []*domain.CardSchedulingState{corrupt, newCard()}

		stats := ComputeStats(states, openQuotas(), &settings, nil, testNow)
		assert.Equal(t, 1, stats.InvalidCards)
		assert.Equal(t, 1, stats.AvailableNewCards)
	})

	t.Run("buried and suspended excluded from counts", func(t *testing.T) {
		t.Parallel()
		buriedCard := learningCard(testNow.Add(-time.Minute))
		suspended := dueReviewCard(testNow.Add(-time.Hour))
		suspended.State = domain.CardStateSuspended
		session := NewSession()
		session.Bury(buriedCard.CardID)

		stats := ComputeStats(
			[]*domain.CardSchedulingState{buriedCard, suspended},
			openQuotas(), &settings, session.Buried(), testNow,
		)
		assert.Equal(t, 0, stats.TotalDue)
		assert.Equal(t, 0, stats.InvalidCards)
	})
}

// Stats and selection must never disagree about new card availability:
// a positive available count means SelectNext can produce a new card.
func TestComputeStats_ReviewAhead(t *testing.T) {
	t.Parallel()

	ahead := []*domain.CardSchedulingState{
		dueReviewCard(testNow.Add(24 * time.Hour)),
		dueReviewCard(testNow.Add(48 * time.Hour)),
	}

	t.Run("disabled reports nothing due", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		stats := ComputeStats(ahead, openQuotas(), &settings, nil, testNow)
		assert.Equal(t, 0, stats.DueReviewCards)
		assert.Equal(t, 0, stats.TotalDue)
	})

	t.Run("enabled counts the one reachable ahead card", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.ReviewAhead = true
		stats := ComputeStats(ahead, openQuotas(), &settings, nil, testNow)
		assert.Equal(t, 1, stats.DueReviewCards)
		assert.Equal(t, 1, stats.TotalDue)
	})

	t.Run("a due review already covers the ahead cards", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.ReviewAhead = true
		states := append([]*domain.CardSchedulingState{dueReviewCard(testNow.Add(-time.Hour))}, ahead...)
		stats := ComputeStats(states, openQuotas(), &settings, nil, testNow)
		assert.Equal(t, 1, stats.DueReviewCards)
	})

	t.Run("exhausted review quota blocks ahead work", func(t *testing.T) {
		t.Parallel()
		settings := testSettings()
		settings.ReviewAhead = true
		quotas := openQuotas()
		quotas.MaxReviews = 1
		quotas.UserUsage = domain.DailyUsage{ReviewsCompleted: 1}
		stats := ComputeStats(ahead, quotas, &settings, nil, testNow)
		assert.Equal(t, 0, stats.DueReviewCards)
		assert.Equal(t, 0, stats.TotalDue)
	})
}

func TestStatsSelectionAgreement(t *testing.T) {
	t.Parallel()
	settings := testSettings()

	quotaCases := []Quotas{
		openQuotas(),
		{ProjectNewLimit: 1, GlobalNewLimit: 20},
		{ProjectNewLimit: 20, GlobalNewLimit: 20, UserUsage: domain.DailyUsage{NewCardsStudied: 20}},
		{ProjectNewLimit: 0, GlobalNewLimit: 20},
	}
	states := []*domain.CardSchedulingState{newCard(), newCard()}

	for _, quotas := range quotaCases {
		stats := ComputeStats(states, quotas, &settings, nil, testNow)
		_, ok := SelectNext(states, quotas, &settings, nil, testNow, nil)
		assert.Equal(t, stats.AvailableNewCards > 0, ok)
	}

	// With review_ahead the only eligible card may be a not-yet-due
	// review; stats and selection must still agree that work exists.
	aheadSettings := testSettings()
	aheadSettings.ReviewAhead = true
	aheadStates := []*domain.CardSchedulingState{dueReviewCard(testNow.Add(48 * time.Hour))}

	aheadQuotaCases := []Quotas{
		openQuotas(),
		{ProjectNewLimit: 20, GlobalNewLimit: 20, MaxReviews: 2},
		{ProjectNewLimit: 20, GlobalNewLimit: 20, MaxReviews: 1,
			UserUsage: domain.DailyUsage{ReviewsCompleted: 1}},
	}
	for _, quotas := range aheadQuotaCases {
		stats := ComputeStats(aheadStates, quotas, &aheadSettings, nil, testNow)
		_, ok := SelectNext(aheadStates, quotas, &aheadSettings, nil, testNow, nil)
		assert.Equal(t, stats.TotalDue > 0, ok, "quotas=%+v", quotas)
	}
}

func TestSession_ConcurrentBuryAndSnapshot(t *testing.T) {
	t.Parallel()

	session := NewSession()
	ids := make([]uuid.UUID, 64)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for _, id := range ids[offset*16 : (offset+1)*16] {
				session.Bury(id)
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				for range session.Buried() {
				}
				session.IsBuried(ids[0])
			}
		}()
	}
	wg.Wait()

	assert.Len(t, session.Buried(), len(ids))
	for _, id := range ids {
		assert.True(t, session.IsBuried(id))
	}
}

func TestSession_SnapshotImmutable(t *testing.T) {
	t.Parallel()

	session := NewSession()
	first, second := uuid.New(), uuid.New()
	session.Bury(first)

	snapshot := session.Buried()
	session.Bury(second)

	assert.Len(t, snapshot, 1)
	assert.Contains(t, snapshot, first)
	assert.True(t, session.IsBuried(second))
	assert.Len(t, session.Buried(), 2)
}
