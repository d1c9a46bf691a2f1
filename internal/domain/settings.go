package domain

// LeechAction determines what happens to a card once it crosses the leech
// threshold.
type LeechAction string

// Possible leech actions.
const (
	// LeechActionSuspend removes the card from study until unsuspended.
	LeechActionSuspend LeechAction = "suspend"
	// LeechActionTag only flags the card for external surfacing.
	LeechActionTag LeechAction = "tag"
)

// IsValid reports whether a is a known leech action.
func (a LeechAction) IsValid() bool {
	return a == LeechActionSuspend || a == LeechActionTag
}

// NewCardOrder determines the order in which new cards are introduced.
type NewCardOrder string

// Possible new card orderings.
const (
	NewCardOrderRandom  NewCardOrder = "random"
	NewCardOrderDue     NewCardOrder = "due"     // insertion order of the state rows
	NewCardOrderCreated NewCardOrder = "created" // card creation time, ascending
)

// IsValid reports whether o is a known new card order.
func (o NewCardOrder) IsValid() bool {
	switch o {
	case NewCardOrderRandom, NewCardOrderDue, NewCardOrderCreated:
		return true
	default:
		return false
	}
}

// EffectiveSettings is the fully populated, range-validated configuration
// the scheduler and selector operate on. It is derived per call by the
// settings resolver (project override over user defaults over globals) and
// never persisted as a single entity.
type EffectiveSettings struct {
	NewCardsPerDay   int   `json:"new_cards_per_day"`
	MaxReviewsPerDay int   `json:"max_reviews_per_day"` // 0 = unlimited
	LearningSteps    []int `json:"learning_steps"`      // minutes, non-empty
	RelearningSteps  []int `json:"relearning_steps"`    // minutes, non-empty

	GraduatingInterval int     `json:"graduating_interval"` // days
	EasyInterval       int     `json:"easy_interval"`       // days
	StartingEase       float64 `json:"starting_ease"`
	MinimumEase        float64 `json:"minimum_ease"`
	MaximumEase        float64 `json:"maximum_ease"`
	EasyBonus          float64 `json:"easy_bonus"`
	HardIntervalFactor float64 `json:"hard_interval_factor"`
	EasyIntervalFactor float64 `json:"easy_interval_factor"`
	LapseRecoveryFactor float64 `json:"lapse_recovery_factor"`
	LapseEasePenalty   float64 `json:"lapse_ease_penalty"`
	MaxInterval        int     `json:"max_interval"` // days

	LeechThreshold int          `json:"leech_threshold"`
	LeechAction    LeechAction  `json:"leech_action"`
	NewCardOrder   NewCardOrder `json:"new_card_order"`
	ReviewAhead    bool         `json:"review_ahead"`
	BurySiblings   bool         `json:"bury_siblings"`

	// Timezone is the IANA zone name used to resolve the local study day
	// for daily quota counters.
	Timezone string `json:"timezone"`
}

// SettingsOverride is a raw, partially populated settings record as stored
// for a project or a user. Nil fields mean "inherit from the next tier".
// Values are not trusted: the resolver validates each field and falls back
// tier by tier when a value is out of range.
type SettingsOverride struct {
	NewCardsPerDay   *int  `json:"new_cards_per_day,omitempty"`
	MaxReviewsPerDay *int  `json:"max_reviews_per_day,omitempty"`
	LearningSteps    []int `json:"learning_steps,omitempty"`
	RelearningSteps  []int `json:"relearning_steps,omitempty"`

	GraduatingInterval *int     `json:"graduating_interval,omitempty"`
	EasyInterval       *int     `json:"easy_interval,omitempty"`
	StartingEase       *float64 `json:"starting_ease,omitempty"`
	MinimumEase        *float64 `json:"minimum_ease,omitempty"`
	MaximumEase        *float64 `json:"maximum_ease,omitempty"`
	EasyBonus          *float64 `json:"easy_bonus,omitempty"`
	HardIntervalFactor *float64 `json:"hard_interval_factor,omitempty"`
	EasyIntervalFactor *float64 `json:"easy_interval_factor,omitempty"`
	LapseRecoveryFactor *float64 `json:"lapse_recovery_factor,omitempty"`
	LapseEasePenalty   *float64 `json:"lapse_ease_penalty,omitempty"`
	MaxInterval        *int     `json:"max_interval,omitempty"`

	LeechThreshold *int    `json:"leech_threshold,omitempty"`
	LeechAction    *string `json:"leech_action,omitempty"`
	NewCardOrder   *string `json:"new_card_order,omitempty"`
	ReviewAhead    *bool   `json:"review_ahead,omitempty"`
	BurySiblings   *bool   `json:"bury_siblings,omitempty"`

	Timezone *string `json:"timezone,omitempty"`
}

// DefaultSettings returns the hard-coded global tier. Every field is
// populated and in range, so resolution always terminates with a valid
// result even when both override tiers are absent or invalid.
func DefaultSettings() EffectiveSettings {
	return EffectiveSettings{
		NewCardsPerDay:   20,
		MaxReviewsPerDay: 0, // unlimited
		LearningSteps:    []int{1, 10},
		RelearningSteps:  []int{10},

		GraduatingInterval: 1,
		EasyInterval:       4,
		StartingEase:       2.5,
		MinimumEase:        1.3,
		MaximumEase:        3.0,
		EasyBonus:          1.3,
		HardIntervalFactor: 1.2,
		EasyIntervalFactor: 1.3,
		LapseRecoveryFactor: 0.5,
		LapseEasePenalty:   0.2,
		MaxInterval:        36500,

		LeechThreshold: 8,
		LeechAction:    LeechActionSuspend,
		NewCardOrder:   NewCardOrderDue,
		ReviewAhead:    false,
		BurySiblings:   false,

		Timezone: "UTC",
	}
}
