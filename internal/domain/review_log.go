package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReviewLog is an append-only record of one accepted rating. The EventID
// is supplied by the caller and doubles as the idempotency key for the
// daily counters: a retried submission with the same EventID neither
// writes a second log row nor double-counts usage.
type ReviewLog struct {
	EventID        uuid.UUID `json:"event_id"`
	UserID         uuid.UUID `json:"user_id"`
	ProjectID      uuid.UUID `json:"project_id"`
	CardID         uuid.UUID `json:"card_id"`
	Rating         Rating    `json:"rating"`
	StateBefore    CardState `json:"state_before"`
	StateAfter     CardState `json:"state_after"`
	IntervalBefore int       `json:"interval_before"`
	IntervalAfter  int       `json:"interval_after"`
	EaseBefore     float64   `json:"ease_before"`
	EaseAfter      float64   `json:"ease_after"`
	ReviewedAt     time.Time `json:"reviewed_at"`
}
