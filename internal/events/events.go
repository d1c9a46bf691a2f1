// Package events carries cache-invalidation signals from the scheduling
// engine to the host's page cache. The engine emits a scope string for
// every state-affecting write; the host's cache layer subscribes and
// purges matching entries. The engine never touches cache entries itself.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InvalidationEvent names one cache scope that must be purged because the
// underlying data changed.
type InvalidationEvent struct {
	// ID is a unique identifier for this event.
	ID uuid.UUID `json:"id"`

	// Scope is the cache scope to purge, e.g. "project-stats:<project>".
	Scope string `json:"scope"`

	// EmittedAt is when the engine produced the event.
	EmittedAt time.Time `json:"emitted_at"`
}

// NewInvalidationEvent creates an event for the given scope string.
func NewInvalidationEvent(scope string) *InvalidationEvent {
	return &InvalidationEvent{
		ID:        uuid.New(),
		Scope:     scope,
		EmittedAt: time.Now().UTC(),
	}
}

// Scope string constructors. Handlers match on these prefixes.

// ProjectStatsScope covers the cached queue statistics of one project.
func ProjectStatsScope(userID, projectID uuid.UUID) string {
	return fmt.Sprintf("project-stats:%s:%s", userID, projectID)
}

// DailyUsageScope covers the cached daily study counters of one user.
func DailyUsageScope(userID uuid.UUID) string {
	return fmt.Sprintf("daily-usage:%s", userID)
}

// CardStateScope covers one card's cached scheduling state.
func CardStateScope(cardID uuid.UUID) string {
	return fmt.Sprintf("card-state:%s", cardID)
}

// Handler processes invalidation events, typically by purging the
// matching cache entries.
type Handler interface {
	// HandleInvalidation processes one event. An error is reported to the
	// emitter but never blocks delivery to other handlers.
	HandleInvalidation(ctx context.Context, event *InvalidationEvent) error
}

// Emitter publishes invalidation events without knowledge of who listens.
type Emitter interface {
	// Emit publishes the event to all registered handlers.
	Emit(ctx context.Context, event *InvalidationEvent) error
}
