package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageScope identifies one set of daily counters. The user-wide scope has
// a nil ProjectID; the project scope carries both IDs. Both scopes are
// recorded together when a card belonging to a project is studied, since
// the global and per-project limits apply simultaneously.
type UsageScope struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID // uuid.Nil for the user-wide scope
}

// UserScope returns the user-wide usage scope.
func UserScope(userID uuid.UUID) UsageScope {
	return UsageScope{UserID: userID}
}

// ProjectScope returns the per-project usage scope.
func ProjectScope(userID, projectID uuid.UUID) UsageScope {
	return UsageScope{UserID: userID, ProjectID: projectID}
}

// IsProjectScope reports whether the scope is bound to a project.
func (s UsageScope) IsProjectScope() bool {
	return s.ProjectID != uuid.Nil
}

// String renders the scope for logs and invalidation signals.
func (s UsageScope) String() string {
	if s.IsProjectScope() {
		return fmt.Sprintf("user:%s/project:%s", s.UserID, s.ProjectID)
	}
	return fmt.Sprintf("user:%s", s.UserID)
}

// DailyUsage holds the study counters for one scope on one local day.
// A missing row reads as zero usage; counters are only ever incremented,
// and the day boundary is implicit in the Day key.
type DailyUsage struct {
	Scope              UsageScope `json:"-"`
	Day                string     `json:"day"` // YYYY-MM-DD in the user's timezone
	NewCardsStudied    int        `json:"new_cards_studied"`
	ReviewsCompleted   int        `json:"reviews_completed"`
}

// StudyDay resolves the calendar day for now in the given IANA timezone,
// formatted YYYY-MM-DD. An unknown zone falls back to UTC rather than
// failing the scheduling call.
func StudyDay(now time.Time, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}
