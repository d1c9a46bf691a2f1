package api

import (
	"time"

	"github.com/mnemolabs/mnemo-api/internal/domain"
)

// Common request/response structures

// RateCardRequest defines the payload for the card rating endpoint.
// EventID is optional; a client that supplies one can retry the request
// safely, the server deduplicates on it.
type RateCardRequest struct {
	ProjectID  string   `json:"project_id"            validate:"required,uuid"`
	Rating     string   `json:"rating"                validate:"required,oneof=again hard good easy"`
	EventID    string   `json:"event_id,omitempty"    validate:"omitempty,uuid"`
	SiblingIDs []string `json:"sibling_ids,omitempty" validate:"omitempty,dive,uuid"`
}

// CardStateResponse is the serialized scheduling state of one card.
type CardStateResponse struct {
	CardID       string    `json:"card_id"`
	ProjectID    string    `json:"project_id"`
	State        string    `json:"state"`
	Due          time.Time `json:"due"`
	Interval     int       `json:"interval_days"`
	Ease         float64   `json:"ease"`
	LearningStep int       `json:"learning_step"`
	Lapses       int       `json:"lapses"`
	Repetitions  int       `json:"repetitions"`
	IsLeech      bool      `json:"is_leech"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NextCardResponse carries the card selected for study.
type NextCardResponse struct {
	CardID string `json:"card_id"`
}

// cardStateToResponse converts a domain state to its response form.
func cardStateToResponse(state *domain.CardSchedulingState) CardStateResponse {
	return CardStateResponse{
		CardID:       state.CardID.String(),
		ProjectID:    state.ProjectID.String(),
		State:        string(state.State),
		Due:          state.Due,
		Interval:     state.Interval,
		Ease:         state.Ease,
		LearningStep: state.LearningStep,
		Lapses:       state.Lapses,
		Repetitions:  state.Repetitions,
		IsLeech:      state.IsLeech,
		UpdatedAt:    state.UpdatedAt,
	}
}
