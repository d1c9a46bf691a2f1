package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mnemolabs/mnemo-api/internal/api/shared"
	"github.com/mnemolabs/mnemo-api/internal/domain"
	"github.com/mnemolabs/mnemo-api/internal/platform/logger"
	"github.com/mnemolabs/mnemo-api/internal/redact"
	"github.com/mnemolabs/mnemo-api/internal/service/scheduler"
)

// SchedulerHandler handles the study scheduling HTTP surface.
type SchedulerHandler struct {
	schedulerService scheduler.Service
	logger           *slog.Logger
}

// NewSchedulerHandler creates a new SchedulerHandler.
func NewSchedulerHandler(schedulerService scheduler.Service, log *slog.Logger) *SchedulerHandler {
	if schedulerService == nil {
		panic("schedulerService cannot be nil for SchedulerHandler")
	}
	if log == nil {
		panic("logger cannot be nil for SchedulerHandler")
	}

	return &SchedulerHandler{
		schedulerService: schedulerService,
		logger:           log.With(slog.String("component", "scheduler_handler")),
	}
}

// GetNextCard handles GET /projects/{projectID}/cards/next requests.
// A 204 means the session is over, nothing is left to study today.
func (h *SchedulerHandler) GetNextCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, projectID, ok := requireUserAndPathUUID(w, r, "projectID")
	if !ok {
		return
	}

	cardID, err := h.schedulerService.GetNextCard(r.Context(), userID, projectID)
	if errors.Is(err, scheduler.ErrNoCardsDue) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("selected next card",
		slog.String("project_id", projectID.String()),
		slog.String("card_id", cardID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, NextCardResponse{CardID: cardID.String()})
}

// GetDueStats handles GET /projects/{projectID}/stats requests.
func (h *SchedulerHandler) GetDueStats(w http.ResponseWriter, r *http.Request) {
	userID, projectID, ok := requireUserAndPathUUID(w, r, "projectID")
	if !ok {
		return
	}

	stats, err := h.schedulerService.GetDueStats(r.Context(), userID, projectID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// RateCard handles POST /cards/{cardID}/review requests.
func (h *SchedulerHandler) RateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := requireUserAndPathUUID(w, r, "cardID")
	if !ok {
		return
	}

	var req RateCardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	// Validated as UUIDs above, Parse cannot fail here.
	projectID := uuid.MustParse(req.ProjectID)
	submission := scheduler.RatingSubmission{
		Rating: domain.Rating(req.Rating),
	}
	if req.EventID != "" {
		submission.EventID = uuid.MustParse(req.EventID)
	}
	for _, sibling := range req.SiblingIDs {
		submission.SiblingIDs = append(submission.SiblingIDs, uuid.MustParse(sibling))
	}

	state, err := h.schedulerService.RateCard(r.Context(), userID, projectID, cardID, submission)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("card rated",
		slog.String("card_id", cardID.String()),
		slog.String("rating", req.Rating),
		slog.String("state", string(state.State)))
	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state))
}

// GetCardState handles GET /cards/{cardID}/state requests. The owning
// project is passed as the project_id query parameter.
func (h *SchedulerHandler) GetCardState(w http.ResponseWriter, r *http.Request) {
	userID, cardID, ok := requireUserAndPathUUID(w, r, "cardID")
	if !ok {
		return
	}
	projectID, ok := requireProjectQuery(w, r)
	if !ok {
		return
	}

	state, err := h.schedulerService.GetCardState(r.Context(), userID, projectID, cardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state))
}

// ClearLeech handles DELETE /cards/{cardID}/leech requests.
func (h *SchedulerHandler) ClearLeech(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.schedulerService.ClearLeech)
}

// SuspendCard handles POST /cards/{cardID}/suspend requests.
func (h *SchedulerHandler) SuspendCard(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.schedulerService.SuspendCard)
}

// UnsuspendCard handles DELETE /cards/{cardID}/suspend requests.
func (h *SchedulerHandler) UnsuspendCard(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.schedulerService.UnsuspendCard)
}

// mutate runs one of the card-management service operations that share
// the (user, project, card) shape and a card-state response.
func (h *SchedulerHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, projectID, cardID uuid.UUID) (*domain.CardSchedulingState, error),
) {
	userID, cardID, ok := requireUserAndPathUUID(w, r, "cardID")
	if !ok {
		return
	}
	projectID, ok := requireProjectQuery(w, r)
	if !ok {
		return
	}

	state, err := op(r.Context(), userID, projectID, cardID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state))
}

// requireProjectQuery extracts the project_id query parameter, writing
// the error response itself on failure.
func requireProjectQuery(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("project_id")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "project_id query parameter is required")
		return uuid.Nil, false
	}
	projectID, err := uuid.Parse(raw)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid project_id")
		return uuid.Nil, false
	}
	return projectID, true
}
