package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnemolabs/mnemo-api/internal/api"
	apiMiddleware "github.com/mnemolabs/mnemo-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	schedulerHandler := api.NewSchedulerHandler(app.schedulerService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Study session endpoints
			r.Get("/projects/{projectID}/cards/next", schedulerHandler.GetNextCard)
			r.Get("/projects/{projectID}/stats", schedulerHandler.GetDueStats)

			// Card scheduling endpoints
			r.Post("/cards/{cardID}/review", schedulerHandler.RateCard)
			r.Get("/cards/{cardID}/state", schedulerHandler.GetCardState)
			r.Delete("/cards/{cardID}/leech", schedulerHandler.ClearLeech)
			r.Post("/cards/{cardID}/suspend", schedulerHandler.SuspendCard)
			r.Delete("/cards/{cardID}/suspend", schedulerHandler.UnsuspendCard)
		})
	})

	// Health check endpoint (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
