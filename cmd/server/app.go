package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mnemolabs/mnemo-api/internal/config"
	"github.com/mnemolabs/mnemo-api/internal/events"
	"github.com/mnemolabs/mnemo-api/internal/platform/postgres"
	"github.com/mnemolabs/mnemo-api/internal/service/auth"
	"github.com/mnemolabs/mnemo-api/internal/service/scheduler"
	"github.com/mnemolabs/mnemo-api/internal/store"
)

// application holds the shared application dependencies so startup wiring
// and shutdown cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cardStateStore store.CardStateStore
	usageStore     store.DailyUsageStore
	settingsStore  store.SettingsStore
	reviewLogStore store.ReviewLogStore

	jwtService       auth.JWTService
	schedulerService scheduler.Service

	eventEmitter *events.InMemoryEmitter
}

// newApplication creates an application with all dependencies initialized.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.cardStateStore = postgres.NewCardStateStore(db, logger)
	app.usageStore = postgres.NewDailyUsageStore(db, logger)
	app.settingsStore = postgres.NewSettingsStore(db, logger)
	app.reviewLogStore = postgres.NewReviewLogStore(db, logger)

	app.eventEmitter = events.NewInMemoryEmitter(logger)

	app.schedulerService = scheduler.NewService(scheduler.Config{
		DB:         db,
		CardStates: app.cardStateStore,
		Usage:      app.usageStore,
		Settings:   app.settingsStore,
		ReviewLogs: app.reviewLogStore,
		Emitter:    app.eventEmitter,
		Logger:     logger,
	})

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}
