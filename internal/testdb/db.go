package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mnemolabs/mnemo-api/migrations"
)

// Environment variables checked, in order, for the test database URL.
var urlEnvVars = []string{
	"MNEMO_TEST_DATABASE_URL",
	"DATABASE_URL",
}

// URL returns the configured test database URL, or "" when integration
// tests should be skipped.
func URL() string {
	for _, name := range urlEnvVars {
		if url := os.Getenv(name); url != "" {
			return url
		}
	}
	return ""
}

// MustOpen connects to the test database and brings the schema up to
// date. Tests are skipped when no database URL is configured.
func MustOpen(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("no test database configured, set MNEMO_TEST_DATABASE_URL")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	if err := migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// Reset truncates every scheduling table so tests start from a clean
// slate without re-running migrations.
func Reset(t *testing.T, db *sql.DB) {
	t.Helper()

	tables := []string{
		"review_logs",
		"usage_events",
		"daily_usage",
		"settings_overrides",
		"card_scheduling_states",
	}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}
