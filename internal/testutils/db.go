// Package testutils provides shared helpers for tests that need a real
// Postgres database. Tests are isolated by running inside a transaction
// that is always rolled back.
package testutils

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/medforge/cardgen/internal/platform/postgres"
)

// Database URL environment variables checked in order.
var dbURLEnvVars = []string{"CARDGEN_TEST_DB_URL", "DATABASE_URL"}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDB opens a connection to the test database and applies pending
// migrations. The test is skipped when no database URL is configured, so
// integration tests are a no-op in environments without Postgres.
// The connection is closed automatically when the test finishes.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := ""
	for _, name := range dbURLEnvVars {
		if v := os.Getenv(name); v != "" {
			dbURL = v
			break
		}
	}
	if dbURL == "" {
		t.Skipf("skipping database test: none of %v set", dbURLEnvVars)
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open database connection: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Logf("warning: failed to close database connection: %v", closeErr)
		}
	})

	if err := db.PingContext(context.Background()); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	migrateOnce.Do(func() {
		goose.SetBaseFS(postgres.MigrationsFS)
		if migrateErr = goose.SetDialect("postgres"); migrateErr != nil {
			return
		}
		migrateErr = goose.Up(db, postgres.MigrationsDir)
	})
	if migrateErr != nil {
		t.Fatalf("failed to apply migrations: %v", migrateErr)
	}

	return db
}

// WithTx runs fn inside a transaction that is rolled back afterwards,
// keeping the database clean between tests.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}
