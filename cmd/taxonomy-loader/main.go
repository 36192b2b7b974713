// Package main implements the taxonomy loader, which applies database
// migrations and bulk-loads an exam taxonomy from a JSON outline file
// into Postgres, rebuilding the closure table for ancestry queries.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/medforge/cardgen/internal/config"
	"github.com/medforge/cardgen/internal/domain"
	"github.com/medforge/cardgen/internal/platform/logger"
	"github.com/medforge/cardgen/internal/platform/postgres"
	"github.com/medforge/cardgen/internal/store"
	"github.com/medforge/cardgen/internal/taxonomy"
)

func main() {
	var (
		sourcePath = flag.String("file", "", "path to the taxonomy JSON outline")
		examID     = flag.String("exam", "", "exam identifier the taxonomy belongs to")
	)
	flag.Parse()

	if err := run(*sourcePath, *examID); err != nil {
		log.Fatalf("taxonomy loader failed: %v", err)
	}
}

func run(sourcePath, examID string) error {
	if sourcePath == "" {
		return fmt.Errorf("missing required -file flag")
	}
	if examID == "" {
		return fmt.Errorf("missing required -exam flag")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	loaderLogger := appLogger.With(slog.String("component", "taxonomy_loader"))

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			loaderLogger.Warn("failed to close database connection", slog.String("error", closeErr.Error()))
		}
	}()
	loaderLogger.Info("database connection established")

	if err := runMigrations(db, loaderLogger); err != nil {
		return err
	}

	nodes, err := parseSourceFile(sourcePath, examID)
	if err != nil {
		return err
	}
	loaderLogger.Info("parsed taxonomy source",
		slog.String("exam_id", examID),
		slog.Int("node_count", len(nodes)))

	ctx := logger.WithContext(context.Background(), loaderLogger)
	taxonomyStore := postgres.NewTaxonomyStore(db, loaderLogger)

	err = store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return taxonomyStore.WithTx(tx).BulkLoad(ctx, nodes)
	})
	if err != nil {
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}

	loaderLogger.Info("taxonomy loaded",
		slog.String("exam_id", examID),
		slog.Int("node_count", len(nodes)))
	return nil
}

// openDatabase opens the Postgres connection and verifies it with a ping.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// runMigrations applies the embedded goose migrations.
func runMigrations(db *sql.DB, migrationLogger *slog.Logger) error {
	goose.SetLogger(&slogGooseLogger{})
	goose.SetBaseFS(postgres.MigrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, postgres.MigrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	migrationLogger.Info("database migrations applied")
	return nil
}

// parseSourceFile reads and parses the taxonomy JSON outline.
func parseSourceFile(path, examID string) ([]domain.TaxonomyNode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open taxonomy source: %w", err)
	}
	defer func() { _ = f.Close() }()

	nodes, err := taxonomy.ParseSource(f, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy source: %w", err)
	}
	return nodes, nil
}
