// Package migrate applies a directory of versioned SQL migration files to
// a target database, tracking which have already run in a
// schema_migrations table. It is a one-shot utility invoked separately
// from the recurring dump/restore sync loop, not a component of it.
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// statementTimeout bounds each individual migration statement.
const statementTimeout = 30 * time.Second

// Applier runs migration files from a directory against a target pool.
type Applier struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New builds an Applier bound to pool.
func New(pool *pgxpool.Pool, logger zerolog.Logger) *Applier {
	return &Applier{pool: pool, logger: logger.With().Str("component", "migrate").Logger()}
}

// Result reports what Apply did.
type Result struct {
	Applied []string
	Skipped []string
}

// Apply reads every "NNN_name.sql" file in dir in lexical order and runs
// any not already recorded in schema_migrations, each inside its own
// transaction alongside the bookkeeping insert.
func (a *Applier) Apply(ctx context.Context, dir string) (Result, error) {
	if err := a.ensureMigrationsTable(ctx); err != nil {
		return Result{}, fmt.Errorf("create migrations table: %w", err)
	}

	files, err := migrationFiles(dir)
	if err != nil {
		return Result{}, fmt.Errorf("read migrations dir: %w", err)
	}

	var result Result
	for _, name := range files {
		version := strings.TrimSuffix(name, ".sql")

		applied, err := a.alreadyApplied(ctx, version)
		if err != nil {
			return result, fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied {
			result.Skipped = append(result.Skipped, version)
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return result, fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := a.applyOne(ctx, version, string(raw)); err != nil {
			return result, fmt.Errorf("apply migration %s: %w", name, err)
		}

		a.logger.Info().Str("migration", name).Msg("applied migration")
		result.Applied = append(result.Applied, version)
	}

	return result, nil
}

func (a *Applier) ensureMigrationsTable(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (a *Applier) alreadyApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	err := a.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	return exists, err
}

func (a *Applier) applyOne(ctx context.Context, version, sql string) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range splitStatements(sql) {
		stmtCtx, cancel := context.WithTimeout(ctx, statementTimeout)
		_, err := tx.Exec(stmtCtx, stmt)
		cancel()
		if err != nil {
			return fmt.Errorf("statement %q: %w", truncate(stmt, 120), err)
		}
	}

	if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit(ctx)
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
