// Package history persists completed bulk-run summaries to SQLite so
// past runs survive process restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"versecull/internal/bulk"
)

// Verify at compile time that Store satisfies the controller's recorder.
var _ bulk.RunRecorder = (*Store)(nil)

// Store provides access to the run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at the given path and
// initialises the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		items       INTEGER NOT NULL,
		batches     INTEGER NOT NULL,
		accepted    INTEGER NOT NULL,
		deleted     INTEGER NOT NULL,
		ambiguous   INTEGER NOT NULL,
		failed      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts a completed run summary.
func (s *Store) Record(ctx context.Context, run bulk.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, items, batches, accepted, deleted, ambiguous, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Items, run.Batches,
		run.Tally.Accepted, run.Tally.Deleted, run.Tally.Ambiguous, run.Tally.Failed,
	)
	return err
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]bulk.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, items, batches, accepted, deleted, ambiguous, failed
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []bulk.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Last returns the most recently started run, or nil when the history
// is empty.
func (s *Store) Last(ctx context.Context) (*bulk.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, items, batches, accepted, deleted, ambiguous, failed
		FROM runs ORDER BY started_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (bulk.Run, error) {
	var run bulk.Run
	var started, finished string
	err := row.Scan(&run.ID, &started, &finished, &run.Items, &run.Batches,
		&run.Tally.Accepted, &run.Tally.Deleted, &run.Tally.Ambiguous, &run.Tally.Failed)
	if err != nil {
		return bulk.Run{}, err
	}
	if run.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return bulk.Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
		return bulk.Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return run, nil
}
