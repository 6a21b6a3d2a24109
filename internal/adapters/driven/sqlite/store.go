// Package sqlite provides a local run-history store for deployments without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncRunStore = (*Store)(nil)

// timeLayout is fixed-width so that started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides SQLite-backed run history
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the SQLite database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func New(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("run history store initialized", "path", path)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts a finished run. A second save of the same id is ignored.
func (s *Store) Save(ctx context.Context, entry *domain.SyncLogEntry) error {
	entitiesJSON, err := json.Marshal(entry.Entities)
	if err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}
	optionsJSON, err := json.Marshal(entry.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	errs := entry.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}

	var completedAt sql.NullString
	if entry.CompletedAt != nil {
		completedAt = sql.NullString{String: entry.CompletedAt.UTC().Format(timeLayout), Valid: true}
	}

	totals := entry.Totals()
	const query = `
		INSERT OR IGNORE INTO sync_runs (
			id, state, success, cancelled, started_at, completed_at, job_id,
			entities, options, errors, inserted, updated, failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID, string(entry.State), entry.Success, entry.Cancelled,
		entry.StartedAt.UTC().Format(timeLayout), completedAt, entry.JobID,
		string(entitiesJSON), string(optionsJSON), string(errorsJSON),
		totals.Inserted, totals.Updated, totals.Failed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

const selectRuns = `
	SELECT id, state, success, cancelled, started_at, completed_at, job_id, entities, options, errors
	FROM sync_runs
`

// Get retrieves a run by id
func (s *Store) Get(ctx context.Context, id string) (*domain.SyncLogEntry, error) {
	entry, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}
	return entry, nil
}

// List retrieves the most recent runs, newest first
func (s *Store) List(ctx context.Context, limit int) ([]*domain.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var entries []*domain.SyncLogEntry
	for rows.Next() {
		entry, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.SyncLogEntry, error) {
	var entry domain.SyncLogEntry
	var startedAt string
	var completedAt sql.NullString
	var entitiesJSON, optionsJSON, errorsJSON string

	err := row.Scan(
		&entry.ID, &entry.State, &entry.Success, &entry.Cancelled,
		&startedAt, &completedAt, &entry.JobID,
		&entitiesJSON, &optionsJSON, &errorsJSON,
	)
	if err != nil {
		return nil, err
	}

	if entry.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		entry.CompletedAt = &t
	}

	if err := json.Unmarshal([]byte(entitiesJSON), &entry.Entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	if err := json.Unmarshal([]byte(optionsJSON), &entry.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if err := json.Unmarshal([]byte(errorsJSON), &entry.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if len(entry.Errors) == 0 {
		entry.Errors = nil
	}

	return &entry, nil
}
