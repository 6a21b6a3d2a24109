package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore implements driven.SyncRunStore using PostgreSQL
type SyncRunStore struct {
	db *DB
}

// NewSyncRunStore creates a new SyncRunStore
func NewSyncRunStore(db *DB) *SyncRunStore {
	return &SyncRunStore{db: db}
}

const selectRunColumns = `
	SELECT id, state, success, cancelled, started_at, completed_at, job_id, entities, options, errors
	FROM sync_runs
`

// Save inserts a finished run. Entries are written once; a second save of
// the same id is ignored.
func (s *SyncRunStore) Save(ctx context.Context, entry *domain.SyncLogEntry) error {
	entitiesJSON, err := json.Marshal(entry.Entities)
	if err != nil {
		return err
	}
	optionsJSON, err := json.Marshal(entry.Options)
	if err != nil {
		return err
	}

	totals := entry.Totals()
	errs := entry.Errors
	if errs == nil {
		errs = []string{}
	}

	query := `
		INSERT INTO sync_runs (id, state, success, cancelled, started_at, completed_at, job_id,
			entities, options, errors, inserted, updated, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = s.db.ExecContext(ctx, query,
		entry.ID,
		string(entry.State),
		entry.Success,
		entry.Cancelled,
		entry.StartedAt,
		nullTime(entry.CompletedAt),
		entry.JobID,
		entitiesJSON,
		optionsJSON,
		pq.Array(errs),
		totals.Inserted,
		totals.Updated,
		totals.Failed,
	)
	return err
}

// Get retrieves a run by id
func (s *SyncRunStore) Get(ctx context.Context, id string) (*domain.SyncLogEntry, error) {
	row := s.db.QueryRowContext(ctx, selectRunColumns+` WHERE id = $1`, id)
	entry, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return entry, err
}

// List retrieves the most recent runs, newest first
func (s *SyncRunStore) List(ctx context.Context, limit int) ([]*domain.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, selectRunColumns+` ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.SyncLogEntry
	for rows.Next() {
		entry, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.SyncLogEntry, error) {
	var entry domain.SyncLogEntry
	var completedAt sql.NullTime
	var entitiesJSON, optionsJSON []byte
	var errs []string

	err := row.Scan(
		&entry.ID,
		&entry.State,
		&entry.Success,
		&entry.Cancelled,
		&entry.StartedAt,
		&completedAt,
		&entry.JobID,
		&entitiesJSON,
		&optionsJSON,
		pq.Array(&errs),
	)
	if err != nil {
		return nil, err
	}

	entry.CompletedAt = timePtr(completedAt)
	if len(errs) > 0 {
		entry.Errors = errs
	}

	if len(entitiesJSON) > 0 {
		if err := json.Unmarshal(entitiesJSON, &entry.Entities); err != nil {
			return nil, err
		}
	}
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &entry.Options); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}
