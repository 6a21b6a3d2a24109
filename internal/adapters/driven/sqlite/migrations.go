package sqlite

import (
	"fmt"
)

// migrations are applied in order; append new versions, never edit old ones.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
			CREATE TABLE sync_runs (
				id TEXT PRIMARY KEY,
				state TEXT NOT NULL,
				success BOOLEAN NOT NULL DEFAULT 0,
				cancelled BOOLEAN NOT NULL DEFAULT 0,
				started_at TEXT NOT NULL,
				completed_at TEXT,
				job_id TEXT NOT NULL DEFAULT '',
				entities TEXT NOT NULL DEFAULT '{}',
				options TEXT NOT NULL DEFAULT '{}',
				errors TEXT NOT NULL DEFAULT '[]'
			);

			CREATE INDEX idx_sync_runs_started_at ON sync_runs(started_at);
		`,
	},
	{
		version: 2,
		sql: `
			ALTER TABLE sync_runs ADD COLUMN inserted INTEGER NOT NULL DEFAULT 0;
			ALTER TABLE sync_runs ADD COLUMN updated INTEGER NOT NULL DEFAULT 0;
			ALTER TABLE sync_runs ADD COLUMN failed INTEGER NOT NULL DEFAULT 0;
		`,
	},
}

// migrate runs all pending migrations
func (s *Store) migrate() error {
	const createMigrationsTableSQL = `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := s.db.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, mig := range migrations {
		if mig.version <= currentVersion {
			continue
		}
		s.logger.Debug("running migration", "version", mig.version)
		if err := s.runMigration(mig.version, mig.sql); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", mig.version, err)
		}
	}

	return nil
}

// runMigration executes a migration and records it
func (s *Store) runMigration(version int, sql string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sql); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
