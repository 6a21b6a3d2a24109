package driven

import (
	"context"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// SyncRunStore keeps a local history of finished runs (PostgreSQL or SQLite)
type SyncRunStore interface {
	// Save inserts a finished run entry
	Save(ctx context.Context, entry *domain.SyncLogEntry) error

	// Get retrieves a run by id
	Get(ctx context.Context, id string) (*domain.SyncLogEntry, error)

	// List retrieves the most recent runs, newest first
	List(ctx context.Context, limit int) ([]*domain.SyncLogEntry, error)
}
