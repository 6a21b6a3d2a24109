package driving

import (
	"context"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// SyncService is the operations surface over the sync pipeline
type SyncService interface {
	// Start launches a run in the background and returns its id
	Start(ctx context.Context, opts domain.RunOptions) (string, error)

	// Run executes a run and blocks until it finishes
	Run(ctx context.Context, opts domain.RunOptions) (*domain.SyncLogEntry, error)

	// Cancel signals the active run to stop after its current page
	Cancel(ctx context.Context) error

	// Progress reports the state of the active or last run
	Progress(ctx context.Context) domain.RunProgress

	// TestConnection checks the source credentials and endpoint
	TestConnection(ctx context.Context) domain.ConnectionResult

	// ListRuns returns recent run history
	ListRuns(ctx context.Context, limit int) ([]*domain.SyncLogEntry, error)

	// GetRun returns one run by id
	GetRun(ctx context.Context, id string) (*domain.SyncLogEntry, error)
}
