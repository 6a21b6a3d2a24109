package driven

import (
	"context"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// DestinationClient writes transformed records to the storage backend.
// Errors returned by its methods are always *domain.CallError.
type DestinationClient interface {
	// Save submits one page of records in a single call. The destination
	// decides insert vs update by natural key; counts are returned as reported.
	Save(ctx context.Context, entity domain.EntityType, records []any) (domain.SaveResult, error)

	// LogSyncJob persists run metadata and returns the destination job id.
	LogSyncJob(ctx context.Context, entry *domain.SyncLogEntry) (string, error)
}
