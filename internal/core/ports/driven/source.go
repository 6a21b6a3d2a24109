package driven

import (
	"context"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// SourceClient reads GL records from the ERP REST API.
// Errors returned by its methods are always *domain.CallError. It never retries.
type SourceClient interface {
	// TestConnection issues a bounded query against a low-cost resource.
	// Failures are reported in the result, never as a Go error.
	TestConnection(ctx context.Context) domain.ConnectionResult

	// FetchPage fetches one page of a resource. Filter fields the resource
	// does not support are omitted from the query. HasMore is taken verbatim
	// from the response.
	FetchPage(ctx context.Context, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, error)

	// PostJournal writes a journal back to the source. Not used by the sync pipeline.
	PostJournal(ctx context.Context, payload any) (map[string]any, error)
}
