package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// FetchCall records one FetchPage invocation.
type FetchCall struct {
	Resource domain.Resource
	Filters  domain.Filters
	Page     domain.Pagination
}

// MockSourceClient is a mock implementation of SourceClient for testing.
// Without FetchPageFn it serves Pages, keyed by resource, in offset order.
type MockSourceClient struct {
	mu    sync.Mutex
	calls []FetchCall

	Pages map[domain.Resource][]*domain.Page

	TestConnectionFn func(ctx context.Context) domain.ConnectionResult
	FetchPageFn      func(ctx context.Context, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, error)
	PostJournalFn    func(ctx context.Context, payload any) (map[string]any, error)
}

func NewMockSourceClient() *MockSourceClient {
	return &MockSourceClient{
		Pages: make(map[domain.Resource][]*domain.Page),
	}
}

func (m *MockSourceClient) TestConnection(ctx context.Context) domain.ConnectionResult {
	if m.TestConnectionFn != nil {
		return m.TestConnectionFn(ctx)
	}
	return domain.ConnectionResult{Success: true, Message: "mock connection ok", StatusCode: 200}
}

func (m *MockSourceClient) FetchPage(ctx context.Context, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, error) {
	m.mu.Lock()
	m.calls = append(m.calls, FetchCall{Resource: resource, Filters: filters, Page: page})
	m.mu.Unlock()

	if m.FetchPageFn != nil {
		return m.FetchPageFn(ctx, resource, filters, page)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	idx := 0
	if page.Limit > 0 {
		idx = page.Offset / page.Limit
	}
	pages := m.Pages[resource]
	if idx >= len(pages) {
		return &domain.Page{Items: []json.RawMessage{}, Limit: page.Limit, Offset: page.Offset}, nil
	}
	return pages[idx], nil
}

func (m *MockSourceClient) PostJournal(ctx context.Context, payload any) (map[string]any, error) {
	if m.PostJournalFn != nil {
		return m.PostJournalFn(ctx, payload)
	}
	return map[string]any{}, nil
}

// Calls returns a copy of the recorded FetchPage calls.
func (m *MockSourceClient) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FetchCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor returns the recorded FetchPage calls for one resource.
func (m *MockSourceClient) CallsFor(resource domain.Resource) []FetchCall {
	var out []FetchCall
	for _, c := range m.Calls() {
		if c.Resource == resource {
			out = append(out, c)
		}
	}
	return out
}

// NewPage builds a page from raw JSON items.
func NewPage(hasMore bool, items ...string) *domain.Page {
	raw := make([]json.RawMessage, len(items))
	for i, it := range items {
		raw[i] = json.RawMessage(it)
	}
	return &domain.Page{Items: raw, TotalCount: len(raw), HasMore: hasMore}
}

// BatchItem returns a journalBatches item with the given id.
func BatchItem(id int64) string {
	return fmt.Sprintf(`{"JeBatchId": %d, "BatchName": "Batch %d", "Status": "POSTED"}`, id, id)
}

// HeaderItem returns a journalHeaders item under the given batch.
func HeaderItem(id, batchID int64) string {
	return fmt.Sprintf(`{"JeHeaderId": %d, "JeBatchId": %d, "Status": "POSTED"}`, id, batchID)
}

// LineItem returns a journalLines item under the given header.
func LineItem(headerID, lineNum int64) string {
	return fmt.Sprintf(`{"JeHeaderId": %d, "JeLineNum": %d, "EnteredDr": "10.00"}`, headerID, lineNum)
}
