package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// MockSyncRunStore is a mock implementation of SyncRunStore for testing
type MockSyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.SyncLogEntry

	SaveErr error
}

// NewMockSyncRunStore creates a new MockSyncRunStore
func NewMockSyncRunStore() *MockSyncRunStore {
	return &MockSyncRunStore{
		runs: make(map[string]*domain.SyncLogEntry),
	}
}

func (m *MockSyncRunStore) Save(ctx context.Context, entry *domain.SyncLogEntry) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[entry.ID] = entry
	return nil
}

func (m *MockSyncRunStore) Get(ctx context.Context, id string) (*domain.SyncLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

func (m *MockSyncRunStore) List(ctx context.Context, limit int) ([]*domain.SyncLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.SyncLogEntry, 0, len(m.runs))
	for _, entry := range m.runs {
		result = append(result, entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Count returns the number of stored runs.
func (m *MockSyncRunStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}
