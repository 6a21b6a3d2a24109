package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// SaveCall records one Save invocation.
type SaveCall struct {
	Entity  domain.EntityType
	Records []any
}

// MockDestinationClient is a mock implementation of DestinationClient for testing.
// Without SaveFn every record is reported as inserted.
type MockDestinationClient struct {
	mu     sync.Mutex
	saves  []SaveCall
	logged []*domain.SyncLogEntry

	SaveFn       func(ctx context.Context, entity domain.EntityType, records []any) (domain.SaveResult, error)
	LogSyncJobFn func(ctx context.Context, entry *domain.SyncLogEntry) (string, error)
}

func NewMockDestinationClient() *MockDestinationClient {
	return &MockDestinationClient{}
}

func (m *MockDestinationClient) Save(ctx context.Context, entity domain.EntityType, records []any) (domain.SaveResult, error) {
	m.mu.Lock()
	m.saves = append(m.saves, SaveCall{Entity: entity, Records: records})
	m.mu.Unlock()

	if m.SaveFn != nil {
		return m.SaveFn(ctx, entity, records)
	}
	return domain.SaveResult{Inserted: len(records)}, nil
}

func (m *MockDestinationClient) LogSyncJob(ctx context.Context, entry *domain.SyncLogEntry) (string, error) {
	m.mu.Lock()
	m.logged = append(m.logged, entry)
	m.mu.Unlock()

	if m.LogSyncJobFn != nil {
		return m.LogSyncJobFn(ctx, entry)
	}
	return "job-1", nil
}

// Saves returns a copy of the recorded Save calls.
func (m *MockDestinationClient) Saves() []SaveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SaveCall, len(m.saves))
	copy(out, m.saves)
	return out
}

// SavesFor returns the recorded Save calls for one entity type.
func (m *MockDestinationClient) SavesFor(entity domain.EntityType) []SaveCall {
	var out []SaveCall
	for _, s := range m.Saves() {
		if s.Entity == entity {
			out = append(out, s)
		}
	}
	return out
}

// Logged returns the entries passed to LogSyncJob.
func (m *MockDestinationClient) Logged() []*domain.SyncLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SyncLogEntry, len(m.logged))
	copy(out, m.logged)
	return out
}
