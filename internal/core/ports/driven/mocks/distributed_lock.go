package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// MockDistributedLock keeps locks in memory with their expiry and holder.
// The Fn hooks replace the in-memory behaviour when set.
type MockDistributedLock struct {
	mu       sync.Mutex
	locks    map[string]heldLock
	acquires int
	releases int

	AcquireFn func(name, runID string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	HolderFn  func(name string) (*domain.LockHolder, error)
}

type heldLock struct {
	holder domain.LockHolder
	expiry time.Time
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{locks: make(map[string]heldLock)}
}

func (m *MockDistributedLock) live(name string) (heldLock, bool) {
	l, ok := m.locks[name]
	return l, ok && time.Now().Before(l.expiry)
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name, runID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	m.acquires++
	fn := m.AcquireFn
	m.mu.Unlock()

	if fn != nil {
		return fn(name, runID, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.live(name); held {
		return false, nil
	}
	m.locks[name] = heldLock{
		holder: domain.LockHolder{RunID: runID, Instance: "mock"},
		expiry: time.Now().Add(ttl),
	}
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	m.releases++
	fn := m.ReleaseFn
	m.mu.Unlock()

	if fn != nil {
		return fn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[name]; ok && l.holder.Instance == "mock" {
		delete(m.locks, name)
	}
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, held := m.live(name)
	if !held || l.holder.Instance != "mock" {
		return fmt.Errorf("lock %s not held", name)
	}
	l.expiry = time.Now().Add(ttl)
	m.locks[name] = l
	return nil
}

func (m *MockDistributedLock) Holder(ctx context.Context, name string) (*domain.LockHolder, error) {
	if m.HolderFn != nil {
		return m.HolderFn(name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	l, held := m.live(name)
	if !held {
		return nil, nil
	}
	h := l.holder
	return &h, nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// Counts returns how many times Acquire and Release were called.
func (m *MockDistributedLock) Counts() (acquires, releases int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquires, m.releases
}

// IsHeld reports whether any run currently holds the lock.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.live(name)
	return held
}

// SetLockHeld simulates a run in another process holding the lock.
func (m *MockDistributedLock) SetLockHeld(name, runID string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = heldLock{
		holder: domain.LockHolder{RunID: runID, Instance: "other-host"},
		expiry: time.Now().Add(ttl),
	}
}
