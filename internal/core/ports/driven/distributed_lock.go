package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// DistributedLock serialises sync runs that write the same destination
// natural keys. A run holds the lock from start until its log entry is written.
type DistributedLock interface {
	// Acquire takes the named lock on behalf of runID.
	// Returns false without error when another run holds it.
	Acquire(ctx context.Context, name, runID string, ttl time.Duration) (acquired bool, err error)

	// Release drops a lock held by this instance.
	// Safe to call when the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend pushes out the TTL of a lock held by this instance.
	// Backends without a TTL only verify the lock is still held.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Holder reports who holds the lock, or nil when it is free.
	Holder(ctx context.Context, name string) (*domain.LockHolder, error)

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
