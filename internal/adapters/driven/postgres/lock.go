package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// holderAppPrefix tags the pinned session's application_name so other
// processes can find the run holding a lock through pg_stat_activity.
const holderAppPrefix = "fusion-sync:"

// AdvisoryLock implements DistributedLock with session-level advisory locks.
//
// Each held lock pins one pooled connection until Release, so:
// - TTL is ignored; the lock lives until Release or the session ends
// - Extend only checks that the pinned session is still alive
//
// The Redis lock is used instead when redis.url is set.
type AdvisoryLock struct {
	db *DB

	mu    sync.Mutex
	conns map[string]*sql.Conn
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}
}

// hashLockName maps a lock name to the bigint advisory key (FNV-1a).
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("fusion-sync:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries the advisory lock without blocking and labels the session with runID.
func (l *AdvisoryLock) Acquire(ctx context.Context, name, runID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.conns[name]; held {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("get connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	if _, err := conn.ExecContext(ctx, "SELECT set_config('application_name', $1, false)", holderAppPrefix+runID); err != nil {
		_, _ = conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name))
		conn.Close()
		return false, fmt.Errorf("label lock session: %w", err)
	}

	l.conns[name] = conn
	return true, nil
}

// Release unlocks on the pinned connection and returns it to the pool.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	delete(l.conns, name)
	l.mu.Unlock()

	if !held {
		return nil
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "RESET application_name"); err != nil {
		return err
	}
	var released bool
	return conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}

// Extend checks that the lock is still held. Advisory locks have no TTL.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	l.mu.Unlock()

	if !held {
		return fmt.Errorf("lock %s not held", name)
	}
	return conn.PingContext(ctx)
}

// Holder finds the session holding the lock. A bigint advisory key shows up
// in pg_locks split across classid (high word) and objid (low word).
func (l *AdvisoryLock) Holder(ctx context.Context, name string) (*domain.LockHolder, error) {
	key := uint64(hashLockName(name))

	query := `
		SELECT a.application_name, a.pid, COALESCE(host(a.client_addr), 'local')
		FROM pg_locks l
		JOIN pg_stat_activity a ON a.pid = l.pid
		WHERE l.locktype = 'advisory' AND l.granted
			AND l.classid::bigint = $1 AND l.objid::bigint = $2 AND l.objsubid = 1
		LIMIT 1
	`

	var app, addr string
	var pid int
	err := l.db.QueryRowContext(ctx, query, int64(key>>32), int64(key&0xffffffff)).Scan(&app, &pid, &addr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.LockHolder{
		RunID:    strings.TrimPrefix(app, holderAppPrefix),
		Instance: fmt.Sprintf("%s pid %d", addr, pid),
	}, nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
