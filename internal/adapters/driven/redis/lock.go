// Package redis provides the Redis-backed run lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const (
	lockPrefix = "fusion-sync:lock:"

	// Stored values are "<run id>|<instance id>".
	holderSep = "|"
)

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Lock implements DistributedLock with SET NX PX. The key holds the run id
// and the instance id of the process that took it; release and extend only
// succeed for that instance.
type Lock struct {
	client     *redis.Client
	instanceID string
}

// NewLock creates a Redis-backed run lock for this process.
func NewLock(client *redis.Client) *Lock {
	hostname, _ := os.Hostname()
	return &Lock{
		client:     client,
		instanceID: fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString()[:8]),
	}
}

// InstanceID identifies this process in lock values.
func (l *Lock) InstanceID() string {
	return l.instanceID
}

// Acquire takes the lock for runID unless another run holds it.
func (l *Lock) Acquire(ctx context.Context, name, runID string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockPrefix+name, runID+holderSep+l.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// ownedScript runs the command in ARGV[2] only when the stored value ends
// with this instance's suffix (ARGV[1]).
var ownedScript = redis.NewScript(`
	local v = redis.call("get", KEYS[1])
	if not v or string.sub(v, -string.len(ARGV[1])) ~= ARGV[1] then
		return 0
	end
	if ARGV[2] == "del" then
		return redis.call("del", KEYS[1])
	end
	return redis.call("pexpire", KEYS[1], ARGV[3])
`)

func (l *Lock) suffix() string {
	return holderSep + l.instanceID
}

// Release drops the lock if this instance holds it.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := ownedScript.Run(ctx, l.client, []string{lockPrefix + name}, l.suffix(), "del").Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend resets the TTL. The orchestrator calls it between entity types.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := ownedScript.Run(ctx, l.client, []string{lockPrefix + name}, l.suffix(), "pexpire", ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Holder returns the run holding the lock, or nil if it is free.
func (l *Lock) Holder(ctx context.Context, name string) (*domain.LockHolder, error) {
	v, err := l.client.Get(ctx, lockPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lock %s: %w", name, err)
	}
	runID, instance, _ := strings.Cut(v, holderSep)
	return &domain.LockHolder{RunID: runID, Instance: instance}, nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
