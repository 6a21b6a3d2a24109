package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driving"
)

// countingSyncService records Start calls and returns startErr.
type countingSyncService struct {
	driving.SyncService

	mu       sync.Mutex
	starts   int
	opts     []domain.RunOptions
	startErr error
}

func (c *countingSyncService) Start(ctx context.Context, opts domain.RunOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	c.opts = append(c.opts, opts)
	if c.startErr != nil {
		return "", c.startErr
	}
	return "run-" + string(rune('0'+c.starts)), nil
}

func (c *countingSyncService) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

func TestNewScheduler_RequiresInterval(t *testing.T) {
	_, err := NewScheduler(SchedulerConfig{Service: &countingSyncService{}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestScheduler_TriggersOnInterval(t *testing.T) {
	svc := &countingSyncService{}
	opts := domain.RunOptions{Entities: []domain.EntityType{domain.EntityBatches}, PageSize: 50}

	s, err := NewScheduler(SchedulerConfig{Service: svc, Options: opts, Interval: 10 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return svc.count() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stopped := svc.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, svc.count(), "no runs after Stop")

	svc.mu.Lock()
	assert.Equal(t, opts.Entities, svc.opts[0].Entities)
	assert.Equal(t, 50, svc.opts[0].PageSize)
	assert.Equal(t, "scheduler", svc.opts[0].TriggeredBy)
	svc.mu.Unlock()

	runID, lastErr := s.LastRun()
	assert.NotEmpty(t, runID)
	assert.NoError(t, lastErr)
}

func TestScheduler_RunOnStart(t *testing.T) {
	svc := &countingSyncService{}

	s, err := NewScheduler(SchedulerConfig{Service: svc, Interval: time.Hour, RunOnStart: true})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return svc.count() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestScheduler_SkipsWhenRunActive(t *testing.T) {
	svc := &countingSyncService{startErr: domain.ErrSyncInProgress}

	s, err := NewScheduler(SchedulerConfig{Service: svc, Interval: time.Hour})
	require.NoError(t, err)

	s.trigger(context.Background())

	runID, lastErr := s.LastRun()
	assert.Empty(t, runID)
	assert.ErrorIs(t, lastErr, domain.ErrSyncInProgress)
}

func TestScheduler_KeepsLastRunIDOnFailure(t *testing.T) {
	svc := &countingSyncService{}
	s, err := NewScheduler(SchedulerConfig{Service: svc, Interval: time.Hour})
	require.NoError(t, err)

	s.trigger(context.Background())
	first, _ := s.LastRun()
	require.NotEmpty(t, first)

	svc.startErr = errors.New("boom")
	s.trigger(context.Background())

	runID, lastErr := s.LastRun()
	assert.Equal(t, first, runID)
	assert.EqualError(t, lastErr, "boom")
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	svc := &countingSyncService{}
	s, err := NewScheduler(SchedulerConfig{Service: svc, Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx), "second Start is a no-op")
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{Service: &countingSyncService{}, Interval: time.Hour})
	require.NoError(t, err)
	s.Stop()
}
