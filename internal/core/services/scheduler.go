package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driving"
)

// Scheduler starts a sync run on a fixed interval.
// It runs inside the serve process next to the HTTP API.
//
// A tick that finds a run already active is skipped. Across instances the
// orchestrator's DistributedLock keeps runs serialised.
type Scheduler struct {
	service driving.SyncService
	options domain.RunOptions
	logger  *slog.Logger

	// Internal state
	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	runOnStart bool
	lastRunID  string
	lastErr    error
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Service    driving.SyncService
	Options    domain.RunOptions
	Interval   time.Duration // Time between run attempts (required)
	RunOnStart bool          // Attempt a run as soon as the scheduler starts
	Logger     *slog.Logger
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("%w: schedule interval must be positive", domain.ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := cfg.Options
	if opts.TriggeredBy == "" {
		opts.TriggeredBy = "scheduler"
	}

	return &Scheduler{
		service:    cfg.Service,
		options:    opts,
		logger:     logger,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
	}, nil
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "interval", s.interval, "run_on_start", s.runOnStart)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler. A run already started keeps going;
// cancel it through the SyncService.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the scheduler to finish
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// LastRun returns the id of the last run the scheduler started and the
// error of the last attempt, if any.
func (s *Scheduler) LastRun() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunID, s.lastErr
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.trigger(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger starts one background run unless a run is already active.
func (s *Scheduler) trigger(ctx context.Context) {
	runID, err := s.service.Start(ctx, s.options)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.lastRunID = runID
	}
	s.mu.Unlock()

	switch {
	case err == nil:
		s.logger.Info("scheduled sync started", "run_id", runID)
	case errors.Is(err, domain.ErrSyncInProgress):
		s.logger.Debug("sync already running, skipping scheduled run")
	default:
		s.logger.Error("failed to start scheduled sync", "error", err)
	}
}
