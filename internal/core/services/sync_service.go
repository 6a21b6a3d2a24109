package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.SyncService = (*syncService)(nil)

const (
	defaultRunListLimit = 20
	maxRecentRuns       = 50
)

// SyncServiceConfig holds dependencies for the sync service.
type SyncServiceConfig struct {
	Orchestrator *SyncOrchestrator
	Source       driven.SourceClient

	// RunStore serves run history. Without it the service keeps the most
	// recent runs in memory.
	RunStore driven.SyncRunStore

	Logger *slog.Logger
}

// syncService runs at most one orchestrator run at a time and tracks its
// cancel function so it can be stopped from another goroutine.
type syncService struct {
	orchestrator *SyncOrchestrator
	source       driven.SourceClient
	runStore     driven.SyncRunStore
	logger       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	recent []*domain.SyncLogEntry
	wg     sync.WaitGroup
}

// NewSyncService creates the operations service over the orchestrator.
func NewSyncService(cfg SyncServiceConfig) driving.SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &syncService{
		orchestrator: cfg.Orchestrator,
		source:       cfg.Source,
		runStore:     cfg.RunStore,
		logger:       logger,
	}
}

// Start launches a run in the background. The run is detached from ctx and
// is stopped only through Cancel. If the run cannot start after the id was
// handed out, a failed entry is recorded under that id.
func (s *syncService) Start(ctx context.Context, opts domain.RunOptions) (string, error) {
	if err := validateOptions(opts); err != nil {
		return "", err
	}
	if err := s.orchestrator.CheckLock(ctx); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if !s.claim(cancel) {
		cancel()
		return "", domain.ErrSyncInProgress
	}

	runID := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(cancel)

		if _, err := s.execute(runCtx, runID, opts); err != nil {
			s.logger.Error("background sync failed to start", "run_id", runID, "error", err)
			s.recordFailedStart(runCtx, runID, opts, err)
		}
	}()

	return runID, nil
}

// Run executes a run and blocks until it finishes.
func (s *syncService) Run(ctx context.Context, opts domain.RunOptions) (*domain.SyncLogEntry, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !s.claim(cancel) {
		return nil, domain.ErrSyncInProgress
	}
	defer s.release(cancel)

	return s.execute(runCtx, uuid.NewString(), opts)
}

func (s *syncService) execute(ctx context.Context, runID string, opts domain.RunOptions) (*domain.SyncLogEntry, error) {
	entry, err := s.orchestrator.RunWithID(ctx, runID, opts)
	if err != nil {
		return nil, err
	}
	if s.runStore == nil {
		s.remember(entry)
	}
	return entry, nil
}

// recordFailedStart stores a terminal entry for a background run that never
// started. Nothing is logged to the destination since no record was synced.
func (s *syncService) recordFailedStart(ctx context.Context, runID string, opts domain.RunOptions, cause error) {
	now := s.orchestrator.now()
	entry := domain.NewSyncLogEntry(runID, now, opts)
	for _, outcome := range entry.Entities {
		outcome.State = domain.EntityStateSkipped
	}
	entry.CompletedAt = &now
	entry.State = domain.RunStateCompletedWithErrors
	entry.Errors = []string{fmt.Sprintf("start: %v", cause)}

	if s.runStore == nil {
		s.remember(entry)
		return
	}
	if err := s.runStore.Save(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to store sync run", "run_id", runID, "error", err)
	}
}

// Cancel signals the active run to stop after its current page.
func (s *syncService) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return domain.ErrSyncNotRunning
	}
	s.cancel()
	s.logger.Info("sync cancellation requested", "run_id", s.orchestrator.Progress().RunID)
	return nil
}

// Progress reports the state of the active or last run.
func (s *syncService) Progress(ctx context.Context) domain.RunProgress {
	return s.orchestrator.Progress()
}

// TestConnection checks the source credentials and endpoint.
func (s *syncService) TestConnection(ctx context.Context) domain.ConnectionResult {
	return s.source.TestConnection(ctx)
}

// ListRuns returns recent run history, newest first.
func (s *syncService) ListRuns(ctx context.Context, limit int) ([]*domain.SyncLogEntry, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	if s.runStore != nil {
		return s.runStore.List(ctx, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.recent)
	if limit > n {
		limit = n
	}
	out := make([]*domain.SyncLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.recent[i])
	}
	return out, nil
}

// GetRun returns one run by id.
func (s *syncService) GetRun(ctx context.Context, id string) (*domain.SyncLogEntry, error) {
	if s.runStore != nil {
		entry, err := s.runStore.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		return entry, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.recent {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Wait blocks until background runs started by Start have returned.
func (s *syncService) Wait() {
	s.wg.Wait()
}

func (s *syncService) claim(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return false
	}
	s.cancel = cancel
	return true
}

func (s *syncService) release(cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil
}

func (s *syncService) remember(entry *domain.SyncLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, entry)
	if len(s.recent) > maxRecentRuns {
		s.recent = s.recent[len(s.recent)-maxRecentRuns:]
	}
}
