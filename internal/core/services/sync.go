package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
	"github.com/custodia-labs/fusion-sync/internal/transform"
)

const (
	// DefaultPageSize is the page limit used when none is configured.
	DefaultPageSize = 25

	// MaxPageSize caps the page limit requested from Fusion.
	MaxPageSize = 500

	// SyncLockName is the DistributedLock name guarding GL runs.
	SyncLockName = "gl-sync"

	defaultLockTTL = 30 * time.Minute
)

// SyncOrchestrator coordinates one GL sync run.
// Entity types run in domain.SyncOrder. For each one it:
//  1. Fetches a page from the source
//  2. Maps every item to its destination record
//  3. Saves the page to the destination in one call
//  4. Advances the offset until hasMore=false or an empty page
//
// Headers are fetched per loaded batch id and lines per loaded header id.
// A fetch or save error stops the affected entity type; the run moves on.
type SyncOrchestrator struct {
	source      driven.SourceClient
	destination driven.DestinationClient
	mapper      driven.RecordMapper
	runStore    driven.SyncRunStore
	lock        driven.DistributedLock
	logger      *slog.Logger
	now         func() time.Time
	pageSize    int
	lockTTL     time.Duration

	mu          sync.RWMutex
	progress    domain.RunProgress
	lockRenewed time.Time
}

// SyncOrchestratorConfig holds dependencies for SyncOrchestrator.
type SyncOrchestratorConfig struct {
	Source      driven.SourceClient
	Destination driven.DestinationClient

	// Mapper defaults to a transform.Transformer using Clock.
	Mapper driven.RecordMapper

	// RunStore keeps local run history (optional).
	RunStore driven.SyncRunStore

	// Lock serialises runs across processes (optional).
	Lock    driven.DistributedLock
	LockTTL time.Duration

	PageSize int
	Clock    func() time.Time
	Logger   *slog.Logger
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(cfg SyncOrchestratorConfig) *SyncOrchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	mapper := cfg.Mapper
	if mapper == nil {
		mapper = transform.New(now)
	}

	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	return &SyncOrchestrator{
		source:      cfg.Source,
		destination: cfg.Destination,
		mapper:      mapper,
		runStore:    cfg.RunStore,
		lock:        cfg.Lock,
		logger:      logger,
		now:         now,
		pageSize:    clampPageSize(cfg.PageSize),
		lockTTL:     lockTTL,
		progress:    domain.RunProgress{State: domain.RunStateIdle},
	}
}

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Progress returns the state of the active or last run.
func (o *SyncOrchestrator) Progress() domain.RunProgress {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress
}

// Run executes one sync run with a generated id.
func (o *SyncOrchestrator) Run(ctx context.Context, opts domain.RunOptions) (*domain.SyncLogEntry, error) {
	return o.RunWithID(ctx, uuid.NewString(), opts)
}

// RunWithID executes one sync run and blocks until it finishes.
// A non-nil error means the run never started; failures during the run
// are reported in the returned entry. Cancelling ctx stops the run after
// the current page has been saved.
func (o *SyncOrchestrator) RunWithID(ctx context.Context, runID string, opts domain.RunOptions) (*domain.SyncLogEntry, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	if !o.begin(runID) {
		return nil, domain.ErrSyncInProgress
	}
	defer o.finish()

	if o.lock != nil {
		acquired, err := o.lock.Acquire(ctx, SyncLockName, runID, o.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !acquired {
			return nil, o.lockHeldError(ctx)
		}
		o.mu.Lock()
		o.lockRenewed = time.Now()
		o.mu.Unlock()
		defer func() {
			if err := o.lock.Release(context.WithoutCancel(ctx), SyncLockName); err != nil {
				o.logger.Warn("failed to release sync lock", "run_id", runID, "error", err)
			}
		}()
	}

	pageSize := o.pageSize
	if opts.PageSize > 0 {
		pageSize = clampPageSize(opts.PageSize)
	}
	opts.PageSize = pageSize

	entry := domain.NewSyncLogEntry(runID, o.now(), opts)
	o.logger.Info("starting gl sync",
		"run_id", runID,
		"page_size", pageSize,
		"entities", opts.Entities,
	)

	// Natural keys of records saved without error, per parent entity type.
	keys := make(map[domain.EntityType][]int64)

	for _, entity := range domain.SyncOrder {
		outcome := entry.Entities[entity]

		if entry.Cancelled {
			outcome.State = domain.EntityStateSkipped
			continue
		}
		if !opts.Includes(entity) {
			outcome.State = domain.EntityStateSkipped
			continue
		}
		if parent := entity.Parent(); parent != "" && !opts.Includes(parent) {
			outcome.State = domain.EntityStateSkipped
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("skipped: parent %s not selected", parent))
			continue
		}

		outcome.State = domain.EntityStateRunning

		collected, err := o.syncEntity(ctx, runID, entity, scopes(entity, opts, keys), pageSize, outcome)
		keys[entity] = collected

		switch {
		case errors.Is(err, domain.ErrCancelled):
			entry.Cancelled = true
			outcome.State = domain.EntityStateCompletedWithErrors
			outcome.Errors = append(outcome.Errors, err.Error())
			entry.Errors = append(entry.Errors, fmt.Sprintf("%s: %v", entity, err))
			o.logger.Warn("gl sync cancelled", "run_id", runID, "entity", entity)
		case err != nil:
			outcome.State = domain.EntityStateCompletedWithErrors
			outcome.Errors = append(outcome.Errors, err.Error())
			entry.Errors = append(entry.Errors, fmt.Sprintf("%s: %v", entity, err))
			o.logger.Error("entity sync failed", "run_id", runID, "entity", entity, "error", err)
		default:
			outcome.State = domain.EntityStateCompleted
		}

		o.logger.Info("entity sync finished",
			"run_id", runID,
			"entity", entity,
			"state", outcome.State,
			"fetched", outcome.Fetched,
			"inserted", outcome.Inserted,
			"updated", outcome.Updated,
			"failed", outcome.Failed,
		)
	}

	o.complete(ctx, entry)
	return entry, nil
}

func validateOptions(opts domain.RunOptions) error {
	for _, e := range opts.Entities {
		if !e.IsValid() {
			return fmt.Errorf("%w: %w: %q", domain.ErrInvalidInput, domain.ErrUnknownEntity, e)
		}
	}
	if f := opts.BatchFilters; f.CreationDateFrom != nil && f.CreationDateTo != nil && f.CreationDateTo.Before(*f.CreationDateFrom) {
		return fmt.Errorf("%w: creation date range is inverted", domain.ErrInvalidInput)
	}
	return nil
}

// scopes returns the filter sets an entity type is fetched with: one per
// saved parent key for FK children, a single set otherwise.
func scopes(entity domain.EntityType, opts domain.RunOptions, keys map[domain.EntityType][]int64) []domain.Filters {
	switch entity {
	case domain.EntityBatches:
		return []domain.Filters{opts.BatchFilters}
	case domain.EntityHeaders:
		parents := keys[domain.EntityBatches]
		out := make([]domain.Filters, len(parents))
		for i, id := range parents {
			out[i] = domain.Filters{JeBatchID: domain.Int64Ptr(id)}
		}
		return out
	case domain.EntityLines:
		parents := keys[domain.EntityHeaders]
		out := make([]domain.Filters, len(parents))
		for i, id := range parents {
			out[i] = domain.Filters{JeHeaderID: domain.Int64Ptr(id)}
		}
		return out
	default:
		return []domain.Filters{{}}
	}
}

// syncEntity runs the page loop for every scope of one entity type and
// returns the keys of records from pages that saved without error.
func (o *SyncOrchestrator) syncEntity(
	ctx context.Context,
	runID string,
	entity domain.EntityType,
	filterSets []domain.Filters,
	pageSize int,
	outcome *domain.EntityOutcome,
) ([]int64, error) {
	var keys []int64
	for _, filters := range filterSets {
		scoped, err := o.syncScope(ctx, runID, entity, filters, pageSize, outcome)
		keys = append(keys, scoped...)
		if err != nil {
			return keys, err
		}
	}
	return keys, nil
}

// syncScope pages through one filtered collection, saving each page as it
// arrives. Cancellation is checked between pages only.
func (o *SyncOrchestrator) syncScope(
	ctx context.Context,
	runID string,
	entity domain.EntityType,
	filters domain.Filters,
	pageSize int,
	outcome *domain.EntityOutcome,
) ([]int64, error) {
	var keys []int64
	page := domain.Pagination{Limit: pageSize}

	for {
		select {
		case <-ctx.Done():
			return keys, domain.ErrCancelled
		default:
		}

		o.renewLock(ctx, runID)
		o.setProgress(entity, page.Offset)

		result, err := o.source.FetchPage(ctx, entity.Resource(), filters, page)
		if err != nil {
			if ctx.Err() != nil {
				return keys, domain.ErrCancelled
			}
			return keys, fmt.Errorf("fetch offset %d: %w", page.Offset, err)
		}
		outcome.Pages++
		outcome.Fetched += len(result.Items)

		if len(result.Items) == 0 {
			break
		}

		records := make([]any, 0, len(result.Items))
		pageKeys := make([]int64, 0, len(result.Items))
		for i, raw := range result.Items {
			mapped, err := o.mapper.Map(entity, raw)
			if err != nil {
				// Unmappable items are counted as failed, the rest of the page is saved.
				outcome.Failed++
				outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("offset %d item %d: %v", page.Offset, i, err))
				o.logger.Warn("failed to map record", "run_id", runID, "entity", entity, "offset", page.Offset, "item", i, "error", err)
				continue
			}
			records = append(records, mapped.Record)
			if mapped.Key != 0 {
				pageKeys = append(pageKeys, mapped.Key)
			}
		}

		if len(records) > 0 {
			// The current page's save completes even if cancellation arrives meanwhile.
			saved, err := o.destination.Save(context.WithoutCancel(ctx), entity, records)
			if err != nil {
				outcome.Failed += len(records)
				return keys, fmt.Errorf("save offset %d: %w", page.Offset, err)
			}
			outcome.Add(saved)
			keys = append(keys, pageKeys...)

			if saved.Failed > 0 {
				partial := &domain.CallError{
					Kind:    domain.KindPartialSave,
					Op:      "save " + string(entity),
					Message: fmt.Sprintf("%d of %d records failed at offset %d", saved.Failed, len(records), page.Offset),
				}
				outcome.Warnings = append(outcome.Warnings, partial.Error())
				o.logger.Warn("partial save", "run_id", runID, "entity", entity, "offset", page.Offset, "failed", saved.Failed)
			}

			o.logger.Debug("page synced",
				"run_id", runID,
				"entity", entity,
				"offset", page.Offset,
				"limit", page.Limit,
				"inserted", saved.Inserted,
				"updated", saved.Updated,
				"failed", saved.Failed,
			)
		}

		if !result.HasMore {
			break
		}
		page = page.Next()
	}

	return keys, nil
}

// complete finalises the entry, logs it to the destination exactly once and
// stores it in the local history.
func (o *SyncOrchestrator) complete(ctx context.Context, entry *domain.SyncLogEntry) {
	ctx = context.WithoutCancel(ctx)

	completedAt := o.now()
	entry.CompletedAt = &completedAt
	entry.Success = len(entry.Errors) == 0
	if entry.Success {
		entry.State = domain.RunStateCompleted
	} else {
		entry.State = domain.RunStateCompletedWithErrors
	}

	jobID, err := o.destination.LogSyncJob(ctx, entry)
	if err != nil {
		o.logger.Error("failed to log sync job", "run_id", entry.ID, "error", err)
		entry.Errors = append(entry.Errors, fmt.Sprintf("log sync job: %v", err))
		entry.Success = false
		entry.State = domain.RunStateCompletedWithErrors
	} else {
		entry.JobID = jobID
	}

	if o.runStore != nil {
		if err := o.runStore.Save(ctx, entry); err != nil {
			o.logger.Warn("failed to store sync run", "run_id", entry.ID, "error", err)
		}
	}

	totals := entry.Totals()
	o.logger.Info("gl sync completed",
		"run_id", entry.ID,
		"state", entry.State,
		"success", entry.Success,
		"cancelled", entry.Cancelled,
		"inserted", totals.Inserted,
		"updated", totals.Updated,
		"failed", totals.Failed,
		"errors", len(entry.Errors),
		"job_id", entry.JobID,
		"duration", entry.Duration(),
	)

	o.mu.Lock()
	o.progress.State = entry.State
	o.progress.Entity = ""
	o.progress.Offset = 0
	o.mu.Unlock()
}

// renewLock extends the sync lock once a third of its TTL has passed since
// it was taken or last extended. It runs before every page fetch.
func (o *SyncOrchestrator) renewLock(ctx context.Context, runID string) {
	if o.lock == nil {
		return
	}

	o.mu.Lock()
	due := time.Since(o.lockRenewed) >= o.lockTTL/3
	if due {
		o.lockRenewed = time.Now()
	}
	o.mu.Unlock()
	if !due {
		return
	}

	if err := o.lock.Extend(ctx, SyncLockName, o.lockTTL); err != nil {
		o.logger.Warn("failed to extend sync lock", "run_id", runID, "error", err)
	}
}

// CheckLock returns ErrSyncInProgress when another run holds the sync lock.
// RunWithID still takes the lock itself; this lets async callers fail early.
func (o *SyncOrchestrator) CheckLock(ctx context.Context) error {
	if o.lock == nil {
		return nil
	}
	holder, err := o.lock.Holder(ctx, SyncLockName)
	if err != nil || holder == nil {
		return nil
	}
	return fmt.Errorf("%w: lock held by %s", domain.ErrSyncInProgress, holder)
}

// lockHeldError names the run holding the lock when the backend can tell.
func (o *SyncOrchestrator) lockHeldError(ctx context.Context) error {
	holder, err := o.lock.Holder(ctx, SyncLockName)
	if err != nil {
		o.logger.Debug("failed to look up sync lock holder", "error", err)
	}
	if holder == nil {
		return domain.ErrSyncInProgress
	}
	return fmt.Errorf("%w: lock held by %s", domain.ErrSyncInProgress, holder)
}

// begin moves the state machine to Running. It fails if a run is active in
// this process.
func (o *SyncOrchestrator) begin(runID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress.State == domain.RunStateRunning {
		return false
	}
	o.progress = domain.RunProgress{State: domain.RunStateRunning, RunID: runID}
	return true
}

// finish returns to Idle when the run ended before reaching a terminal state.
func (o *SyncOrchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress.State == domain.RunStateRunning {
		o.progress = domain.RunProgress{State: domain.RunStateIdle}
	}
}

func (o *SyncOrchestrator) setProgress(entity domain.EntityType, offset int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress.Entity = entity
	o.progress.Offset = offset
}
