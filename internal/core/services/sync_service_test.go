package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven/mocks"
)

func createTestSyncService(t *testing.T, runStore driven.SyncRunStore) (*syncService, *mocks.MockSourceClient, *mocks.MockDestinationClient) {
	t.Helper()

	source := mocks.NewMockSourceClient()
	destination := mocks.NewMockDestinationClient()
	orchestrator := NewSyncOrchestrator(SyncOrchestratorConfig{
		Source:      source,
		Destination: destination,
		RunStore:    runStore,
		PageSize:    1,
	})

	svc := NewSyncService(SyncServiceConfig{
		Orchestrator: orchestrator,
		Source:       source,
		RunStore:     runStore,
	}).(*syncService)
	return svc, source, destination
}

func TestSyncService_RunAndHistoryInMemory(t *testing.T) {
	svc, source, _ := createTestSyncService(t, nil)
	source.Pages[domain.ResourceJournalBatches] = []*domain.Page{mocks.NewPage(false, mocks.BatchItem(1))}
	ctx := context.Background()

	entry, err := svc.Run(ctx, onlyBatches())
	require.NoError(t, err)
	assert.True(t, entry.Success)

	runs, err := svc.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entry.ID, runs[0].ID)

	got, err := svc.GetRun(ctx, entry.ID)
	require.NoError(t, err)
	assert.Same(t, entry, got)

	_, err = svc.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSyncService_ListRunsNewestFirst(t *testing.T) {
	svc, _, _ := createTestSyncService(t, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		entry, err := svc.Run(ctx, onlyBatches())
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	runs, err := svc.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestSyncService_HistoryFromRunStore(t *testing.T) {
	runStore := mocks.NewMockSyncRunStore()
	svc, _, _ := createTestSyncService(t, runStore)
	ctx := context.Background()

	entry, err := svc.Run(ctx, onlyBatches())
	require.NoError(t, err)

	got, err := svc.GetRun(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)
	assert.Empty(t, svc.recent)
}

func TestSyncService_StartRunsInBackground(t *testing.T) {
	svc, source, destination := createTestSyncService(t, nil)
	source.Pages[domain.ResourceJournalBatches] = []*domain.Page{mocks.NewPage(false, mocks.BatchItem(1))}
	ctx := context.Background()

	runID, err := svc.Start(ctx, onlyBatches())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	svc.Wait()

	entry, err := svc.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Entities[domain.EntityBatches].Inserted)
	assert.Len(t, destination.Logged(), 1)
	assert.Equal(t, domain.RunStateCompleted, svc.Progress(ctx).State)
}

func TestSyncService_StartWhileRunning(t *testing.T) {
	svc, source, _ := createTestSyncService(t, nil)
	ctx := context.Background()

	started := make(chan struct{})
	proceed := make(chan struct{})
	source.FetchPageFn = func(ctx context.Context, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-proceed
		return mocks.NewPage(false), nil
	}

	_, err := svc.Start(ctx, onlyBatches())
	require.NoError(t, err)
	<-started

	_, err = svc.Start(ctx, onlyBatches())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
	_, err = svc.Run(ctx, onlyBatches())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(proceed)
	svc.Wait()

	// A new run may start once the previous one finished.
	source.FetchPageFn = nil
	_, err = svc.Run(ctx, onlyBatches())
	assert.NoError(t, err)
}

func TestSyncService_Cancel(t *testing.T) {
	svc, source, _ := createTestSyncService(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Cancel(ctx), domain.ErrSyncNotRunning)

	started := make(chan struct{}, 1)
	source.FetchPageFn = func(fetchCtx context.Context, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-fetchCtx.Done():
		case <-time.After(5 * time.Second):
		}
		return mocks.NewPage(true, mocks.BatchItem(int64(page.Offset+1))), nil
	}

	runID, err := svc.Start(ctx, onlyBatches())
	require.NoError(t, err)
	<-started

	require.NoError(t, svc.Cancel(ctx))
	svc.Wait()

	entry, err := svc.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.True(t, entry.Cancelled)
	assert.Equal(t, domain.RunStateCompletedWithErrors, entry.State)
	assert.Len(t, source.Calls(), 1)
}

func TestSyncService_StartFailsFastWhenLockHeldElsewhere(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(SyncLockName, "run-elsewhere", time.Minute)

	source := mocks.NewMockSourceClient()
	orchestrator := NewSyncOrchestrator(SyncOrchestratorConfig{
		Source:      source,
		Destination: mocks.NewMockDestinationClient(),
		Lock:        lock,
	})
	svc := NewSyncService(SyncServiceConfig{Orchestrator: orchestrator, Source: source}).(*syncService)

	_, err := svc.Start(context.Background(), onlyBatches())
	require.ErrorIs(t, err, domain.ErrSyncInProgress)
	assert.Contains(t, err.Error(), "run-elsewhere")

	svc.Wait()
	assert.Empty(t, source.Calls())
	assert.ErrorIs(t, svc.Cancel(context.Background()), domain.ErrSyncNotRunning)
}

func TestSyncService_StartRecordsRunThatFailedToStart(t *testing.T) {
	for _, withStore := range []bool{false, true} {
		name := "in memory"
		if withStore {
			name = "run store"
		}
		t.Run(name, func(t *testing.T) {
			lock := mocks.NewMockDistributedLock()
			lock.AcquireFn = func(name, runID string, ttl time.Duration) (bool, error) {
				return false, errors.New("redis: connection refused")
			}

			var runStore driven.SyncRunStore
			if withStore {
				runStore = mocks.NewMockSyncRunStore()
			}
			source := mocks.NewMockSourceClient()
			destination := mocks.NewMockDestinationClient()
			orchestrator := NewSyncOrchestrator(SyncOrchestratorConfig{
				Source:      source,
				Destination: destination,
				RunStore:    runStore,
				Lock:        lock,
			})
			svc := NewSyncService(SyncServiceConfig{
				Orchestrator: orchestrator,
				Source:       source,
				RunStore:     runStore,
			}).(*syncService)
			ctx := context.Background()

			runID, err := svc.Start(ctx, onlyBatches())
			require.NoError(t, err)
			svc.Wait()

			entry, err := svc.GetRun(ctx, runID)
			require.NoError(t, err)
			assert.Equal(t, runID, entry.ID)
			assert.False(t, entry.Success)
			assert.Equal(t, domain.RunStateCompletedWithErrors, entry.State)
			assert.NotNil(t, entry.CompletedAt)
			require.Len(t, entry.Errors, 1)
			assert.Contains(t, entry.Errors[0], "connection refused")
			assert.Equal(t, domain.EntityStateSkipped, entry.Entities[domain.EntityBatches].State)

			assert.Empty(t, source.Calls())
			assert.Empty(t, destination.Logged())
			assert.Equal(t, domain.RunStateIdle, svc.Progress(ctx).State)
		})
	}
}

func TestSyncService_RejectsInvalidOptions(t *testing.T) {
	svc, _, _ := createTestSyncService(t, nil)

	_, err := svc.Start(context.Background(), domain.RunOptions{Entities: []domain.EntityType{"nope"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Cancel(context.Background()), domain.ErrSyncNotRunning)
}

func TestSyncService_TestConnection(t *testing.T) {
	svc, source, _ := createTestSyncService(t, nil)
	source.TestConnectionFn = func(ctx context.Context) domain.ConnectionResult {
		return domain.ConnectionResult{Success: false, Error: "unauthorized", StatusCode: 401, Kind: domain.KindAuthentication}
	}

	result := svc.TestConnection(context.Background())
	assert.False(t, result.Success)
	assert.Equal(t, 401, result.StatusCode)
}
