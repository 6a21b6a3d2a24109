package sqlite

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newEntry(id string, startedAt time.Time) *domain.SyncLogEntry {
	entry := domain.NewSyncLogEntry(id, startedAt, domain.RunOptions{
		Entities: []domain.EntityType{domain.EntityBatches},
		PageSize: 50,
	})
	completed := startedAt.Add(42 * time.Second)
	entry.CompletedAt = &completed
	entry.State = domain.RunStateCompleted
	entry.Success = true
	entry.Entities[domain.EntityBatches].State = domain.EntityStateCompleted
	entry.Entities[domain.EntityBatches].Inserted = 7
	entry.Entities[domain.EntityBatches].Updated = 3
	entry.JobID = "J-1"
	return entry
}

func TestNew_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var version int
	if err := s.db.QueryRow("SELECT MAX(version) FROM migrations").Scan(&version); err != nil {
		t.Fatalf("failed to read migrations: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	first, err := New(path, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := first.Save(context.Background(), newEntry("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first.Close()

	second, err := New(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	if _, err := second.Get(context.Background(), "run-1"); err != nil {
		t.Errorf("expected run to survive reopen: %v", err)
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 15, 10, 0, 0, 123000000, time.UTC)

	entry := newEntry("run-1", start)
	entry.Errors = []string{"lines: fetch offset 0: HTTP_ERROR (500)"}
	if err := s.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, start)
	}
	if got.Duration() != 42*time.Second {
		t.Errorf("Duration = %v", got.Duration())
	}
	if got.Entities[domain.EntityBatches].Inserted != 7 {
		t.Errorf("batches inserted = %d", got.Entities[domain.EntityBatches].Inserted)
	}
	if got.Options.PageSize != 50 || len(got.Options.Entities) != 1 {
		t.Errorf("options = %+v", got.Options)
	}
	if len(got.Errors) != 1 {
		t.Errorf("errors = %v", got.Errors)
	}
	if got.JobID != "J-1" || !got.Success {
		t.Errorf("unexpected entry %+v", got)
	}

	var inserted, updated int
	if err := s.db.QueryRow("SELECT inserted, updated FROM sync_runs WHERE id = ?", "run-1").Scan(&inserted, &updated); err != nil {
		t.Fatalf("query totals: %v", err)
	}
	if inserted != 7 || updated != 3 {
		t.Errorf("totals = %d/%d", inserted, updated)
	}
}

func TestSave_SecondWriteIgnored(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := newEntry("run-1", time.Now().UTC())
	if err := s.Save(ctx, entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	changed := newEntry("run-1", time.Now().UTC())
	changed.JobID = "J-2"
	if err := s.Save(ctx, changed); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, _ := s.Get(ctx, "run-1")
	if got.JobID != "J-1" {
		t.Errorf("entry was overwritten: job id %q", got.JobID)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := s.Save(ctx, newEntry(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	runs, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}

	all, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 runs with default limit, got %d", len(all))
	}
}
