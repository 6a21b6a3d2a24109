package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSaveResult_Total(t *testing.T) {
	r := SaveResult{Inserted: 3, Updated: 2, Failed: 1}
	if r.Total() != 6 {
		t.Errorf("expected total 6, got %d", r.Total())
	}
}

func TestEntityOutcome_Add(t *testing.T) {
	var o EntityOutcome
	o.Add(SaveResult{Inserted: 2})
	o.Add(SaveResult{Inserted: 1, Updated: 4, Failed: 1})

	if o.Inserted != 3 || o.Updated != 4 || o.Failed != 1 {
		t.Errorf("unexpected outcome %+v", o)
	}
}

func TestRunOptions_Includes(t *testing.T) {
	all := RunOptions{}
	for _, e := range SyncOrder {
		if !all.Includes(e) {
			t.Errorf("empty selection should include %s", e)
		}
	}

	some := RunOptions{Entities: []EntityType{EntityBatches, EntityLines}}
	if !some.Includes(EntityLines) {
		t.Error("expected lines to be included")
	}
	if some.Includes(EntityHeaders) {
		t.Error("expected headers to be excluded")
	}
}

func TestNewSyncLogEntry(t *testing.T) {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entry := NewSyncLogEntry("run-1", started, RunOptions{PageSize: 50})

	if entry.State != RunStateRunning {
		t.Errorf("expected running, got %s", entry.State)
	}
	if len(entry.Entities) != len(SyncOrder) {
		t.Fatalf("expected %d entity outcomes, got %d", len(SyncOrder), len(entry.Entities))
	}
	for _, e := range SyncOrder {
		if entry.Entities[e].State != EntityStatePending {
			t.Errorf("expected %s pending, got %s", e, entry.Entities[e].State)
		}
	}
	if entry.Duration() != 0 {
		t.Errorf("expected zero duration while running, got %v", entry.Duration())
	}

	completed := started.Add(90 * time.Second)
	entry.CompletedAt = &completed
	if entry.Duration() != 90*time.Second {
		t.Errorf("expected 90s, got %v", entry.Duration())
	}
}

func TestSyncLogEntry_Totals(t *testing.T) {
	entry := NewSyncLogEntry("run-1", time.Now(), RunOptions{})
	entry.Entities[EntityBatches].Add(SaveResult{Inserted: 2, Updated: 1})
	entry.Entities[EntityHeaders].Add(SaveResult{Inserted: 5})
	entry.Entities[EntityLines].Add(SaveResult{Updated: 3, Failed: 2})

	totals := entry.Totals()
	if totals.Inserted != 7 || totals.Updated != 4 || totals.Failed != 2 {
		t.Errorf("unexpected totals %+v", totals)
	}
}

func TestSyncLogEntry_JSON(t *testing.T) {
	entry := NewSyncLogEntry("run-1", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), RunOptions{})
	entry.Entities[EntityBatches].Inserted = 1

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	entities, ok := raw["entities"].(map[string]any)
	if !ok {
		t.Fatalf("expected entities object, got %T", raw["entities"])
	}
	if _, ok := entities["chart_of_accounts"]; !ok {
		t.Error("expected entity outcomes keyed by entity type")
	}
	if _, ok := raw["completed_at"]; ok {
		t.Error("expected completed_at to be omitted while running")
	}
}
