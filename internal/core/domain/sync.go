package domain

import (
	"time"
)

// RunState represents the current state of a sync run
type RunState string

const (
	RunStateIdle                RunState = "idle"
	RunStateRunning             RunState = "running"
	RunStateCompleted           RunState = "completed"
	RunStateCompletedWithErrors RunState = "completed_with_errors"
)

// EntityState is the outcome of one entity type inside a run.
type EntityState string

const (
	EntityStatePending             EntityState = "pending"
	EntityStateRunning             EntityState = "running"
	EntityStateCompleted           EntityState = "completed"
	EntityStateCompletedWithErrors EntityState = "completed_with_errors"
	EntityStateSkipped             EntityState = "skipped"
)

// SaveResult is the outcome of one DestinationClient.Save call, exactly as
// reported by the destination.
type SaveResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Total returns inserted+updated+failed.
func (r SaveResult) Total() int {
	return r.Inserted + r.Updated + r.Failed
}

// EntityOutcome holds running totals for one entity type
type EntityOutcome struct {
	State    EntityState `json:"state"`
	Fetched  int         `json:"fetched"`
	Pages    int         `json:"pages"`
	Inserted int         `json:"inserted"`
	Updated  int         `json:"updated"`
	Failed   int         `json:"failed"`
	Errors   []string    `json:"errors,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Add accumulates a page's save result.
func (o *EntityOutcome) Add(r SaveResult) {
	o.Inserted += r.Inserted
	o.Updated += r.Updated
	o.Failed += r.Failed
}

// RunOptions scopes one orchestrator run.
type RunOptions struct {
	// Entities restricts the run to a subset of SyncOrder. Empty means all.
	Entities []EntityType `json:"entities,omitempty"`

	// BatchFilters is applied to the journalBatches fetch.
	BatchFilters Filters `json:"batch_filters"`

	// PageSize is the requested limit per page.
	PageSize int `json:"page_size,omitempty"`

	// TriggeredBy records what started the run: "cli", "scheduler" or
	// "api:<subject>".
	TriggeredBy string `json:"triggered_by,omitempty"`
}

// Includes reports whether the entity type is selected.
func (o RunOptions) Includes(e EntityType) bool {
	if len(o.Entities) == 0 {
		return true
	}
	for _, sel := range o.Entities {
		if sel == e {
			return true
		}
	}
	return false
}

// SyncLogEntry is the audit record of one full run. It is finalized once at
// the end of the run and not modified after being written.
type SyncLogEntry struct {
	ID          string                        `json:"id"`
	StartedAt   time.Time                     `json:"started_at"`
	CompletedAt *time.Time                    `json:"completed_at,omitempty"`
	State       RunState                      `json:"state"`
	Success     bool                          `json:"success"`
	Cancelled   bool                          `json:"cancelled"`
	Entities    map[EntityType]*EntityOutcome `json:"entities"`
	Errors      []string                      `json:"errors,omitempty"`
	JobID       string                        `json:"job_id,omitempty"`
	Options     RunOptions                    `json:"options"`
}

// NewSyncLogEntry creates a running entry with a pending outcome per entity type.
func NewSyncLogEntry(id string, startedAt time.Time, opts RunOptions) *SyncLogEntry {
	entities := make(map[EntityType]*EntityOutcome, len(SyncOrder))
	for _, e := range SyncOrder {
		entities[e] = &EntityOutcome{State: EntityStatePending}
	}
	return &SyncLogEntry{
		ID:        id,
		StartedAt: startedAt,
		State:     RunStateRunning,
		Entities:  entities,
		Options:   opts,
	}
}

// Totals sums counts across entity types.
func (e *SyncLogEntry) Totals() SaveResult {
	var total SaveResult
	for _, o := range e.Entities {
		total.Inserted += o.Inserted
		total.Updated += o.Updated
		total.Failed += o.Failed
	}
	return total
}

// Duration returns the elapsed run time, or zero while running.
func (e *SyncLogEntry) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// RunProgress is a point-in-time view of the orchestrator state machine.
type RunProgress struct {
	State  RunState   `json:"state"`
	RunID  string     `json:"run_id,omitempty"`
	Entity EntityType `json:"entity,omitempty"`
	Offset int        `json:"offset"`
}

// LockHolder identifies the run that holds the sync lock.
type LockHolder struct {
	RunID    string `json:"run_id"`
	Instance string `json:"instance,omitempty"`
}

func (h LockHolder) String() string {
	if h.Instance == "" {
		return "run " + h.RunID
	}
	return "run " + h.RunID + " on " + h.Instance
}
