package domain

import "fmt"

// Resource names a Fusion REST collection.
type Resource string

const (
	ResourceJournalBatches  Resource = "journalBatches"
	ResourceJournalHeaders  Resource = "journalHeaders"
	ResourceJournalLines    Resource = "journalLines"
	ResourceChartOfAccounts Resource = "chartOfAccounts"
	ResourceLedgers         Resource = "ledgers"
	ResourceJournalEntries  Resource = "journalEntries"
)

// EntityType is one link of the GL chain moved by a sync run.
type EntityType string

const (
	EntityBatches         EntityType = "batches"
	EntityHeaders         EntityType = "headers"
	EntityLines           EntityType = "lines"
	EntityChartOfAccounts EntityType = "chart_of_accounts"
	EntityLedgers         EntityType = "ledgers"
)

// SyncOrder is the FK-safe order in which entity types are applied.
// Chart of accounts and ledgers have no dependents and run first.
var SyncOrder = []EntityType{
	EntityChartOfAccounts,
	EntityLedgers,
	EntityBatches,
	EntityHeaders,
	EntityLines,
}

// Resource returns the source collection for the entity type.
func (e EntityType) Resource() Resource {
	switch e {
	case EntityBatches:
		return ResourceJournalBatches
	case EntityHeaders:
		return ResourceJournalHeaders
	case EntityLines:
		return ResourceJournalLines
	case EntityChartOfAccounts:
		return ResourceChartOfAccounts
	case EntityLedgers:
		return ResourceLedgers
	}
	return ""
}

// Parent returns the entity type whose ids scope this one, or "" for roots.
func (e EntityType) Parent() EntityType {
	switch e {
	case EntityHeaders:
		return EntityBatches
	case EntityLines:
		return EntityHeaders
	}
	return ""
}

// IsValid reports whether e is part of the GL chain.
func (e EntityType) IsValid() bool {
	return e.Resource() != ""
}

// ParseEntityType validates a user-supplied entity name.
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	if !e.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEntity, s)
	}
	return e, nil
}
