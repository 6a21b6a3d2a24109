package domain

import (
	"encoding/json"
	"time"
)

// Filter field names understood by the Fusion finder syntax.
const (
	FieldCreationDate = "CreationDate"
	FieldLedgerID     = "LedgerId"
	FieldStatus       = "Status"
	FieldJeBatchID    = "JeBatchId"
	FieldJeHeaderID   = "JeHeaderId"
)

// Comparison operators used in q= predicates.
const (
	OpEq  = "="
	OpGte = ">="
	OpLte = "<="
)

// Filters narrows a fetch. Nil/empty fields are omitted from the query.
type Filters struct {
	CreationDateFrom *time.Time `json:"creation_date_from,omitempty"`
	CreationDateTo   *time.Time `json:"creation_date_to,omitempty"`
	LedgerID         *int64     `json:"ledger_id,omitempty"`
	Status           string     `json:"status,omitempty"`
	JeBatchID        *int64     `json:"je_batch_id,omitempty"`
	JeHeaderID       *int64     `json:"je_header_id,omitempty"`
}

// Predicate is one comparison inside a q= expression.
// Value is a string (quoted on the wire), an int64, or a time.Time.
type Predicate struct {
	Field string
	Op    string
	Value any
}

// Predicates returns the populated filters in a stable order.
func (f Filters) Predicates() []Predicate {
	var preds []Predicate
	if f.CreationDateFrom != nil {
		preds = append(preds, Predicate{Field: FieldCreationDate, Op: OpGte, Value: *f.CreationDateFrom})
	}
	if f.CreationDateTo != nil {
		preds = append(preds, Predicate{Field: FieldCreationDate, Op: OpLte, Value: *f.CreationDateTo})
	}
	if f.LedgerID != nil {
		preds = append(preds, Predicate{Field: FieldLedgerID, Op: OpEq, Value: *f.LedgerID})
	}
	if f.Status != "" {
		preds = append(preds, Predicate{Field: FieldStatus, Op: OpEq, Value: f.Status})
	}
	if f.JeBatchID != nil {
		preds = append(preds, Predicate{Field: FieldJeBatchID, Op: OpEq, Value: *f.JeBatchID})
	}
	if f.JeHeaderID != nil {
		preds = append(preds, Predicate{Field: FieldJeHeaderID, Op: OpEq, Value: *f.JeHeaderID})
	}
	return preds
}

// Pagination identifies one page of a collection.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Next returns the pagination for the following page.
func (p Pagination) Next() Pagination {
	return Pagination{Limit: p.Limit, Offset: p.Offset + p.Limit}
}

// Page is one decoded collection response.
type Page struct {
	Items      []json.RawMessage `json:"items"`
	TotalCount int               `json:"count"`
	HasMore    bool              `json:"hasMore"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// ConnectionResult is the outcome of a connection test. It never carries a
// Go error: failures are reported through Success and Error.
type ConnectionResult struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Kind       ErrorKind `json:"kind,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
}

// Int64Ptr is a convenience for building Filters.
func Int64Ptr(v int64) *int64 {
	return &v
}
