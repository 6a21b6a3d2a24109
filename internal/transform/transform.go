// Package transform maps Fusion GL records onto the destination schema.
package transform

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RecordMapper = (*Transformer)(nil)

// TimestampLayout is the ISO-8601 layout used for LAST_SYNC_DATE.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Clock returns the current time.
type Clock func() time.Time

// Transformer is stateless apart from its clock.
type Transformer struct {
	now Clock
}

// New creates a Transformer. A nil clock uses time.Now.
func New(now Clock) *Transformer {
	if now == nil {
		now = time.Now
	}
	return &Transformer{now: now}
}

// MapStatus maps a source status to the destination code.
// POSTED becomes P; anything else, including empty, becomes U.
func MapStatus(status string) string {
	if status == domain.SourceStatusPosted {
		return domain.DestStatusPosted
	}
	return domain.DestStatusUnposted
}

// Stamp returns the provenance block for a record mapped now.
func (t *Transformer) Stamp() domain.SyncStamp {
	return domain.SyncStamp{
		SyncStatus:   domain.SyncStatusSynced,
		SyncSource:   domain.SyncSourceFusion,
		LastSyncDate: t.now().UTC().Format(TimestampLayout),
	}
}

// Batch maps a journal batch.
func (t *Transformer) Batch(b domain.JournalBatch) domain.GLBatch {
	return domain.GLBatch{
		FusionBatchID:     b.JeBatchID,
		BatchName:         b.BatchName,
		BatchDescription:  b.BatchDescription,
		LedgerID:          copyInt64(b.LedgerID),
		Status:            MapStatus(b.Status),
		DefaultPeriodName: b.DefaultPeriodName,
		ActualFlag:        b.ActualFlag,
		ApprovalStatus:    b.ApprovalStatus,
		PostedDate:        b.PostedDate,
		CreationDate:      b.CreationDate,
		CreatedBy:         b.CreatedBy,
		SyncStamp:         t.Stamp(),
	}
}

// Header maps a journal header. FUSION_BATCH_ID is copied from JeBatchId.
func (t *Transformer) Header(h domain.JournalHeader) domain.GLHeader {
	return domain.GLHeader{
		FusionHeaderID:          h.JeHeaderID,
		FusionBatchID:           h.JeBatchID,
		LedgerID:                copyInt64(h.LedgerID),
		LedgerName:              h.LedgerName,
		JournalName:             h.JournalName,
		Description:             h.Description,
		PeriodName:              h.PeriodName,
		JournalCategory:         h.JournalCategory,
		JournalSource:           h.JournalSource,
		CurrencyCode:            h.CurrencyCode,
		Status:                  MapStatus(h.Status),
		EffectiveDate:           h.DefaultEffectiveDate,
		PostedDate:              h.PostedDate,
		RunningTotalDr:          domain.NewAmount(h.RunningTotalDr),
		RunningTotalCr:          domain.NewAmount(h.RunningTotalCr),
		RunningTotalAccountedDr: domain.NewAmount(h.RunningTotalAccountedDr),
		RunningTotalAccountedCr: domain.NewAmount(h.RunningTotalAccountedCr),
		SyncStamp:               t.Stamp(),
	}
}

// Line maps a journal line. FUSION_HEADER_ID is copied from JeHeaderId.
func (t *Transformer) Line(l domain.JournalLine) domain.GLLine {
	return domain.GLLine{
		FusionHeaderID:     l.JeHeaderID,
		LineNumber:         l.JeLineNum,
		CodeCombinationID:  copyInt64(l.CodeCombinationID),
		AccountCombination: l.AccountCombination,
		Description:        l.Description,
		CurrencyCode:       l.CurrencyCode,
		EnteredDr:          domain.NewAmount(l.EnteredDr),
		EnteredCr:          domain.NewAmount(l.EnteredCr),
		AccountedDr:        domain.NewAmount(l.AccountedDr),
		AccountedCr:        domain.NewAmount(l.AccountedCr),
		EffectiveDate:      l.EffectiveDate,
		PeriodName:         l.PeriodName,
		SyncStamp:          t.Stamp(),
	}
}

// ChartOfAccounts maps a chart of accounts structure instance.
func (t *Transformer) ChartOfAccounts(c domain.ChartOfAccounts) domain.GLChartOfAccounts {
	return domain.GLChartOfAccounts{
		FusionCOAID:   c.ChartOfAccountsID,
		StructureCode: c.StructureInstanceCode,
		Name:          c.Name,
		Description:   c.Description,
		EnabledFlag:   c.EnabledFlag,
		SyncStamp:     t.Stamp(),
	}
}

// Ledger maps a ledger.
func (t *Transformer) Ledger(l domain.Ledger) domain.GLLedger {
	return domain.GLLedger{
		FusionLedgerID:      l.LedgerID,
		Name:                l.Name,
		ShortName:           l.ShortName,
		Description:         l.Description,
		LedgerCategory:      l.LedgerCategoryCode,
		CurrencyCode:        l.CurrencyCode,
		ChartOfAccountsID:   copyInt64(l.ChartOfAccountsID),
		PeriodSetName:       l.PeriodSetName,
		AccountedPeriodType: l.AccountedPeriodType,
		SyncStamp:           t.Stamp(),
	}
}

// Map decodes raw as the source record of entity and maps it.
// Key carries the id that scopes FK children: the batch id for batches and
// the header id for headers.
func (t *Transformer) Map(entity domain.EntityType, raw json.RawMessage) (domain.MappedRecord, error) {
	switch entity {
	case domain.EntityBatches:
		var b domain.JournalBatch
		if err := decode(raw, &b); err != nil {
			return domain.MappedRecord{}, err
		}
		return domain.MappedRecord{Record: t.Batch(b), Key: b.JeBatchID}, nil
	case domain.EntityHeaders:
		var h domain.JournalHeader
		if err := decode(raw, &h); err != nil {
			return domain.MappedRecord{}, err
		}
		return domain.MappedRecord{Record: t.Header(h), Key: h.JeHeaderID}, nil
	case domain.EntityLines:
		var l domain.JournalLine
		if err := decode(raw, &l); err != nil {
			return domain.MappedRecord{}, err
		}
		return domain.MappedRecord{Record: t.Line(l)}, nil
	case domain.EntityChartOfAccounts:
		var c domain.ChartOfAccounts
		if err := decode(raw, &c); err != nil {
			return domain.MappedRecord{}, err
		}
		return domain.MappedRecord{Record: t.ChartOfAccounts(c)}, nil
	case domain.EntityLedgers:
		var l domain.Ledger
		if err := decode(raw, &l); err != nil {
			return domain.MappedRecord{}, err
		}
		return domain.MappedRecord{Record: t.Ledger(l)}, nil
	default:
		return domain.MappedRecord{}, fmt.Errorf("%w: %q", domain.ErrUnknownEntity, entity)
	}
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode record: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
