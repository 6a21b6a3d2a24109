package domain

import "github.com/shopspring/decimal"

// Provenance stamp values written on every destination record.
const (
	SyncStatusSynced = "SYNCED"
	SyncSourceFusion = "ORACLE_FUSION"
)

// Destination status codes. The mapping from source status is two-valued.
const (
	DestStatusPosted   = "P"
	DestStatusUnposted = "U"
)

// SourceStatusPosted is the Fusion status of a posted batch or journal.
const SourceStatusPosted = "POSTED"

// Source records, as returned by the Fusion REST API.

// JournalBatch is a journalBatches item.
type JournalBatch struct {
	JeBatchID           int64  `json:"JeBatchId"`
	BatchName           string `json:"BatchName"`
	BatchDescription    string `json:"BatchDescription"`
	LedgerID            *int64 `json:"LedgerId,omitempty"`
	Status              string `json:"Status"`
	DefaultPeriodName   string `json:"DefaultPeriodName"`
	AccountedPeriodType string `json:"AccountedPeriodType"`
	ActualFlag          string `json:"ActualFlag"`
	ApprovalStatus      string `json:"ApprovalStatus"`
	PostedDate          string `json:"PostedDate"`
	CreationDate        string `json:"CreationDate"`
	CreatedBy           string `json:"CreatedBy"`
	LastUpdateDate      string `json:"LastUpdateDate"`
}

// JournalHeader is a journalHeaders item. JeBatchID references its batch.
type JournalHeader struct {
	JeHeaderID              int64               `json:"JeHeaderId"`
	JeBatchID               int64               `json:"JeBatchId"`
	JournalName             string              `json:"JournalName"`
	Description             string              `json:"Description"`
	LedgerID                *int64              `json:"LedgerId,omitempty"`
	LedgerName              string              `json:"LedgerName"`
	PeriodName              string              `json:"PeriodName"`
	JournalCategory         string              `json:"JeCategory"`
	JournalSource           string              `json:"JeSource"`
	CurrencyCode            string              `json:"CurrencyCode"`
	Status                  string              `json:"Status"`
	DefaultEffectiveDate    string              `json:"DefaultEffectiveDate"`
	PostedDate              string              `json:"PostedDate"`
	RunningTotalDr          decimal.NullDecimal `json:"RunningTotalDr"`
	RunningTotalCr          decimal.NullDecimal `json:"RunningTotalCr"`
	RunningTotalAccountedDr decimal.NullDecimal `json:"RunningTotalAccountedDr"`
	RunningTotalAccountedCr decimal.NullDecimal `json:"RunningTotalAccountedCr"`
	CreationDate            string              `json:"CreationDate"`
}

// JournalLine is a journalLines item. JeHeaderID references its header.
type JournalLine struct {
	JeHeaderID         int64               `json:"JeHeaderId"`
	JeLineNum          int64               `json:"JeLineNum"`
	CodeCombinationID  *int64              `json:"CodeCombinationId,omitempty"`
	AccountCombination string              `json:"AccountCombination"`
	Description        string              `json:"Description"`
	CurrencyCode       string              `json:"CurrencyCode"`
	EnteredDr          decimal.NullDecimal `json:"EnteredDr"`
	EnteredCr          decimal.NullDecimal `json:"EnteredCr"`
	AccountedDr        decimal.NullDecimal `json:"AccountedDr"`
	AccountedCr        decimal.NullDecimal `json:"AccountedCr"`
	EffectiveDate      string              `json:"EffectiveDate"`
	PeriodName         string              `json:"PeriodName"`
}

// ChartOfAccounts is a chartOfAccounts item.
type ChartOfAccounts struct {
	ChartOfAccountsID     int64  `json:"ChartOfAccountsId"`
	StructureInstanceCode string `json:"StructureInstanceCode"`
	Name                  string `json:"Name"`
	Description           string `json:"Description"`
	EnabledFlag           string `json:"EnabledFlag"`
}

// Ledger is a ledgers item.
type Ledger struct {
	LedgerID            int64  `json:"LedgerId"`
	Name                string `json:"Name"`
	ShortName           string `json:"ShortName"`
	Description         string `json:"Description"`
	LedgerCategoryCode  string `json:"LedgerCategoryCode"`
	CurrencyCode        string `json:"CurrencyCode"`
	ChartOfAccountsID   *int64 `json:"ChartOfAccountsId,omitempty"`
	PeriodSetName       string `json:"PeriodSetName"`
	AccountedPeriodType string `json:"AccountedPeriodType"`
}

// Destination records, as accepted by the APEX sync endpoints.

// SyncStamp is the provenance block embedded in every destination record.
type SyncStamp struct {
	SyncStatus   string `json:"SYNC_STATUS"`
	SyncSource   string `json:"SYNC_SOURCE"`
	LastSyncDate string `json:"LAST_SYNC_DATE"`
}

// GLBatch is the destination form of a JournalBatch. Natural key: FUSION_BATCH_ID.
type GLBatch struct {
	FusionBatchID     int64  `json:"FUSION_BATCH_ID"`
	BatchName         string `json:"BATCH_NAME"`
	BatchDescription  string `json:"BATCH_DESCRIPTION"`
	LedgerID          *int64 `json:"LEDGER_ID"`
	Status            string `json:"STATUS"`
	DefaultPeriodName string `json:"DEFAULT_PERIOD_NAME"`
	ActualFlag        string `json:"ACTUAL_FLAG"`
	ApprovalStatus    string `json:"APPROVAL_STATUS"`
	PostedDate        string `json:"POSTED_DATE"`
	CreationDate      string `json:"CREATION_DATE"`
	CreatedBy         string `json:"CREATED_BY"`
	SyncStamp
}

// GLHeader is the destination form of a JournalHeader. Natural key: FUSION_HEADER_ID.
type GLHeader struct {
	FusionHeaderID          int64  `json:"FUSION_HEADER_ID"`
	FusionBatchID           int64  `json:"FUSION_BATCH_ID"`
	LedgerID                *int64 `json:"LEDGER_ID"`
	LedgerName              string `json:"LEDGER_NAME"`
	JournalName             string `json:"JOURNAL_NAME"`
	Description             string `json:"DESCRIPTION"`
	PeriodName              string `json:"PERIOD_NAME"`
	JournalCategory         string `json:"JOURNAL_CATEGORY"`
	JournalSource           string `json:"JOURNAL_SOURCE"`
	CurrencyCode            string `json:"CURRENCY_CODE"`
	Status                  string `json:"STATUS"`
	EffectiveDate           string `json:"EFFECTIVE_DATE"`
	PostedDate              string `json:"POSTED_DATE"`
	RunningTotalDr          Amount `json:"RUNNING_TOTAL_DR"`
	RunningTotalCr          Amount `json:"RUNNING_TOTAL_CR"`
	RunningTotalAccountedDr Amount `json:"RUNNING_TOTAL_ACCOUNTED_DR"`
	RunningTotalAccountedCr Amount `json:"RUNNING_TOTAL_ACCOUNTED_CR"`
	SyncStamp
}

// GLLine is the destination form of a JournalLine. Natural key: (FUSION_HEADER_ID, LINE_NUMBER).
type GLLine struct {
	FusionHeaderID     int64  `json:"FUSION_HEADER_ID"`
	LineNumber         int64  `json:"LINE_NUMBER"`
	CodeCombinationID  *int64 `json:"CODE_COMBINATION_ID"`
	AccountCombination string `json:"ACCOUNT_COMBINATION"`
	Description        string `json:"DESCRIPTION"`
	CurrencyCode       string `json:"CURRENCY_CODE"`
	EnteredDr          Amount `json:"ENTERED_DR"`
	EnteredCr          Amount `json:"ENTERED_CR"`
	AccountedDr        Amount `json:"ACCOUNTED_DR"`
	AccountedCr        Amount `json:"ACCOUNTED_CR"`
	EffectiveDate      string `json:"EFFECTIVE_DATE"`
	PeriodName         string `json:"PERIOD_NAME"`
	SyncStamp
}

// GLChartOfAccounts is the destination form of a ChartOfAccounts. Natural key: FUSION_COA_ID.
type GLChartOfAccounts struct {
	FusionCOAID   int64  `json:"FUSION_COA_ID"`
	StructureCode string `json:"STRUCTURE_CODE"`
	Name          string `json:"NAME"`
	Description   string `json:"DESCRIPTION"`
	EnabledFlag   string `json:"ENABLED_FLAG"`
	SyncStamp
}

// GLLedger is the destination form of a Ledger. Natural key: FUSION_LEDGER_ID.
type GLLedger struct {
	FusionLedgerID      int64  `json:"FUSION_LEDGER_ID"`
	Name                string `json:"NAME"`
	ShortName           string `json:"SHORT_NAME"`
	Description         string `json:"DESCRIPTION"`
	LedgerCategory      string `json:"LEDGER_CATEGORY"`
	CurrencyCode        string `json:"CURRENCY_CODE"`
	ChartOfAccountsID   *int64 `json:"CHART_OF_ACCOUNTS_ID"`
	PeriodSetName       string `json:"PERIOD_SET_NAME"`
	AccountedPeriodType string `json:"ACCOUNTED_PERIOD_TYPE"`
	SyncStamp
}

// Amount is a nullable destination amount. It encodes as a bare JSON number
// so APEX NUMBER columns receive numeric values, and as null when unset.
type Amount struct {
	decimal.NullDecimal
}

// NewAmount wraps a source amount for a destination record.
func NewAmount(d decimal.NullDecimal) Amount {
	return Amount{NullDecimal: d}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Decimal.String()), nil
}

// MappedRecord is a transformed record plus the source id that scopes its
// FK children (batch id for batches, header id for headers, 0 otherwise).
type MappedRecord struct {
	Record any
	Key    int64
}
