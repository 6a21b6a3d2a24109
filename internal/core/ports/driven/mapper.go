package driven

import (
	"encoding/json"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// RecordMapper turns a raw source item into its destination record.
// Implementations are pure: no I/O, and the only non-deterministic input is the clock.
type RecordMapper interface {
	// Map decodes and maps one item of the given entity type.
	Map(entity domain.EntityType, raw json.RawMessage) (domain.MappedRecord, error)
}
