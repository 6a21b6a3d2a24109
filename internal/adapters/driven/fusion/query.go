package fusion

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// DateLayout is the format of date values inside q= predicates.
const DateLayout = "2006-01-02"

// supportedFields lists the finder fields each resource accepts.
// Resources not listed accept no filters.
var supportedFields = map[domain.Resource]map[string]bool{
	domain.ResourceJournalBatches: {
		domain.FieldCreationDate: true,
		domain.FieldLedgerID:     true,
		domain.FieldStatus:       true,
	},
	domain.ResourceJournalHeaders: {
		domain.FieldJeBatchID: true,
	},
	domain.ResourceJournalLines: {
		domain.FieldJeHeaderID: true,
	},
}

// SupportsField reports whether resource can be filtered on field.
func SupportsField(resource domain.Resource, field string) bool {
	return supportedFields[resource][field]
}

// BuildQuery returns the query parameters for one page of resource.
// Predicates are joined with ";" (AND) inside a single q parameter; fields
// the resource does not support are dropped.
func BuildQuery(resource domain.Resource, filters domain.Filters, page domain.Pagination) url.Values {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(page.Limit))
	params.Set("offset", strconv.Itoa(page.Offset))

	if q := BuildFilterExpression(resource, filters); q != "" {
		params.Set("q", q)
	}
	return params
}

// BuildFilterExpression renders the q= expression, or "" when no predicate applies.
func BuildFilterExpression(resource domain.Resource, filters domain.Filters) string {
	var parts []string
	for _, p := range filters.Predicates() {
		if !SupportsField(resource, p.Field) {
			continue
		}
		parts = append(parts, p.Field+p.Op+formatValue(p.Value))
	}
	return strings.Join(parts, ";")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return quote(val)
	case time.Time:
		return quote(val.Format(DateLayout))
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	default:
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
