package persistence

import (
	"strings"

	"github.com/medierp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// applyPage orders and pages query. The id tie-breaker keeps pages stable.
func applyPage(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	filter = filter.Normalize()
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	order := ValidateSortOrder(filter.OrderDir)
	return query.
		Order(field + " " + order).
		Order("id " + order).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}

// findPage counts the rows matching query and loads the requested page into dest
func findPage[M any](query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string, dest *[]M) (int64, error) {
	query = query.Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	if err := applyPage(query, filter, allowed, defaultField).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CommonSortFields contains fields common to most tables
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// AccountSortFields contains allowed sort fields for accounts
var AccountSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"type":       true,
}

// EntrySortFields contains allowed sort fields for accounting entries
var EntrySortFields = map[string]bool{
	"created_at":    true,
	"entry_date":    true,
	"entry_number":  true,
	"source_module": true,
	"total_debit":   true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"issued_at":      true,
	"invoice_number": true,
	"status":         true,
	"total_amount":   true,
	"paid_amount":    true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"created_at": true,
	"paid_at":    true,
	"amount":     true,
	"method":     true,
}

// ShiftSortFields contains allowed sort fields for shift closings
var ShiftSortFields = map[string]bool{
	"created_at":  true,
	"range_start": true,
	"range_end":   true,
	"difference":  true,
}

// AssetSortFields contains allowed sort fields for fixed assets
var AssetSortFields = map[string]bool{
	"created_at":       true,
	"code":             true,
	"name":             true,
	"acquisition_date": true,
	"cost":             true,
	"status":           true,
}
