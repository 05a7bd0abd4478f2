package shared

import "errors"

// Error codes shared by the ledger, settlement and cashier domains.
const (
	CodeNotFound              = "NOT_FOUND"
	CodeTenantMismatch        = "TENANT_MISMATCH"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidAmount         = "INVALID_AMOUNT"
	CodeInvalidState          = "INVALID_STATE"
	CodeOverpayment           = "OVERPAYMENT"
	CodePeriodClosed          = "PERIOD_CLOSED"
	CodeNoOpenPeriod          = "NO_OPEN_PERIOD"
	CodeUnbalancedEntry       = "UNBALANCED_ENTRY"
	CodeOverlappingShift      = "OVERLAPPING_SHIFT"
	CodeImmutableRecord       = "IMMUTABLE_RECORD"
	CodeDuplicatePosting      = "DUPLICATE_POSTING"
	CodeAccountMappingMissing = "ACCOUNT_MAPPING_MISSING"
	CodeConflict              = "CONFLICT"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeNoCharges             = "NO_CHARGES"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that errors.Is works against the
// sentinels below even when the message was customised.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// HasCode reports whether err is a DomainError with the given code
func HasCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrTenantMismatch        = NewDomainError(CodeTenantMismatch, "Resource belongs to another tenant")
	ErrInvalidInput          = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidAmount         = NewDomainError(CodeInvalidAmount, "Invalid amount")
	ErrInvalidState          = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrOverpayment           = NewDomainError(CodeOverpayment, "Amount exceeds remaining liability")
	ErrPeriodClosed          = NewDomainError(CodePeriodClosed, "Posting date is not inside an open financial period")
	ErrNoOpenPeriod          = NewDomainError(CodeNoOpenPeriod, "No open financial period covers the date")
	ErrUnbalancedEntry       = NewDomainError(CodeUnbalancedEntry, "Total debit does not equal total credit")
	ErrOverlappingShift      = NewDomainError(CodeOverlappingShift, "Shift overlaps an existing closing for this cashier")
	ErrImmutableRecord       = NewDomainError(CodeImmutableRecord, "Posted records cannot be modified")
	ErrDuplicatePosting      = NewDomainError(CodeDuplicatePosting, "An entry already exists for this source")
	ErrAccountMappingMissing = NewDomainError(CodeAccountMappingMissing, "System account mapping is not configured")
	ErrConflict              = NewDomainError(CodeConflict, "Resource conflicts with existing data")
	ErrConcurrencyConflict   = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrNoCharges             = NewDomainError(CodeNoCharges, "Encounter has no uninvoiced charges")
)
