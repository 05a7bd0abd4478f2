package dto

import (
	"net/http"

	"github.com/medierp/ledger/internal/domain/shared"
)

// Transport error codes. Domain failures keep their domain code in the
// envelope so clients can branch on a single vocabulary.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeTimeout         = "REQUEST_TIMEOUT"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeTokenRevoked:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeRouteNotFound:   http.StatusNotFound,

	// Records of another tenant are reported as missing
	shared.CodeNotFound:       http.StatusNotFound,
	shared.CodeTenantMismatch: http.StatusNotFound,

	shared.CodeInvalidInput:  http.StatusBadRequest,
	shared.CodeInvalidAmount: http.StatusBadRequest,

	shared.CodeConflict:            http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeOverlappingShift:    http.StatusConflict,
	shared.CodeDuplicatePosting:    http.StatusConflict,

	shared.CodeInvalidState:          http.StatusUnprocessableEntity,
	shared.CodeOverpayment:           http.StatusUnprocessableEntity,
	shared.CodePeriodClosed:          http.StatusUnprocessableEntity,
	shared.CodeNoOpenPeriod:          http.StatusUnprocessableEntity,
	shared.CodeUnbalancedEntry:       http.StatusUnprocessableEntity,
	shared.CodeImmutableRecord:       http.StatusUnprocessableEntity,
	shared.CodeAccountMappingMissing: http.StatusUnprocessableEntity,
	shared.CodeNoCharges:             http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
