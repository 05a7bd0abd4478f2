package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medierp/ledger/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeTenantMismatch, http.StatusNotFound},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeInvalidAmount, http.StatusBadRequest},
		{shared.CodeConflict, http.StatusConflict},
		{shared.CodeOverlappingShift, http.StatusConflict},
		{shared.CodeDuplicatePosting, http.StatusConflict},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeOverpayment, http.StatusUnprocessableEntity},
		{shared.CodePeriodClosed, http.StatusUnprocessableEntity},
		{shared.CodeNoOpenPeriod, http.StatusUnprocessableEntity},
		{shared.CodeUnbalancedEntry, http.StatusUnprocessableEntity},
		{shared.CodeAccountMappingMissing, http.StatusUnprocessableEntity},
		{shared.CodeNoCharges, http.StatusUnprocessableEntity},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeTokenRevoked, http.StatusUnauthorized},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewPageResponse(t *testing.T) {
	page := shared.NewPaginated([]int{1, 2, 3}, 7, 1, 3)

	resp := NewPageResponse(page, func(i int) string { return string(rune('a' + i - 1)) })

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b", "c"}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(7), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewPageResponse_EmptyIsArray(t *testing.T) {
	resp := NewPageResponse(shared.NewPaginated([]int(nil), 0, 1, 20), func(i int) int { return i })

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"data":[]`)
}

func TestValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "amount", Message: "Must be a decimal number"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.Len(t, errInfo["fields"], 1)
}

func TestListRequest_Filter(t *testing.T) {
	f := ListRequest{}.Filter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, "desc", f.OrderDir)

	f = ListRequest{Page: 3, PageSize: 50, OrderBy: "entry_date", OrderDir: "asc"}.Filter()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, "entry_date", f.OrderBy)
	assert.Equal(t, "asc", f.OrderDir)
	assert.Equal(t, 100, f.Offset())
}
