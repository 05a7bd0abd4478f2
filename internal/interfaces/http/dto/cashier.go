package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medierp/ledger/internal/domain/cashier"
)

// CloseShiftRequest closes a cashier shift over [range_start, range_end).
// A range_end not after range_start means the shift crossed midnight.
type CloseShiftRequest struct {
	CashierID  string `json:"cashier_id" binding:"required,uuid"`
	RangeStart string `json:"range_start" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	RangeEnd   string `json:"range_end" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	ActualCash string `json:"actual_cash" binding:"required,money_nonneg"`
	Note       string `json:"note" binding:"omitempty,max=500"`
}

// PreviewShiftRequest previews the system cash total of a window
type PreviewShiftRequest struct {
	CashierID  string `form:"cashier_id" binding:"required,uuid"`
	RangeStart string `form:"range_start" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
	RangeEnd   string `form:"range_end" binding:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// ListShiftsRequest filters shift closings by range start
type ListShiftsRequest struct {
	ListRequest
	CashierID string `form:"cashier_id" binding:"omitempty,uuid"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ShiftClosingResponse is the wire form of a shift closing
type ShiftClosingResponse struct {
	ID                uuid.UUID       `json:"id"`
	CashierID         uuid.UUID       `json:"cashier_id"`
	RangeStart        time.Time       `json:"range_start"`
	RangeEnd          time.Time       `json:"range_end"`
	SystemCashTotal   decimal.Decimal `json:"system_cash_total"`
	ActualCashTotal   decimal.Decimal `json:"actual_cash_total"`
	Difference        decimal.Decimal `json:"difference"`
	Note              string          `json:"note,omitempty"`
	AccountingEntryID *uuid.UUID      `json:"accounting_entry_id,omitempty"`
	ClosedBy          *uuid.UUID      `json:"closed_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToShiftClosingResponse converts a shift closing
func ToShiftClosingResponse(s *cashier.ShiftClosing) ShiftClosingResponse {
	return ShiftClosingResponse{
		ID:                s.ID,
		CashierID:         s.CashierID,
		RangeStart:        s.RangeStart,
		RangeEnd:          s.RangeEnd,
		SystemCashTotal:   s.SystemCashTotal,
		ActualCashTotal:   s.ActualCashTotal,
		Difference:        s.Difference,
		Note:              s.Note,
		AccountingEntryID: s.AccountingEntryID,
		ClosedBy:          s.ClosedBy,
		CreatedAt:         s.CreatedAt,
	}
}
