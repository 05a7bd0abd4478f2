package cashier

import (
	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EventTypeShiftClosed is raised when a cashier shift is reconciled
const EventTypeShiftClosed = "cashier.shift_closed"

// ShiftClosedEvent carries the reconciliation outcome
type ShiftClosedEvent struct {
	shared.EventHeader
	ShiftClosingID    uuid.UUID       `json:"shift_closing_id"`
	CashierID         uuid.UUID       `json:"cashier_id"`
	SystemCashTotal   decimal.Decimal `json:"system_cash_total"`
	ActualCashTotal   decimal.Decimal `json:"actual_cash_total"`
	Difference        decimal.Decimal `json:"difference"`
	AccountingEntryID *uuid.UUID      `json:"accounting_entry_id,omitempty"`
}

// NewShiftClosedEvent creates a ShiftClosedEvent
func NewShiftClosedEvent(s *ShiftClosing) *ShiftClosedEvent {
	return &ShiftClosedEvent{
		EventHeader:       shared.NewEventHeader(EventTypeShiftClosed, "CashierShiftClosing", s.ID, s.TenantID),
		ShiftClosingID:    s.ID,
		CashierID:         s.CashierID,
		SystemCashTotal:   s.SystemCashTotal,
		ActualCashTotal:   s.ActualCashTotal,
		Difference:        s.Difference,
		AccountingEntryID: s.AccountingEntryID,
	}
}
