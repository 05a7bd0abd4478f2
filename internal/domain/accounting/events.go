package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeEntryPosted           = "ledger.entry_posted"
	EventTypeFinancialYearCreated  = "ledger.financial_year_created"
	EventTypeFinancialYearOpened   = "ledger.financial_year_opened"
	EventTypeFinancialYearClosed   = "ledger.financial_year_closed"
	EventTypeFinancialPeriodClosed = "ledger.financial_period_closed"
)

// EntryPostedEvent is raised when an entry is committed to the ledger
type EntryPostedEvent struct {
	shared.EventHeader
	EntryID      uuid.UUID       `json:"entry_id"`
	EntryNumber  string          `json:"entry_number"`
	EntryDate    time.Time       `json:"entry_date"`
	SourceModule SourceModule    `json:"source_module"`
	SourceID     string          `json:"source_id"`
	Amount       decimal.Decimal `json:"amount"`
	ReversalOfID *uuid.UUID      `json:"reversal_of_id,omitempty"`
}

// NewEntryPostedEvent creates an EntryPostedEvent
func NewEntryPostedEvent(e *AccountingEntry) *EntryPostedEvent {
	return &EntryPostedEvent{
		EventHeader:  shared.NewEventHeader(EventTypeEntryPosted, "AccountingEntry", e.ID, e.TenantID),
		EntryID:      e.ID,
		EntryNumber:  e.EntryNumber,
		EntryDate:    e.EntryDate,
		SourceModule: e.SourceModule,
		SourceID:     e.SourceID,
		Amount:       e.TotalDebit,
		ReversalOfID: e.ReversalOfID,
	}
}

// FinancialYearEvent is raised on financial year lifecycle transitions
type FinancialYearEvent struct {
	shared.EventHeader
	FinancialYearID uuid.UUID           `json:"financial_year_id"`
	Code            string              `json:"code"`
	Status          FinancialYearStatus `json:"status"`
}

// NewFinancialYearEvent creates a FinancialYearEvent of the given type
func NewFinancialYearEvent(eventType string, y *FinancialYear) *FinancialYearEvent {
	return &FinancialYearEvent{
		EventHeader:     shared.NewEventHeader(eventType, "FinancialYear", y.ID, y.TenantID),
		FinancialYearID: y.ID,
		Code:            y.Code,
		Status:          y.Status,
	}
}

// FinancialPeriodClosedEvent is raised when a period stops accepting postings
type FinancialPeriodClosedEvent struct {
	shared.EventHeader
	FinancialYearID   uuid.UUID `json:"financial_year_id"`
	FinancialPeriodID uuid.UUID `json:"financial_period_id"`
	Name              string    `json:"name"`
	LastDay           time.Time `json:"last_day"`
}

// NewFinancialPeriodClosedEvent creates a FinancialPeriodClosedEvent
func NewFinancialPeriodClosedEvent(p *FinancialPeriod) *FinancialPeriodClosedEvent {
	return &FinancialPeriodClosedEvent{
		EventHeader:       shared.NewEventHeader(EventTypeFinancialPeriodClosed, "FinancialPeriod", p.ID, p.TenantID),
		FinancialYearID:   p.FinancialYearID,
		FinancialPeriodID: p.ID,
		Name:              p.Name,
		LastDay:           p.LastDay(),
	}
}
