package cashier

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShiftWindow is a half-open cashier working window [Start, End)
type ShiftWindow struct {
	Start time.Time
	End   time.Time
}

// NewShiftWindow builds a window, advancing End by one day when it does
// not come after Start so that shifts crossing midnight are supported.
func NewShiftWindow(start, end time.Time) (ShiftWindow, error) {
	if start.IsZero() || end.IsZero() {
		return ShiftWindow{}, shared.NewDomainError(shared.CodeInvalidInput, "Shift range start and end are required")
	}
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	if !end.After(start) {
		return ShiftWindow{}, shared.NewDomainError(shared.CodeInvalidInput, "Shift range cannot exceed one day backwards")
	}
	return ShiftWindow{Start: start, End: end}, nil
}

// Overlaps applies the half-open interval test
func (w ShiftWindow) Overlaps(other ShiftWindow) bool {
	return other.Start.Before(w.End) && other.End.After(w.Start)
}

// Duration returns the length of the window
func (w ShiftWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ShiftClosing is the immutable reconciliation of one cashier window
type ShiftClosing struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	CashierID         uuid.UUID
	RangeStart        time.Time
	RangeEnd          time.Time
	SystemCashTotal   decimal.Decimal
	ActualCashTotal   decimal.Decimal
	Difference        decimal.Decimal
	Note              string
	AccountingEntryID *uuid.UUID
	ClosedBy          *uuid.UUID
}

// NewShiftClosing reconciles counted cash against the system total
func NewShiftClosing(tenantID, cashierID uuid.UUID, window ShiftWindow, systemCash, actualCash decimal.Decimal, note string) (*ShiftClosing, error) {
	if cashierID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Cashier is required")
	}
	if actualCash.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Counted cash cannot be negative")
	}
	if systemCash.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "System cash total cannot be negative")
	}
	return &ShiftClosing{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		CashierID:       cashierID,
		RangeStart:      window.Start,
		RangeEnd:        window.End,
		SystemCashTotal: systemCash,
		ActualCashTotal: actualCash,
		Difference:      actualCash.Sub(systemCash),
		Note:            strings.TrimSpace(note),
	}, nil
}

// Window returns the closing's range
func (s *ShiftClosing) Window() ShiftWindow {
	return ShiftWindow{Start: s.RangeStart, End: s.RangeEnd}
}

// HasVariance reports a non-zero difference between counted and system cash
func (s *ShiftClosing) HasVariance() bool {
	return !s.Difference.IsZero()
}

// IsSurplus reports more counted cash than recorded
func (s *ShiftClosing) IsSurplus() bool {
	return s.Difference.IsPositive()
}

// SourceID is the correlation id used for the variance entry
func (s *ShiftClosing) SourceID() string {
	return s.ID.String()
}

// VarianceDescription describes the variance entry
func (s *ShiftClosing) VarianceDescription() string {
	kind := "shortage"
	if s.IsSurplus() {
		kind = "surplus"
	}
	return fmt.Sprintf("Cash %s for shift %s - %s", kind,
		s.RangeStart.Format("2006-01-02 15:04"), s.RangeEnd.Format("2006-01-02 15:04"))
}

// LinkEntry records the variance entry
func (s *ShiftClosing) LinkEntry(entryID uuid.UUID) error {
	if s.AccountingEntryID != nil {
		return shared.ErrImmutableRecord
	}
	if !s.HasVariance() {
		return shared.NewDomainError(shared.CodeInvalidState, "Shift without variance has no entry")
	}
	s.AccountingEntryID = &entryID
	return nil
}

// FindOverlap returns the first closing overlapping window, or nil
func FindOverlap(existing []*ShiftClosing, window ShiftWindow) *ShiftClosing {
	for _, e := range existing {
		if e.Window().Overlaps(window) {
			return e
		}
	}
	return nil
}
