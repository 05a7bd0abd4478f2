package accounting

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// FinancialYearStatus represents the lifecycle status of a financial year
type FinancialYearStatus string

const (
	FinancialYearStatusDraft    FinancialYearStatus = "DRAFT"
	FinancialYearStatusOpen     FinancialYearStatus = "OPEN"
	FinancialYearStatusClosed   FinancialYearStatus = "CLOSED"
	FinancialYearStatusArchived FinancialYearStatus = "ARCHIVED"
)

// IsValid checks if the status is valid
func (s FinancialYearStatus) IsValid() bool {
	switch s {
	case FinancialYearStatusDraft, FinancialYearStatusOpen,
		FinancialYearStatusClosed, FinancialYearStatusArchived:
		return true
	}
	return false
}

// String returns the string representation of FinancialYearStatus
func (s FinancialYearStatus) String() string {
	return string(s)
}

// AcceptsPostings is true only for OPEN years
func (s FinancialYearStatus) AcceptsPostings() bool {
	return s == FinancialYearStatusOpen
}

// FinancialYear is a fiscal year spanning [StartDate, EndDate)
type FinancialYear struct {
	shared.TenantAggregateRoot
	Code           string
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	Status         FinancialYearStatus
	IsCurrent      bool
	ClosingEntryID *uuid.UUID
	ClosedAt       *time.Time
	ClosedBy       *uuid.UUID
}

// NewFinancialYear creates a DRAFT year. end is exclusive.
func NewFinancialYear(tenantID uuid.UUID, code, name string, start, end time.Time) (*FinancialYear, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Financial year code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		name = code
	}
	start, end = DateOnly(start), DateOnly(end)
	if !end.After(start) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Financial year end must be after start")
	}
	if end.After(start.AddDate(1, 6, 0)) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Financial year cannot exceed eighteen months")
	}

	y := &FinancialYear{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                strings.TrimSpace(name),
		StartDate:           start,
		EndDate:             end,
		Status:              FinancialYearStatusDraft,
	}
	y.AddDomainEvent(NewFinancialYearEvent(EventTypeFinancialYearCreated, y))
	return y, nil
}

// Contains reports whether date falls within the year
func (y *FinancialYear) Contains(date time.Time) bool {
	return inHalfOpen(DateOnly(date), y.StartDate, y.EndDate)
}

// Overlaps reports whether the two years share any day
func (y *FinancialYear) Overlaps(other *FinancialYear) bool {
	return y.StartDate.Before(other.EndDate) && y.EndDate.After(other.StartDate)
}

// LastDay returns the final calendar day of the year
func (y *FinancialYear) LastDay() time.Time {
	return y.EndDate.AddDate(0, 0, -1)
}

// Open transitions DRAFT -> OPEN
func (y *FinancialYear) Open() error {
	if y.Status != FinancialYearStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Only draft financial years can be opened")
	}
	y.Status = FinancialYearStatusOpen
	y.Touch()
	y.IncrementVersion()
	y.AddDomainEvent(NewFinancialYearEvent(EventTypeFinancialYearOpened, y))
	return nil
}

// MarkCurrent flags the year as the tenant's current year
func (y *FinancialYear) MarkCurrent() error {
	if y.Status != FinancialYearStatusOpen {
		return shared.NewDomainError(shared.CodeInvalidState, "Only open financial years can be current")
	}
	y.IsCurrent = true
	y.Touch()
	y.IncrementVersion()
	return nil
}

// ClearCurrent removes the current flag
func (y *FinancialYear) ClearCurrent() {
	if !y.IsCurrent {
		return
	}
	y.IsCurrent = false
	y.Touch()
	y.IncrementVersion()
}

// Close transitions OPEN -> CLOSED and clears the current flag.
// closingEntryID is nil when the year had no income statement activity.
func (y *FinancialYear) Close(closingEntryID *uuid.UUID, by uuid.UUID) error {
	if y.Status != FinancialYearStatusOpen {
		return shared.NewDomainError(shared.CodeInvalidState, "Only open financial years can be closed")
	}
	now := time.Now().UTC()
	y.Status = FinancialYearStatusClosed
	y.IsCurrent = false
	y.ClosingEntryID = closingEntryID
	y.ClosedAt = &now
	if by != uuid.Nil {
		y.ClosedBy = &by
	}
	y.Touch()
	y.IncrementVersion()
	y.AddDomainEvent(NewFinancialYearEvent(EventTypeFinancialYearClosed, y))
	return nil
}

// Archive transitions CLOSED -> ARCHIVED
func (y *FinancialYear) Archive() error {
	if y.Status != FinancialYearStatusClosed {
		return shared.NewDomainError(shared.CodeInvalidState, "Only closed financial years can be archived")
	}
	y.Status = FinancialYearStatusArchived
	y.Touch()
	y.IncrementVersion()
	return nil
}

// GenerateMonthlyPeriods splits the year into calendar-month periods.
// The first and last periods are truncated to the year boundaries.
func (y *FinancialYear) GenerateMonthlyPeriods() []*FinancialPeriod {
	periods := make([]*FinancialPeriod, 0, 12)
	start := y.StartDate
	for n := 1; start.Before(y.EndDate); n++ {
		end := time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		if end.After(y.EndDate) {
			end = y.EndDate
		}
		periods = append(periods, newFinancialPeriod(y, n, start, end))
		start = end
	}
	return periods
}
