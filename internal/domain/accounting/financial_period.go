package accounting

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
)

// FinancialPeriodStatus represents the status of a period
type FinancialPeriodStatus string

const (
	FinancialPeriodStatusOpen   FinancialPeriodStatus = "OPEN"
	FinancialPeriodStatusClosed FinancialPeriodStatus = "CLOSED"
)

// IsValid checks if the status is valid
func (s FinancialPeriodStatus) IsValid() bool {
	return s == FinancialPeriodStatusOpen || s == FinancialPeriodStatusClosed
}

// FinancialPeriod is a sub-range [StartDate, EndDate) of a financial year
type FinancialPeriod struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	FinancialYearID uuid.UUID
	Number          int
	Name            string
	StartDate       time.Time
	EndDate         time.Time
	Status          FinancialPeriodStatus
	ClosedAt        *time.Time
	ClosedBy        *uuid.UUID
}

func newFinancialPeriod(y *FinancialYear, number int, start, end time.Time) *FinancialPeriod {
	return &FinancialPeriod{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        y.TenantID,
		FinancialYearID: y.ID,
		Number:          number,
		Name:            fmt.Sprintf("%s-P%02d", y.Code, number),
		StartDate:       start,
		EndDate:         end,
		Status:          FinancialPeriodStatusOpen,
	}
}

// Contains reports whether date falls within the period
func (p *FinancialPeriod) Contains(date time.Time) bool {
	return inHalfOpen(DateOnly(date), p.StartDate, p.EndDate)
}

// LastDay returns the final calendar day of the period
func (p *FinancialPeriod) LastDay() time.Time {
	return p.EndDate.AddDate(0, 0, -1)
}

// IsOpen reports whether the period accepts postings
func (p *FinancialPeriod) IsOpen() bool {
	return p.Status == FinancialPeriodStatusOpen
}

// Close transitions OPEN -> CLOSED
func (p *FinancialPeriod) Close(by uuid.UUID) error {
	if p.Status != FinancialPeriodStatusOpen {
		return shared.NewDomainError(shared.CodeInvalidState, "Financial period is already closed")
	}
	now := time.Now().UTC()
	p.Status = FinancialPeriodStatusClosed
	p.ClosedAt = &now
	if by != uuid.Nil {
		p.ClosedBy = &by
	}
	p.Touch()
	return nil
}

// Reopen transitions CLOSED -> OPEN; only allowed while the year is open
func (p *FinancialPeriod) Reopen(year *FinancialYear) error {
	if p.Status != FinancialPeriodStatusClosed {
		return shared.NewDomainError(shared.CodeInvalidState, "Financial period is not closed")
	}
	if year == nil || year.ID != p.FinancialYearID || year.Status != FinancialYearStatusOpen {
		return shared.NewDomainError(shared.CodeInvalidState, "Periods can only be reopened within an open financial year")
	}
	p.Status = FinancialPeriodStatusOpen
	p.ClosedAt = nil
	p.ClosedBy = nil
	p.Touch()
	return nil
}

// ResolvePeriod picks the period of year covering date and checks that
// both accept postings. Any failure is NO_OPEN_PERIOD; the message tells
// a locked period apart from an uncovered date.
func ResolvePeriod(year *FinancialYear, periods []*FinancialPeriod, date time.Time) (*FinancialPeriod, error) {
	if year == nil || !year.Contains(date) {
		return nil, noOpenPeriod(date)
	}
	for _, p := range periods {
		if p.FinancialYearID != year.ID || !p.Contains(date) {
			continue
		}
		if !year.Status.AcceptsPostings() || !p.IsOpen() {
			return nil, shared.NewDomainError(shared.CodeNoOpenPeriod,
				fmt.Sprintf("Financial period %s is closed for postings dated %s", p.Name, DateOnly(date).Format("2006-01-02")))
		}
		return p, nil
	}
	return nil, noOpenPeriod(date)
}

// FinalPeriod returns the period with the highest number
func FinalPeriod(periods []*FinancialPeriod) *FinancialPeriod {
	if len(periods) == 0 {
		return nil
	}
	sorted := append([]*FinancialPeriod(nil), periods...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	return sorted[len(sorted)-1]
}

func noOpenPeriod(date time.Time) error {
	return shared.NewDomainError(shared.CodeNoOpenPeriod,
		fmt.Sprintf("No open financial period covers %s", DateOnly(date).Format("2006-01-02")))
}
