package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SourceModule identifies the subsystem that produced an entry
type SourceModule string

const (
	SourceCashier      SourceModule = "CASHIER"
	SourceSettlement   SourceModule = "SETTLEMENT"
	SourceCreditNote   SourceModule = "CREDIT_NOTE"
	SourceCashierShift SourceModule = "CASHIER_SHIFT"
	SourceDepreciation SourceModule = "DEPRECIATION"
	SourceYearClose    SourceModule = "YEAR_CLOSE"
	SourceManual       SourceModule = "MANUAL"
)

// IsValid checks if the source module is known
func (s SourceModule) IsValid() bool {
	switch s {
	case SourceCashier, SourceSettlement, SourceCreditNote, SourceCashierShift,
		SourceDepreciation, SourceYearClose, SourceManual:
		return true
	}
	return false
}

// String returns the string representation of SourceModule
func (s SourceModule) String() string {
	return string(s)
}

// LineInput is a requested line of a new entry
type LineInput struct {
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Debit builds a debit line
func Debit(accountID uuid.UUID, amount decimal.Decimal, description string) LineInput {
	return LineInput{AccountID: accountID, Debit: amount, Credit: decimal.Zero, Description: description}
}

// Credit builds a credit line
func Credit(accountID uuid.UUID, amount decimal.Decimal, description string) LineInput {
	return LineInput{AccountID: accountID, Debit: decimal.Zero, Credit: amount, Description: description}
}

// AccountingEntryLine is one immutable side of an entry
type AccountingEntryLine struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	LineNo      int
	AccountID   uuid.UUID
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// Amount returns the positive side of the line
func (l AccountingEntryLine) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// AccountingEntry is a balanced journal entry. It is created together with
// its lines and never modified afterwards.
type AccountingEntry struct {
	shared.TenantAggregateRoot
	EntryNumber       string
	EntryDate         time.Time
	Description       string
	SourceModule      SourceModule
	SourceID          string
	ReversalOfID      *uuid.UUID
	FinancialYearID   uuid.UUID
	FinancialPeriodID uuid.UUID
	TotalDebit        decimal.Decimal
	TotalCredit       decimal.Decimal
	Lines             []AccountingEntryLine
}

// ValidateLines checks the line invariants of an entry: at least one line,
// every line with exactly one positive side and no negative side, and
// total debit equal to total credit with no tolerance.
func ValidateLines(lines []LineInput) (decimal.Decimal, decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeUnbalancedEntry, "Accounting entry must have at least one line")
	}
	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for i, l := range lines {
		if l.AccountID == uuid.Nil {
			return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Line %d has no account", i+1))
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeInvalidAmount,
				fmt.Sprintf("Line %d has a negative amount", i+1))
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeUnbalancedEntry,
				fmt.Sprintf("Line %d must have exactly one of debit or credit", i+1))
		}
		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return decimal.Zero, decimal.Zero, shared.NewDomainError(shared.CodeUnbalancedEntry,
			fmt.Sprintf("Total debit %s does not equal total credit %s", totalDebit.String(), totalCredit.String()))
	}
	return totalDebit, totalCredit, nil
}

// NewAccountingEntry validates the lines and builds an entry attributed to
// the given year and period. Period resolution is the caller's job.
func NewAccountingEntry(
	tenantID uuid.UUID,
	entryDate time.Time,
	description string,
	source SourceModule,
	sourceID string,
	year *FinancialYear,
	period *FinancialPeriod,
	lines []LineInput,
) (*AccountingEntry, error) {
	if !source.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid source module")
	}
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Source id cannot be empty")
	}
	if year == nil || period == nil || period.FinancialYearID != year.ID {
		return nil, shared.NewDomainError(shared.CodeNoOpenPeriod, "Entry must be attributed to a financial period of its year")
	}
	totalDebit, totalCredit, err := ValidateLines(lines)
	if err != nil {
		return nil, err
	}

	e := &AccountingEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryDate:           DateOnly(entryDate),
		Description:         strings.TrimSpace(description),
		SourceModule:        source,
		SourceID:            sourceID,
		FinancialYearID:     year.ID,
		FinancialPeriodID:   period.ID,
		TotalDebit:          totalDebit,
		TotalCredit:         totalCredit,
		Lines:               make([]AccountingEntryLine, 0, len(lines)),
	}
	e.EntryNumber = fmt.Sprintf("JE-%s-%s", e.EntryDate.Format("20060102"), strings.ToUpper(e.ID.String()[:8]))
	for i, l := range lines {
		e.Lines = append(e.Lines, AccountingEntryLine{
			ID:          uuid.New(),
			EntryID:     e.ID,
			LineNo:      i + 1,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: strings.TrimSpace(l.Description),
		})
	}
	e.AddDomainEvent(NewEntryPostedEvent(e))
	return e, nil
}

// IsBalanced re-checks the persisted lines
func (e *AccountingEntry) IsBalanced() bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return len(e.Lines) > 0 && debit.Equal(credit)
}

// IsReversal reports whether the entry reverses another entry
func (e *AccountingEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}

// ReversalLines returns the lines of e with debit and credit swapped
func (e *AccountingEntry) ReversalLines() []LineInput {
	lines := make([]LineInput, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: l.Description,
		})
	}
	return lines
}

// ReversalSourceID is the default source id of the reversal of e
func (e *AccountingEntry) ReversalSourceID() string {
	return e.SourceID + ":REV"
}

// MarkReversalOf links e to the entry it reverses
func (e *AccountingEntry) MarkReversalOf(original *AccountingEntry) {
	id := original.ID
	e.ReversalOfID = &id
	e.ClearDomainEvents()
	e.AddDomainEvent(NewEntryPostedEvent(e))
}

// AccountIDs returns the distinct accounts referenced by the lines
func AccountIDs(lines []LineInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}
