package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medierp/ledger/internal/domain/accounting"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// CreateAccountRequest creates a chart-of-accounts entry
type CreateAccountRequest struct {
	Code string `json:"code" binding:"required,max=32"`
	Name string `json:"name" binding:"required,max=200"`
	Type string `json:"type" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

// UpdateAccountRequest renames or re-codes an account. Code and type can
// only change while the account has no posted lines.
type UpdateAccountRequest struct {
	Code *string `json:"code" binding:"omitempty,min=1,max=32"`
	Name *string `json:"name" binding:"omitempty,min=1,max=200"`
	Type *string `json:"type" binding:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

// SetAccountActiveRequest activates or deactivates an account
type SetAccountActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// MapSystemAccountRequest points a system key at an account
type MapSystemAccountRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
}

// ListAccountsRequest filters the chart
type ListAccountsRequest struct {
	ListRequest
	Type       string `form:"type" binding:"omitempty,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ActiveOnly bool   `form:"active_only"`
	Search     string `form:"search" binding:"omitempty,max=100"`
}

// AccountResponse is the wire form of an account
type AccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToAccountResponse converts an account
func ToAccountResponse(a *accounting.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Code:      a.Code,
		Name:      a.Name,
		Type:      string(a.Type),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// SystemAccountMappingResponse is the wire form of a key mapping
type SystemAccountMappingResponse struct {
	Key       string     `json:"key"`
	AccountID uuid.UUID  `json:"account_id"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToMappingResponse converts a system account mapping
func ToMappingResponse(m *accounting.SystemAccountMapping) SystemAccountMappingResponse {
	return SystemAccountMappingResponse{
		Key:       string(m.Key),
		AccountID: m.AccountID,
		UpdatedBy: m.UpdatedBy,
		UpdatedAt: m.UpdatedAt,
	}
}

// CreateYearRequest creates a DRAFT financial year covering
// [start_date, end_date)
type CreateYearRequest struct {
	Code      string `json:"code" binding:"required,max=32"`
	Name      string `json:"name" binding:"omitempty,max=100"`
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

// CloseYearRequest closes an OPEN year
type CloseYearRequest struct {
	ClosingDate     string `json:"closing_date" binding:"omitempty,datetime=2006-01-02"`
	ForceCloseFinal bool   `json:"force_close_final"`
}

// FinancialYearResponse is the wire form of a financial year. EndDate is
// exclusive.
type FinancialYearResponse struct {
	ID             uuid.UUID  `json:"id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	StartDate      string     `json:"start_date"`
	EndDate        string     `json:"end_date"`
	Status         string     `json:"status"`
	IsCurrent      bool       `json:"is_current"`
	ClosingEntryID *uuid.UUID `json:"closing_entry_id,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ClosedBy       *uuid.UUID `json:"closed_by,omitempty"`
	Version        int        `json:"version"`
}

// ToYearResponse converts a financial year
func ToYearResponse(y *accounting.FinancialYear) FinancialYearResponse {
	return FinancialYearResponse{
		ID:             y.ID,
		Code:           y.Code,
		Name:           y.Name,
		StartDate:      formatDate(y.StartDate),
		EndDate:        formatDate(y.EndDate),
		Status:         string(y.Status),
		IsCurrent:      y.IsCurrent,
		ClosingEntryID: y.ClosingEntryID,
		ClosedAt:       y.ClosedAt,
		ClosedBy:       y.ClosedBy,
		Version:        y.Version,
	}
}

// FinancialPeriodResponse is the wire form of a period. EndDate is
// exclusive.
type FinancialPeriodResponse struct {
	ID              uuid.UUID  `json:"id"`
	FinancialYearID uuid.UUID  `json:"financial_year_id"`
	Number          int        `json:"number"`
	Name            string     `json:"name"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	Status          string     `json:"status"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	ClosedBy        *uuid.UUID `json:"closed_by,omitempty"`
}

// ToPeriodResponse converts a financial period
func ToPeriodResponse(p *accounting.FinancialPeriod) FinancialPeriodResponse {
	return FinancialPeriodResponse{
		ID:              p.ID,
		FinancialYearID: p.FinancialYearID,
		Number:          p.Number,
		Name:            p.Name,
		StartDate:       formatDate(p.StartDate),
		EndDate:         formatDate(p.EndDate),
		Status:          string(p.Status),
		ClosedAt:        p.ClosedAt,
		ClosedBy:        p.ClosedBy,
	}
}

// CloseYearResponse carries the closed year and its closing entry, which
// is absent when the year had no income statement activity
type CloseYearResponse struct {
	Year         FinancialYearResponse `json:"year"`
	ClosingEntry *EntryResponse        `json:"closing_entry,omitempty"`
}

// EntryLineRequest is one line of a manual entry. Exactly one of debit
// and credit is positive.
type EntryLineRequest struct {
	AccountID   string `json:"account_id" binding:"required,uuid"`
	Debit       string `json:"debit" binding:"omitempty,money_nonneg"`
	Credit      string `json:"credit" binding:"omitempty,money_nonneg"`
	Description string `json:"description" binding:"omitempty,max=500"`
}

// ToLineInput converts the line. Empty amounts are zero.
func (r EntryLineRequest) ToLineInput() accounting.LineInput {
	return accounting.LineInput{
		AccountID:   uuid.MustParse(r.AccountID),
		Debit:       ParseMoney(r.Debit),
		Credit:      ParseMoney(r.Credit),
		Description: r.Description,
	}
}

// PostEntryRequest posts a MANUAL journal entry
type PostEntryRequest struct {
	EntryDate   string             `json:"entry_date" binding:"required,datetime=2006-01-02"`
	Description string             `json:"description" binding:"required,max=500"`
	SourceID    string             `json:"source_id" binding:"omitempty,max=100"`
	Lines       []EntryLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ReverseEntryRequest reverses a posted entry
type ReverseEntryRequest struct {
	Date     string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Reason   string `json:"reason" binding:"required,max=500"`
	SourceID string `json:"source_id" binding:"omitempty,max=100"`
}

// ListEntriesRequest filters posted entries
type ListEntriesRequest struct {
	ListRequest
	From              string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To                string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	SourceModule      string `form:"source_module" binding:"omitempty,oneof=CASHIER SETTLEMENT CREDIT_NOTE CASHIER_SHIFT DEPRECIATION YEAR_CLOSE MANUAL"`
	SourceID          string `form:"source_id" binding:"omitempty,max=100"`
	FinancialYearID   string `form:"financial_year_id" binding:"omitempty,uuid"`
	FinancialPeriodID string `form:"financial_period_id" binding:"omitempty,uuid"`
}

// EntryLineResponse is the wire form of an entry line
type EntryLineResponse struct {
	LineNo      int             `json:"line_no"`
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// EntryResponse is the wire form of a posted entry
type EntryResponse struct {
	ID                uuid.UUID           `json:"id"`
	EntryNumber       string              `json:"entry_number"`
	EntryDate         string              `json:"entry_date"`
	Description       string              `json:"description"`
	SourceModule      string              `json:"source_module"`
	SourceID          string              `json:"source_id"`
	ReversalOfID      *uuid.UUID          `json:"reversal_of_id,omitempty"`
	FinancialYearID   uuid.UUID           `json:"financial_year_id"`
	FinancialPeriodID uuid.UUID           `json:"financial_period_id"`
	TotalDebit        decimal.Decimal     `json:"total_debit"`
	TotalCredit       decimal.Decimal     `json:"total_credit"`
	CreatedBy         *uuid.UUID          `json:"created_by,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	Lines             []EntryLineResponse `json:"lines,omitempty"`
}

// ToEntryResponse converts an entry with its lines
func ToEntryResponse(e *accounting.AccountingEntry) EntryResponse {
	lines := make([]EntryLineResponse, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, EntryLineResponse{
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	return EntryResponse{
		ID:                e.ID,
		EntryNumber:       e.EntryNumber,
		EntryDate:         formatDate(e.EntryDate),
		Description:       e.Description,
		SourceModule:      string(e.SourceModule),
		SourceID:          e.SourceID,
		ReversalOfID:      e.ReversalOfID,
		FinancialYearID:   e.FinancialYearID,
		FinancialPeriodID: e.FinancialPeriodID,
		TotalDebit:        e.TotalDebit,
		TotalCredit:       e.TotalCredit,
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
		Lines:             lines,
	}
}

// TrialBalanceRequest selects a year or a cut-off date. Format xlsx
// downloads a workbook instead of JSON.
type TrialBalanceRequest struct {
	YearID string `form:"year_id" binding:"omitempty,uuid"`
	AsOf   string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
	Format string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// AccountLedgerRequest bounds an account ledger, both dates inclusive
type AccountLedgerRequest struct {
	From   string `form:"from" binding:"required,datetime=2006-01-02"`
	To     string `form:"to" binding:"required,datetime=2006-01-02"`
	Format string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

// ParseMoney parses a validated decimal string, zero when empty
func ParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LedgerLineResponse is one posted line with the running balance after it
type LedgerLineResponse struct {
	EntryID        uuid.UUID       `json:"entry_id"`
	EntryNumber    string          `json:"entry_number"`
	EntryDate      string          `json:"entry_date"`
	Description    string          `json:"description"`
	SourceModule   string          `json:"source_module"`
	SourceID       string          `json:"source_id"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountLedgerResponse is the wire form of an account ledger
type AccountLedgerResponse struct {
	Account        AccountResponse      `json:"account"`
	From           string               `json:"from"`
	To             string               `json:"to"`
	OpeningBalance decimal.Decimal      `json:"opening_balance"`
	ClosingBalance decimal.Decimal      `json:"closing_balance"`
	Lines          []LedgerLineResponse `json:"lines"`
}

// ToAccountLedgerResponse converts an account ledger
func ToAccountLedgerResponse(l *accounting.AccountLedger) AccountLedgerResponse {
	lines := make([]LedgerLineResponse, 0, len(l.Lines))
	for _, line := range l.Lines {
		lines = append(lines, LedgerLineResponse{
			EntryID:        line.EntryID,
			EntryNumber:    line.EntryNumber,
			EntryDate:      formatDate(line.EntryDate),
			Description:    line.Description,
			SourceModule:   string(line.SourceModule),
			SourceID:       line.SourceID,
			Debit:          line.Debit,
			Credit:         line.Credit,
			RunningBalance: line.RunningBalance,
		})
	}
	return AccountLedgerResponse{
		Account:        ToAccountResponse(l.Account),
		From:           formatDate(l.From),
		To:             formatDate(l.To),
		OpeningBalance: l.OpeningBalance,
		ClosingBalance: l.ClosingBalance,
		Lines:          lines,
	}
}

// StatementRequest bounds a patient statement, both dates inclusive
type StatementRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to" binding:"required,datetime=2006-01-02"`
}

// DailyReportRequest selects the UTC day of a daily report, today when
// omitted
type DailyReportRequest struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// TrialBalanceResponse is the wire form of a trial balance
type TrialBalanceResponse struct {
	AsOf        string                      `json:"as_of"`
	Accounts    []accounting.AccountBalance `json:"accounts"`
	TotalDebit  decimal.Decimal             `json:"total_debit"`
	TotalCredit decimal.Decimal             `json:"total_credit"`
	Balanced    bool                        `json:"balanced"`
}

// ToTrialBalanceResponse converts a trial balance
func ToTrialBalanceResponse(tb *accounting.TrialBalance) TrialBalanceResponse {
	accounts := tb.Accounts
	if accounts == nil {
		accounts = []accounting.AccountBalance{}
	}
	return TrialBalanceResponse{
		AsOf:        formatDate(tb.AsOf),
		Accounts:    accounts,
		TotalDebit:  tb.TotalDebit,
		TotalCredit: tb.TotalCredit,
		Balanced:    tb.IsBalanced(),
	}
}

// ArchiveLinkResponse is a time-limited download link for an archived report
type ArchiveLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
