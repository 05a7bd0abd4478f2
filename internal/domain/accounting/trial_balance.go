package accounting

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostedLine is a persisted entry line joined with its entry header
type PostedLine struct {
	EntryID      uuid.UUID
	EntryNumber  string
	EntryDate    time.Time
	Description  string
	SourceModule SourceModule
	SourceID     string
	AccountID    uuid.UUID
	Debit        decimal.Decimal
	Credit       decimal.Decimal
}

// AccountBalance is the aggregated position of one account
type AccountBalance struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Balance returns the balance on the account's normal side
func (b AccountBalance) Balance() decimal.Decimal {
	if b.AccountType.IsDebitNormal() {
		return b.Debit.Sub(b.Credit)
	}
	return b.Credit.Sub(b.Debit)
}

// Net returns debit minus credit
func (b AccountBalance) Net() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}

// TrialBalance aggregates posted lines per account
type TrialBalance struct {
	AsOf        time.Time        `json:"as_of"`
	Accounts    []AccountBalance `json:"accounts"`
	TotalDebit  decimal.Decimal  `json:"total_debit"`
	TotalCredit decimal.Decimal  `json:"total_credit"`
}

// IsBalanced reports whether total debit equals total credit
func (tb *TrialBalance) IsBalanced() bool {
	return tb.TotalDebit.Equal(tb.TotalCredit)
}

// BuildTrialBalance sums lines per account. Accounts missing from the
// chart still appear, keyed by id only.
func BuildTrialBalance(asOf time.Time, accounts []*Account, lines []PostedLine) *TrialBalance {
	byID := make(map[uuid.UUID]*Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	sums := make(map[uuid.UUID]*AccountBalance)
	tb := &TrialBalance{AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, l := range lines {
		b, ok := sums[l.AccountID]
		if !ok {
			b = &AccountBalance{AccountID: l.AccountID, Debit: decimal.Zero, Credit: decimal.Zero}
			if a, found := byID[l.AccountID]; found {
				b.AccountCode = a.Code
				b.AccountName = a.Name
				b.AccountType = a.Type
			}
			sums[l.AccountID] = b
		}
		b.Debit = b.Debit.Add(l.Debit)
		b.Credit = b.Credit.Add(l.Credit)
		tb.TotalDebit = tb.TotalDebit.Add(l.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(l.Credit)
	}

	tb.Accounts = make([]AccountBalance, 0, len(sums))
	for _, b := range sums {
		tb.Accounts = append(tb.Accounts, *b)
	}
	sort.Slice(tb.Accounts, func(i, j int) bool {
		if tb.Accounts[i].AccountCode == tb.Accounts[j].AccountCode {
			return tb.Accounts[i].AccountID.String() < tb.Accounts[j].AccountID.String()
		}
		return tb.Accounts[i].AccountCode < tb.Accounts[j].AccountCode
	})
	return tb
}

// Find returns the balance of accountID, zero if it has no lines
func (tb *TrialBalance) Find(accountID uuid.UUID) AccountBalance {
	for _, b := range tb.Accounts {
		if b.AccountID == accountID {
			return b
		}
	}
	return AccountBalance{AccountID: accountID, Debit: decimal.Zero, Credit: decimal.Zero}
}

// ClosingLines builds the year-close lines moving every revenue and
// expense balance into retained earnings. It returns nil when there is
// nothing to close.
func ClosingLines(tb *TrialBalance, retainedEarningsID uuid.UUID) []LineInput {
	lines := make([]LineInput, 0, len(tb.Accounts)+1)
	netIncome := decimal.Zero
	for _, b := range tb.Accounts {
		if !b.AccountType.IsIncomeStatement() {
			continue
		}
		net := b.Net()
		switch {
		case net.IsPositive():
			lines = append(lines, Credit(b.AccountID, net, "Year close: "+b.AccountCode))
		case net.IsNegative():
			lines = append(lines, Debit(b.AccountID, net.Neg(), "Year close: "+b.AccountCode))
		default:
			continue
		}
		netIncome = netIncome.Sub(net)
	}
	if len(lines) == 0 {
		return nil
	}
	switch {
	case netIncome.IsPositive():
		lines = append(lines, Credit(retainedEarningsID, netIncome, "Net income to retained earnings"))
	case netIncome.IsNegative():
		lines = append(lines, Debit(retainedEarningsID, netIncome.Neg(), "Net loss to retained earnings"))
	}
	return lines
}

// LedgerLine is a line of an account ledger with its running balance
type LedgerLine struct {
	PostedLine
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// AccountLedger is the chronological activity of one account
type AccountLedger struct {
	Account        *Account        `json:"account"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Lines          []LedgerLine    `json:"lines"`
}

// BuildAccountLedger computes running balances on the account's normal side.
// lines must already be ordered by entry date.
func BuildAccountLedger(account *Account, from, to time.Time, opening decimal.Decimal, lines []PostedLine) *AccountLedger {
	ledger := &AccountLedger{
		Account:        account,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		Lines:          make([]LedgerLine, 0, len(lines)),
	}
	running := opening
	for _, l := range lines {
		if account.Type.IsDebitNormal() {
			running = running.Add(l.Debit).Sub(l.Credit)
		} else {
			running = running.Add(l.Credit).Sub(l.Debit)
		}
		ledger.Lines = append(ledger.Lines, LedgerLine{PostedLine: l, RunningBalance: running})
	}
	ledger.ClosingBalance = running
	return ledger
}

// NormalBalance sums lines on the account's normal side
func NormalBalance(account *Account, lines []PostedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if account.Type.IsDebitNormal() {
			total = total.Add(l.Debit).Sub(l.Credit)
		} else {
			total = total.Add(l.Credit).Sub(l.Debit)
		}
	}
	return total
}
