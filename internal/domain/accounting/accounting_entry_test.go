package accounting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateLines(t *testing.T) {
	cash, revenue := uuid.New(), uuid.New()

	tests := []struct {
		name  string
		lines []LineInput
		code  string
	}{
		{"empty", nil, shared.CodeUnbalancedEntry},
		{"unbalanced", []LineInput{Debit(cash, d("100"), ""), Credit(revenue, d("99.999"), "")}, shared.CodeUnbalancedEntry},
		{"both sides", []LineInput{{AccountID: cash, Debit: d("1"), Credit: d("1")}}, shared.CodeUnbalancedEntry},
		{"neither side", []LineInput{{AccountID: cash, Debit: decimal.Zero, Credit: decimal.Zero}}, shared.CodeUnbalancedEntry},
		{"negative", []LineInput{{AccountID: cash, Debit: d("-5"), Credit: decimal.Zero}, Credit(revenue, d("-5"), "")}, shared.CodeInvalidAmount},
		{"missing account", []LineInput{Debit(uuid.Nil, d("5"), ""), Credit(revenue, d("5"), "")}, shared.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidateLines(tt.lines)
			require.Error(t, err)
			assert.True(t, shared.HasCode(err, tt.code), "got %v", err)
		})
	}

	t.Run("balanced", func(t *testing.T) {
		debit, credit, err := ValidateLines([]LineInput{
			Debit(cash, d("60"), ""),
			Debit(cash, d("40"), ""),
			Credit(revenue, d("100.000"), ""),
		})
		require.NoError(t, err)
		assert.True(t, debit.Equal(d("100")))
		assert.True(t, credit.Equal(d("100")))
	})
}

// Randomised line sets that do not balance are always rejected.
func TestValidateLines_RejectsRandomUnbalancedSets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	accounts := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(6)
		lines := make([]LineInput, 0, n)
		debit, credit := decimal.Zero, decimal.Zero
		for j := 0; j < n; j++ {
			amount := decimal.New(int64(1+rng.Intn(100000)), -3)
			acct := accounts[rng.Intn(len(accounts))]
			if rng.Intn(2) == 0 {
				lines = append(lines, Debit(acct, amount, ""))
				debit = debit.Add(amount)
			} else {
				lines = append(lines, Credit(acct, amount, ""))
				credit = credit.Add(amount)
			}
		}
		_, _, err := ValidateLines(lines)
		if debit.Equal(credit) {
			assert.NoError(t, err)
			continue
		}
		assert.True(t, shared.HasCode(err, shared.CodeUnbalancedEntry), "iteration %d accepted unbalanced lines", i)
	}
}

func TestNewAccountingEntry(t *testing.T) {
	y, periods := newOpenYear(t)
	cash, revenue := uuid.New(), uuid.New()

	t.Run("builds entry with ordered lines", func(t *testing.T) {
		e, err := NewAccountingEntry(y.TenantID, time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC), " Payment ",
			SourceCashier, "pay-1", y, periods[3],
			[]LineInput{Debit(cash, d("60"), "cash"), Credit(revenue, d("60"), "revenue")})
		require.NoError(t, err)
		assert.Equal(t, date(2026, 4, 2), e.EntryDate)
		assert.Equal(t, "Payment", e.Description)
		assert.Equal(t, periods[3].ID, e.FinancialPeriodID)
		assert.Equal(t, y.ID, e.FinancialYearID)
		require.Len(t, e.Lines, 2)
		assert.Equal(t, 1, e.Lines[0].LineNo)
		assert.Equal(t, e.ID, e.Lines[1].EntryID)
		assert.True(t, e.IsBalanced())
		assert.Contains(t, e.EntryNumber, "JE-20260402-")
		require.Len(t, e.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeEntryPosted, e.GetDomainEvents()[0].EventType())
	})

	t.Run("requires source id", func(t *testing.T) {
		_, err := NewAccountingEntry(y.TenantID, date(2026, 4, 2), "", SourceCashier, "", y, periods[3],
			[]LineInput{Debit(cash, d("1"), ""), Credit(revenue, d("1"), "")})
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("requires period of the same year", func(t *testing.T) {
		other, otherPeriods := newOpenYear(t)
		_, err := NewAccountingEntry(y.TenantID, date(2026, 4, 2), "", SourceCashier, "x", y, otherPeriods[0],
			[]LineInput{Debit(cash, d("1"), ""), Credit(revenue, d("1"), "")})
		assert.Error(t, err)
		_ = other
	})
}

func TestAccountingEntry_Reversal(t *testing.T) {
	y, periods := newOpenYear(t)
	cash, revenue := uuid.New(), uuid.New()
	orig, err := NewAccountingEntry(y.TenantID, date(2026, 4, 2), "", SourceManual, "m-1", y, periods[3],
		[]LineInput{Debit(cash, d("25"), ""), Credit(revenue, d("25"), "")})
	require.NoError(t, err)

	rev, err := NewAccountingEntry(y.TenantID, date(2026, 4, 3), "reversal", orig.SourceModule, orig.ReversalSourceID(),
		y, periods[3], orig.ReversalLines())
	require.NoError(t, err)
	rev.MarkReversalOf(orig)

	assert.Equal(t, "m-1:REV", rev.SourceID)
	assert.True(t, rev.IsReversal())
	assert.True(t, rev.Lines[0].Credit.Equal(d("25")))
	assert.True(t, rev.Lines[1].Debit.Equal(d("25")))
	ev := rev.GetDomainEvents()[0].(*EntryPostedEvent)
	assert.Equal(t, &orig.ID, ev.ReversalOfID)
}

func TestAccountIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	ids := AccountIDs([]LineInput{Debit(a, d("1"), ""), Debit(a, d("1"), ""), Credit(b, d("2"), "")})
	assert.Equal(t, []uuid.UUID{a, b}, ids)
}
