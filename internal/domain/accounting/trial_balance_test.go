package accounting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, tenantID uuid.UUID, code string, typ AccountType) *Account {
	t.Helper()
	a, err := NewAccount(tenantID, code, code+" account", typ)
	require.NoError(t, err)
	return a
}

func TestBuildTrialBalance(t *testing.T) {
	tenantID := uuid.New()
	cash := newTestAccount(t, tenantID, "1000", AccountTypeAsset)
	revenue := newTestAccount(t, tenantID, "4000", AccountTypeRevenue)

	lines := []PostedLine{
		{AccountID: cash.ID, Debit: d("60"), Credit: decimal.Zero},
		{AccountID: revenue.ID, Debit: decimal.Zero, Credit: d("60")},
		{AccountID: cash.ID, Debit: d("40"), Credit: decimal.Zero},
		{AccountID: revenue.ID, Debit: decimal.Zero, Credit: d("40")},
	}
	tb := BuildTrialBalance(time.Now(), []*Account{revenue, cash}, lines)

	require.Len(t, tb.Accounts, 2)
	assert.Equal(t, "1000", tb.Accounts[0].AccountCode)
	assert.True(t, tb.IsBalanced())
	assert.True(t, tb.TotalDebit.Equal(d("100")))
	assert.True(t, tb.Find(cash.ID).Balance().Equal(d("100")))
	assert.True(t, tb.Find(revenue.ID).Balance().Equal(d("100")))
	assert.True(t, tb.Find(uuid.New()).Debit.IsZero())
}

func TestClosingLines(t *testing.T) {
	tenantID := uuid.New()
	revenue := newTestAccount(t, tenantID, "4000", AccountTypeRevenue)
	expense := newTestAccount(t, tenantID, "5000", AccountTypeExpense)
	cash := newTestAccount(t, tenantID, "1000", AccountTypeAsset)
	retained := uuid.New()

	t.Run("net income credited to retained earnings", func(t *testing.T) {
		tb := BuildTrialBalance(time.Now(), []*Account{revenue, expense, cash}, []PostedLine{
			{AccountID: cash.ID, Debit: d("100"), Credit: decimal.Zero},
			{AccountID: revenue.ID, Debit: decimal.Zero, Credit: d("100")},
			{AccountID: expense.ID, Debit: d("40"), Credit: decimal.Zero},
			{AccountID: cash.ID, Debit: decimal.Zero, Credit: d("40")},
		})
		lines := ClosingLines(tb, retained)
		require.Len(t, lines, 3)
		_, _, err := ValidateLines(lines)
		require.NoError(t, err)
		last := lines[len(lines)-1]
		assert.Equal(t, retained, last.AccountID)
		assert.True(t, last.Credit.Equal(d("60")))
	})

	t.Run("net loss debited to retained earnings", func(t *testing.T) {
		tb := BuildTrialBalance(time.Now(), []*Account{revenue, expense, cash}, []PostedLine{
			{AccountID: expense.ID, Debit: d("70"), Credit: decimal.Zero},
			{AccountID: cash.ID, Debit: decimal.Zero, Credit: d("70")},
		})
		lines := ClosingLines(tb, retained)
		require.Len(t, lines, 2)
		assert.True(t, lines[1].Debit.Equal(d("70")))
	})

	t.Run("nothing to close", func(t *testing.T) {
		tb := BuildTrialBalance(time.Now(), []*Account{cash}, []PostedLine{
			{AccountID: cash.ID, Debit: d("5"), Credit: decimal.Zero},
		})
		assert.Nil(t, ClosingLines(tb, retained))
	})
}

func TestBuildAccountLedger(t *testing.T) {
	cash := newTestAccount(t, uuid.New(), "1000", AccountTypeAsset)
	ledger := BuildAccountLedger(cash, date(2026, 1, 1), date(2026, 2, 1), d("10"), []PostedLine{
		{AccountID: cash.ID, Debit: d("5"), Credit: decimal.Zero},
		{AccountID: cash.ID, Debit: decimal.Zero, Credit: d("3")},
	})
	require.Len(t, ledger.Lines, 2)
	assert.True(t, ledger.Lines[0].RunningBalance.Equal(d("15")))
	assert.True(t, ledger.ClosingBalance.Equal(d("12")))
}

func TestAccount(t *testing.T) {
	a, err := NewAccount(uuid.New(), "1000", "Cash", AccountTypeAsset)
	require.NoError(t, err)
	assert.True(t, a.CanPost())
	assert.True(t, a.Type.IsDebitNormal())

	assert.Error(t, a.Reclassify("1001", AccountTypeExpense, true))
	require.NoError(t, a.Reclassify("1001", AccountTypeExpense, false))
	assert.Equal(t, "1001", a.Code)

	require.NoError(t, a.Rename("Main cash"))
	a.Deactivate()
	assert.False(t, a.CanPost())

	_, err = NewAccount(uuid.New(), "", "x", AccountTypeAsset)
	assert.Error(t, err)
	_, err = NewAccount(uuid.New(), "1", "x", AccountType("X"))
	assert.Error(t, err)
}

func TestSystemAccountMapping(t *testing.T) {
	tenantID := uuid.New()
	cash := newTestAccount(t, tenantID, "1000", AccountTypeAsset)
	other := newTestAccount(t, tenantID, "1010", AccountTypeAsset)

	m, err := NewSystemAccountMapping(tenantID, KeyCashMain, cash)
	require.NoError(t, err)
	assert.Equal(t, cash.ID, m.AccountID)

	require.NoError(t, m.Repoint(other, uuid.New()))
	assert.Equal(t, other.ID, m.AccountID)

	foreign := newTestAccount(t, uuid.New(), "1000", AccountTypeAsset)
	assert.Error(t, m.Repoint(foreign, uuid.Nil))

	_, err = NewSystemAccountMapping(tenantID, SystemAccountKey("NOPE"), cash)
	assert.Error(t, err)
}
