package cashier_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcashier "github.com/medierp/ledger/internal/application/cashier"
	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/tests/testutil"
)

var ctx = context.Background()

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func today(hour int) time.Time {
	return accounting.DateOnly(time.Now().UTC()).Add(time.Duration(hour) * time.Hour)
}

func payAt(t *testing.T, l *testutil.Ledger, cashierID uuid.UUID, amount string, method settlement.PaymentMethod, at time.Time) {
	t.Helper()
	inv := l.InvoiceEncounter(t, uuid.New(), amount)
	_, err := l.Settlement.RecordPayment(ctx, appsettlement.RecordPaymentInput{
		TenantID:  l.TenantID,
		InvoiceID: inv.ID,
		Amount:    dec(amount),
		Method:    method,
		CashierID: cashierID,
		PaidAt:    at,
	})
	require.NoError(t, err)
}

func closeShift(l *testutil.Ledger, cashierID uuid.UUID, start, end time.Time, actual string) (*cashier.ShiftClosing, error) {
	return l.Shifts.CloseCashierShift(ctx, appcashier.CloseShiftInput{
		TenantID:   l.TenantID,
		CashierID:  cashierID,
		RangeStart: start,
		RangeEnd:   end,
		ActualCash: dec(actual),
		ClosedBy:   l.UserID,
	})
}

func TestCloseCashierShift_Surplus(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	cashierID := uuid.New()

	payAt(t, l, cashierID, "300", settlement.PaymentMethodCash, today(10))
	payAt(t, l, cashierID, "200", settlement.PaymentMethodCash, today(14))
	// not counted: other method, outside the window, other cashier
	payAt(t, l, cashierID, "70", settlement.PaymentMethodCard, today(11))
	payAt(t, l, cashierID, "25", settlement.PaymentMethodCash, today(17))
	payAt(t, l, uuid.New(), "40", settlement.PaymentMethodCash, today(12))

	preview, err := l.Shifts.PreviewShift(ctx, l.TenantID, cashierID, today(9), today(17))
	require.NoError(t, err)
	assert.True(t, preview.SystemCashTotal.Equal(dec("500")))
	assert.Empty(t, preview.Overlaps)

	cashBefore := l.AccountBalance(t, accounting.KeyCashMain)
	closing, err := closeShift(l, cashierID, today(9), today(17), "505")
	require.NoError(t, err)
	assert.True(t, closing.SystemCashTotal.Equal(dec("500")))
	assert.True(t, closing.ActualCashTotal.Equal(dec("505")))
	assert.True(t, closing.Difference.Equal(dec("5")))
	require.NotNil(t, closing.AccountingEntryID)

	entry, err := l.Entries.GetEntry(ctx, l.TenantID, *closing.AccountingEntryID)
	require.NoError(t, err)
	assert.Equal(t, accounting.SourceCashierShift, entry.SourceModule)
	assert.Equal(t, closing.ID.String(), entry.SourceID)
	assert.True(t, l.AccountBalance(t, accounting.KeyCashMain).Sub(cashBefore).Equal(dec("5")))
	assert.True(t, l.AccountBalance(t, accounting.KeyCashShortOver).Equal(dec("-5")))
	l.RequireBalanced(t)

	_, err = closeShift(l, cashierID, today(16), today(20), "0")
	testutil.RequireCode(t, err, shared.CodeOverlappingShift)

	preview, err = l.Shifts.PreviewShift(ctx, l.TenantID, cashierID, today(16), today(20))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{closing.ID}, preview.Overlaps)
}

func TestCloseCashierShift_Shortage(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	cashierID := uuid.New()
	payAt(t, l, cashierID, "120", settlement.PaymentMethodCash, today(9))

	closing, err := closeShift(l, cashierID, today(8), today(12), "100")
	require.NoError(t, err)
	assert.True(t, closing.Difference.Equal(dec("-20")))
	require.NotNil(t, closing.AccountingEntryID)

	assert.True(t, l.AccountBalance(t, accounting.KeyCashShortOver).Equal(dec("20")))
	assert.True(t, l.AccountBalance(t, accounting.KeyCashMain).Equal(dec("100")))
	l.RequireBalanced(t)
}

// A shift ending at midnight after the last day of the year posts into
// December, not into the following year
func TestCloseCashierShift_EndingAtYearEndMidnight(t *testing.T) {
	l := testutil.NewLedger(t)
	l.SeedChart(t)
	l.Year = l.OpenYear(t, 2020)
	cashierID := uuid.New()

	start := time.Date(2020, 12, 31, 16, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	closing, err := closeShift(l, cashierID, start, end, "5")
	require.NoError(t, err)
	assert.True(t, closing.Difference.Equal(dec("5")))
	require.NotNil(t, closing.AccountingEntryID)

	entry, err := l.Entries.GetEntry(ctx, l.TenantID, *closing.AccountingEntryID)
	require.NoError(t, err)
	assert.Equal(t, l.Year.ID, entry.FinancialYearID)
	assert.Equal(t, 2020, entry.EntryDate.Year())
	assert.Equal(t, time.December, entry.EntryDate.Month())
	assert.Equal(t, 31, entry.EntryDate.Day())

	periods, err := l.Calendar.ListPeriods(ctx, l.TenantID, l.Year.ID)
	require.NoError(t, err)
	assert.Equal(t, periods[len(periods)-1].ID, entry.FinancialPeriodID)
	assert.True(t, l.AccountBalance(t, accounting.KeyCashMain).Equal(dec("5")))
	l.RequireBalanced(t)
}

func TestCloseCashierShift_NoVarianceHasNoEntry(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	cashierID := uuid.New()
	payAt(t, l, cashierID, "80", settlement.PaymentMethodCash, today(9))

	closing, err := closeShift(l, cashierID, today(8), today(12), "80")
	require.NoError(t, err)
	assert.True(t, closing.Difference.IsZero())
	assert.Nil(t, closing.AccountingEntryID)

	n, err := l.Reads.Entries().CountBySource(ctx, l.TenantID, accounting.SourceCashierShift, closing.ID.String())
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := l.Shifts.GetShift(ctx, l.TenantID, closing.ID)
	require.NoError(t, err)
	assert.True(t, got.SystemCashTotal.Equal(dec("80")))
}

func TestCloseCashierShift_AdjacentWindowsDoNotOverlap(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	cashierID := uuid.New()

	_, err := closeShift(l, cashierID, today(6), today(12), "0")
	require.NoError(t, err)
	_, err = closeShift(l, cashierID, today(12), today(18), "0")
	require.NoError(t, err)

	// another cashier may close the same window
	_, err = closeShift(l, uuid.New(), today(6), today(12), "0")
	require.NoError(t, err)

	page, err := l.Shifts.ListShifts(ctx, l.TenantID, cashier.ShiftFilter{CashierID: &cashierID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestCloseCashierShift_CrossesMidnight(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	cashierID := uuid.New()

	closing, err := closeShift(l, cashierID, today(22), today(6), "0")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, closing.RangeEnd.Sub(closing.RangeStart))
	assert.True(t, closing.RangeEnd.Equal(today(30)))
}

func TestCloseCashierShift_Validation(t *testing.T) {
	l := testutil.NewSeededLedger(t)

	_, err := closeShift(l, uuid.New(), today(8), today(12), "-1")
	testutil.RequireCode(t, err, shared.CodeInvalidAmount)

	_, err = closeShift(l, uuid.Nil, today(8), today(12), "0")
	testutil.RequireCode(t, err, shared.CodeInvalidInput)

	_, err = closeShift(l, uuid.New(), time.Time{}, today(12), "0")
	testutil.RequireCode(t, err, shared.CodeInvalidInput)
}
