package integration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	appasset "github.com/medierp/ledger/internal/application/asset"
	appcashier "github.com/medierp/ledger/internal/application/cashier"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/tests/testutil"
)

func newPostgresLedger(t *testing.T) *testutil.Ledger {
	t.Helper()
	tdb := NewTestDB(t)
	l := testutil.NewLedgerOn(t, tdb.DB)
	l.Seed(t)
	return l
}

func cashierFilter(cashierID uuid.UUID) cashier.ShiftFilter {
	return cashier.ShiftFilter{Filter: shared.DefaultFilter(), CashierID: &cashierID}
}

// runConcurrently starts n calls of fn together and collects their errors
func runConcurrently(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestPostgres_ConcurrentPaymentsNeverOverpay(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	inv := l.InvoiceEncounter(t, uuid.New(), "100.00")
	cashierID := uuid.New()

	errs := runConcurrently(10, func(int) error {
		_, err := l.Pay(ctx, inv.ID, "20.00", settlement.PaymentMethodCash, cashierID)
		return err
	})

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, shared.HasCode(err, shared.CodeOverpayment) || shared.HasCode(err, shared.CodeInvalidState),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 5, succeeded)

	detail, err := l.Settlement.GetInvoice(ctx, l.TenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, settlement.InvoiceStatusPaid, detail.Invoice.Status)
	assert.True(t, detail.Invoice.PaidAmount.Equal(decimal.RequireFromString("100")), "paid %s", detail.Invoice.PaidAmount)
	assert.Len(t, detail.Payments, 5)

	l.RequireBalanced(t)
	assert.True(t, l.AccountBalance(t, accounting.KeyPatientReceivable).IsZero())
}

func TestPostgres_ConcurrentShiftClosingsDoNotOverlap(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	cashierID := uuid.New()
	start := time.Now().UTC().Truncate(time.Hour).Add(-8 * time.Hour)

	errs := runConcurrently(5, func(i int) error {
		// every window overlaps the first by at least half an hour
		offset := time.Duration(i) * 30 * time.Minute
		_, err := l.Shifts.CloseCashierShift(ctx, appcashier.CloseShiftInput{
			TenantID:   l.TenantID,
			CashierID:  cashierID,
			RangeStart: start.Add(offset),
			RangeEnd:   start.Add(4*time.Hour + offset),
			ActualCash: decimal.Zero,
			ClosedBy:   l.UserID,
		})
		return err
	})

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		testutil.RequireCode(t, err, shared.CodeOverlappingShift)
	}
	assert.Equal(t, 1, succeeded)

	t.Run("adjacent window is accepted", func(t *testing.T) {
		page, err := l.Shifts.ListShifts(ctx, l.TenantID, cashierFilter(cashierID))
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		closed := page.Items[0]

		_, err = l.Shifts.CloseCashierShift(ctx, appcashier.CloseShiftInput{
			TenantID:   l.TenantID,
			CashierID:  cashierID,
			RangeStart: closed.RangeEnd,
			RangeEnd:   closed.RangeEnd.Add(time.Hour),
			ActualCash: decimal.Zero,
			ClosedBy:   l.UserID,
		})
		require.NoError(t, err)
	})
}

func TestPostgres_ExclusionConstraintRejectsOverlap(t *testing.T) {
	tdb := NewTestDB(t)
	tenantID, cashierID := uuid.New(), uuid.New()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	insert := func(from, to time.Time) error {
		return tdb.DB.Exec(`
			INSERT INTO shift_closings (id, tenant_id, cashier_id, range_start, range_end,
				system_cash_total, actual_cash_total, difference)
			VALUES (?, ?, ?, ?, ?, 0, 0, 0)`,
			uuid.New(), tenantID, cashierID, from, to).Error
	}

	require.NoError(t, insert(start, start.Add(8*time.Hour)))
	// half-open ranges touch without overlapping
	require.NoError(t, insert(start.Add(8*time.Hour), start.Add(16*time.Hour)))

	err := insert(start.Add(time.Hour), start.Add(2*time.Hour))
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr), "expected a postgres error, got %v", err)
	assert.Equal(t, "23P01", pgErr.Code)
	assert.Equal(t, "excl_shift_closings_no_overlap", pgErr.ConstraintName)
}

func TestPostgres_ConcurrentDepreciationRunsPostOnce(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	year := time.Now().UTC().Year()

	a, err := l.Depreciation.RegisterAsset(ctx, appasset.RegisterAssetInput{
		TenantID:        l.TenantID,
		Code:            "XR-01",
		Name:            "X-ray unit",
		AcquisitionDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		Cost:            decimal.RequireFromString("1200"),
		UsefulLifeYears: 1,
		CreatedBy:       l.UserID,
	})
	require.NoError(t, err)

	runDate := time.Now().UTC()
	errs := runConcurrently(3, func(int) error {
		_, err := l.Depreciation.RunDepreciation(ctx, l.TenantID, runDate)
		return err
	})
	for _, err := range errs {
		require.NoError(t, err)
	}

	records, err := l.Depreciation.ListDepreciationRecords(ctx, l.TenantID, a.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(100)), "amount %s", records[0].Amount)

	got, err := l.Depreciation.GetAsset(ctx, l.TenantID, a.ID)
	require.NoError(t, err)
	assert.True(t, got.AccumulatedDepreciation.Equal(decimal.NewFromInt(100)))
	l.RequireBalanced(t)
}

func TestPostgres_TenantsShareAccountCodes(t *testing.T) {
	l := newPostgresLedger(t)
	other := l.WithTenant(testutil.NewTestUUID("second-hospital"))
	other.Seed(t)

	inv := other.InvoiceEncounter(t, uuid.New(), "40.00")
	_, err := other.Pay(context.Background(), inv.ID, "40.00", settlement.PaymentMethodCard, uuid.New())
	require.NoError(t, err)

	_, err = l.Settlement.GetInvoice(context.Background(), l.TenantID, inv.ID)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeNotFound) || shared.HasCode(err, shared.CodeTenantMismatch))

	other.RequireBalanced(t)
	l.RequireBalanced(t)
	assert.True(t, l.AccountBalance(t, accounting.KeyCardClearing).IsZero())
}

func TestPostgres_PeriodCloseWaitsForInFlightPosting(t *testing.T) {
	l := newPostgresLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, period, err := appaccounting.ResolvePostingPeriod(ctx, l.Reads, l.TenantID, now)
	require.NoError(t, err)

	manual := func(sourceID string) appaccounting.PostingRequest {
		amount := decimal.NewFromInt(25)
		return appaccounting.PostingRequest{
			TenantID:     l.TenantID,
			EntryDate:    now,
			Description:  "Cash deposited",
			SourceModule: accounting.SourceManual,
			SourceID:     sourceID,
			Lines: []accounting.LineInput{
				accounting.Debit(l.AccountID(accounting.KeyBank), amount, ""),
				accounting.Credit(l.AccountID(accounting.KeyCashMain), amount, ""),
			},
			CreatedBy: l.UserID,
		}
	}

	posted := make(chan struct{})
	release := make(chan struct{})
	postDone := make(chan error, 1)
	go func() {
		postDone <- l.Scope.Execute(ctx, func(repos uow.Repositories) error {
			if _, err := l.Poster.Post(ctx, repos, manual("deposit-1")); err != nil {
				close(posted)
				return err
			}
			close(posted)
			<-release
			return nil
		})
	}()
	<-posted

	closeDone := make(chan error, 1)
	go func() {
		_, err := l.Calendar.ClosePeriod(ctx, l.TenantID, period.ID, l.UserID)
		closeDone <- err
	}()

	select {
	case err := <-closeDone:
		t.Fatalf("period closed while a posting into it was uncommitted: %v", err)
	case <-time.After(300 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-postDone)
	require.NoError(t, <-closeDone)

	entry, err := l.Reads.Entries().FindBySource(ctx, l.TenantID, accounting.SourceManual, "deposit-1")
	require.NoError(t, err)
	assert.Equal(t, period.ID, entry.FinancialPeriodID)

	err = l.Scope.Execute(ctx, func(repos uow.Repositories) error {
		_, err := l.Poster.Post(ctx, repos, manual("deposit-2"))
		return err
	})
	testutil.RequireCode(t, err, shared.CodePeriodClosed)
	_, err = l.Reads.Entries().FindBySource(ctx, l.TenantID, accounting.SourceManual, "deposit-2")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	l.RequireBalanced(t)
}
