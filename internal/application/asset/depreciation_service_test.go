package asset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appasset "github.com/medierp/ledger/internal/application/asset"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/asset"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/tests/testutil"
)

var ctx = context.Background()

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeLocker hands out one key at a time and records releases
type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	obtained []string
	released []string
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]bool)} }

func (f *fakeLocker) Obtain(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] {
		return nil, appasset.ErrLockHeld
	}
	f.held[key] = true
	f.obtained = append(f.obtained, key)
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.held, key)
		f.released = append(f.released, key)
		return nil
	}, nil
}

func register(t *testing.T, l *testutil.Ledger, code, cost, salvage string, years int) *asset.FixedAsset {
	t.Helper()
	fa, err := l.Depreciation.RegisterAsset(ctx, appasset.RegisterAssetInput{
		TenantID:        l.TenantID,
		Code:            code,
		Name:            code,
		AcquisitionDate: l.Year.StartDate,
		Cost:            dec(cost),
		SalvageValue:    dec(salvage),
		UsefulLifeYears: years,
		CreatedBy:       l.UserID,
	})
	require.NoError(t, err)
	return fa
}

func TestRunDepreciation_PostsOncePerPeriod(t *testing.T) {
	locker := newFakeLocker()
	l := testutil.NewSeededLedger(t, testutil.WithJobLocker(locker))
	scanner := register(t, l, "CT-01", "12000", "0", 5)
	bed := register(t, l, "BED-01", "1300", "100", 1)
	register(t, l, "OLD-01", "500", "500", 3)

	now := time.Now().UTC()
	first, err := l.Depreciation.RunDepreciation(ctx, l.TenantID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Posted)
	assert.Equal(t, 1, first.Skipped)
	assert.Zero(t, first.Failed)
	assert.True(t, first.TotalAmount.Equal(dec("300")), "200 + 100, got %s", first.TotalAmount)

	second, err := l.Depreciation.RunDepreciation(ctx, l.TenantID, now)
	require.NoError(t, err)
	assert.Zero(t, second.Posted)
	assert.Equal(t, 3, second.Skipped)
	assert.True(t, second.TotalAmount.IsZero())

	records, err := l.Depreciation.ListDepreciationRecords(ctx, l.TenantID, scanner.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(dec("200")))
	assert.Equal(t, first.FinancialPeriodID, records[0].FinancialPeriodID)

	n, err := l.Reads.Entries().CountBySource(ctx, l.TenantID, accounting.SourceDepreciation,
		asset.SourceID(scanner.ID, first.FinancialPeriodID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := l.Depreciation.GetAsset(ctx, l.TenantID, bed.ID)
	require.NoError(t, err)
	assert.True(t, got.AccumulatedDepreciation.Equal(dec("100")))
	assert.True(t, got.BookValue().Equal(dec("1200")))

	assert.True(t, l.AccountBalance(t, accounting.KeyDepreciationExpense).Equal(dec("300")))
	assert.True(t, l.AccountBalance(t, accounting.KeyAccumulatedDepreciation).Equal(dec("-300")))
	l.RequireBalanced(t)

	lockKey := "depreciation:" + l.TenantID.String()
	assert.Equal(t, []string{lockKey, lockKey}, locker.obtained)
	assert.Equal(t, []string{lockKey, lockKey}, locker.released)
}

func TestRunDepreciation_SkipsDisposedAssets(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	fa := register(t, l, "XR-01", "2400", "0", 2)

	disposed, err := l.Depreciation.DisposeAsset(ctx, l.TenantID, fa.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StatusDisposed, disposed.Status)

	_, err = l.Depreciation.DisposeAsset(ctx, l.TenantID, fa.ID)
	testutil.RequireCode(t, err, shared.CodeInvalidState)

	result, err := l.Depreciation.RunDepreciation(ctx, l.TenantID, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, result.Posted)
	assert.Zero(t, result.Failed)
}

func TestRunDepreciation_LockHeld(t *testing.T) {
	locker := newFakeLocker()
	l := testutil.NewSeededLedger(t, testutil.WithJobLocker(locker))
	register(t, l, "CT-02", "1200", "0", 1)

	release, err := locker.Obtain(ctx, "depreciation:"+l.TenantID.String(), time.Minute)
	require.NoError(t, err)

	_, err = l.Depreciation.RunDepreciation(ctx, l.TenantID, time.Now().UTC())
	testutil.RequireCode(t, err, shared.CodeConflict)

	require.NoError(t, release(ctx))
	result, err := l.Depreciation.RunDepreciation(ctx, l.TenantID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Posted)
}

func TestRunDepreciation_ClosedPeriod(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	register(t, l, "CT-03", "1200", "0", 1)

	now := time.Now().UTC()
	periods, err := l.Calendar.ListPeriods(ctx, l.TenantID, l.Year.ID)
	require.NoError(t, err)
	for _, p := range periods {
		if p.Contains(now) {
			_, err := l.Calendar.ClosePeriod(ctx, l.TenantID, p.ID, l.UserID)
			require.NoError(t, err)
		}
	}

	_, err = l.Depreciation.RunDepreciation(ctx, l.TenantID, now)
	testutil.RequireCode(t, err, shared.CodePeriodClosed)
}

func TestRunDepreciation_NoFinancialYear(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	_, err := l.Depreciation.RunDepreciation(ctx, l.TenantID, l.Year.StartDate.AddDate(-2, 0, 0))
	testutil.RequireCode(t, err, shared.CodeNoOpenPeriod)
}

func TestRegisterAsset_Validation(t *testing.T) {
	l := testutil.NewSeededLedger(t)
	tests := []struct {
		name string
		in   appasset.RegisterAssetInput
		code string
	}{
		{"empty code", appasset.RegisterAssetInput{Cost: dec("10"), UsefulLifeYears: 1, AcquisitionDate: l.Year.StartDate}, shared.CodeInvalidInput},
		{"zero cost", appasset.RegisterAssetInput{Code: "A", Cost: decimal.Zero, UsefulLifeYears: 1, AcquisitionDate: l.Year.StartDate}, shared.CodeInvalidAmount},
		{"salvage above cost", appasset.RegisterAssetInput{Code: "A", Cost: dec("10"), SalvageValue: dec("11"), UsefulLifeYears: 1, AcquisitionDate: l.Year.StartDate}, shared.CodeInvalidAmount},
		{"no useful life", appasset.RegisterAssetInput{Code: "A", Cost: dec("10"), AcquisitionDate: l.Year.StartDate}, shared.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.TenantID = l.TenantID
			_, err := l.Depreciation.RegisterAsset(ctx, tt.in)
			testutil.RequireCode(t, err, tt.code)
		})
	}
}
