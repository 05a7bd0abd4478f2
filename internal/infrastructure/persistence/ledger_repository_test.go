package persistence

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGormFinancialYearRepository_FindContainingForShare(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormFinancialYearRepository(db)
	tenantID := uuid.New()

	y2024, err := accounting.NewFinancialYear(tenantID, "FY2024", "", date(2024, 1, 1), date(2025, 1, 1))
	require.NoError(t, err)
	y2025, err := accounting.NewFinancialYear(tenantID, "FY2025", "", date(2025, 1, 1), date(2026, 1, 1))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, y2024))
	require.NoError(t, repo.Save(ctx, y2025))

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"first day", date(2024, 1, 1), "FY2024"},
		{"late on the last day", time.Date(2024, 12, 31, 23, 30, 0, 0, time.UTC), "FY2024"},
		{"end date belongs to the next year", date(2025, 1, 1), "FY2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindContainingForShare(ctx, tenantID, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Code)
		})
	}

	_, err = repo.FindContainingForShare(ctx, tenantID, date(2026, 1, 1))
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindContainingForShare(ctx, uuid.New(), date(2024, 6, 1))
	assert.ErrorIs(t, err, shared.ErrNotFound)

	all, err := repo.FindAll(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "FY2024", all[0].Code)
}

func TestGormFinancialYearRepository_FindContainingForShareLocksYear(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t, false)
	defer mockDB.Close()
	repo := NewGormFinancialYearRepository(db.DB)
	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "financial_years" WHERE tenant_id = \$1 AND start_date <= \$2 AND end_date > \$3 .* FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindContainingForShare(ctx, tenantID, date(2026, 3, 14))
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormFinancialYearRepository_FindCurrent(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormFinancialYearRepository(db)
	tenantID := uuid.New()

	_, err := repo.FindCurrent(ctx, tenantID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	year, err := accounting.NewFinancialYear(tenantID, "FY2024", "", date(2024, 1, 1), date(2025, 1, 1))
	require.NoError(t, err)
	require.NoError(t, year.Open())
	require.NoError(t, year.MarkCurrent())
	require.NoError(t, repo.Save(ctx, year))

	got, err := repo.FindCurrent(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, year.ID, got.ID)
	assert.Equal(t, accounting.FinancialYearStatusOpen, got.Status)
	assert.True(t, got.StartDate.Equal(date(2024, 1, 1)))
}

func TestGormAccountRepository_DuplicateCodeIsConflict(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormAccountRepository(db)
	tenantID := uuid.New()

	first, err := accounting.NewAccount(tenantID, "1000", "Cash", accounting.AccountTypeAsset)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := accounting.NewAccount(tenantID, "1000", "Cash again", accounting.AccountTypeAsset)
	require.NoError(t, err)
	err = repo.Save(ctx, second)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeConflict), "got %v", err)

	// codes are unique per tenant only
	other, err := accounting.NewAccount(uuid.New(), "1000", "Cash", accounting.AccountTypeAsset)
	require.NoError(t, err)
	assert.NoError(t, repo.Save(ctx, other))

	got, err := repo.FindByCode(ctx, tenantID, "1000")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.True(t, got.IsActive)
}

func TestGormSystemAccountMappingRepository_SaveUpserts(t *testing.T) {
	db := newSQLiteDB(t)
	accounts := NewGormAccountRepository(db)
	repo := NewGormSystemAccountMappingRepository(db)
	tenantID := uuid.New()

	cash, err := accounting.NewAccount(tenantID, "1000", "Cash", accounting.AccountTypeAsset)
	require.NoError(t, err)
	drawer, err := accounting.NewAccount(tenantID, "1001", "Cash drawer", accounting.AccountTypeAsset)
	require.NoError(t, err)
	require.NoError(t, accounts.Save(ctx, cash))
	require.NoError(t, accounts.Save(ctx, drawer))

	mapping, err := accounting.NewSystemAccountMapping(tenantID, accounting.KeyCashMain, cash)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, mapping))

	// a second mapping for the same key repoints the stored row
	again, err := accounting.NewSystemAccountMapping(tenantID, accounting.KeyCashMain, drawer)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, again))

	all, err := repo.FindAll(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, drawer.ID, all[0].AccountID)

	got, err := repo.FindByKey(ctx, tenantID, accounting.KeyCashMain)
	require.NoError(t, err)
	assert.Equal(t, drawer.ID, got.AccountID)

	_, err = repo.FindByKey(ctx, tenantID, accounting.KeyBank)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
