package persistence

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medierp/ledger/internal/domain/cashier"
)

func TestGormShiftClosingRepository_FindOverlapping(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormShiftClosingRepository(db)
	tenantID := uuid.New()
	cashierID := uuid.New()
	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

	window, err := cashier.NewShiftWindow(day.Add(8*time.Hour), day.Add(16*time.Hour))
	require.NoError(t, err)
	closing, err := cashier.NewShiftClosing(tenantID, cashierID, window, dec("10"), dec("10"), "")
	require.NoError(t, err)
	require.NoError(t, repo.LockCashier(ctx, tenantID, cashierID))
	require.NoError(t, repo.Create(ctx, closing))

	tests := []struct {
		name       string
		start, end int
		want       int
	}{
		{"inside", 9, 10, 1},
		{"straddles start", 6, 9, 1},
		{"straddles end", 15, 20, 1},
		{"covers", 0, 23, 1},
		{"ends at start", 4, 8, 0},
		{"starts at end", 16, 22, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindOverlapping(ctx, tenantID, cashierID,
				day.Add(time.Duration(tt.start)*time.Hour), day.Add(time.Duration(tt.end)*time.Hour))
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	got, err := repo.FindOverlapping(ctx, tenantID, uuid.New(), day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)

	// taking the lock again reuses the existing row
	require.NoError(t, repo.LockCashier(ctx, tenantID, cashierID))
	var locks int64
	require.NoError(t, db.Table("cashier_shift_locks").Count(&locks).Error)
	assert.Equal(t, int64(1), locks)
}

func TestGormShiftClosingRepository_LockCashierSelectsForUpdate(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t, false)
	defer mockDB.Close()
	repo := NewGormShiftClosingRepository(db.DB)
	tenantID, cashierID := uuid.New(), uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "cashier_shift_locks"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "cashier_shift_locks" WHERE .*tenant_id = \$1 AND cashier_id = \$2.* FOR UPDATE`).
		WithArgs(tenantID, cashierID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "cashier_id", "created_at"}).
			AddRow(tenantID, cashierID, time.Now()))

	require.NoError(t, repo.LockCashier(ctx, tenantID, cashierID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
