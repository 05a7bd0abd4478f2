package persistence

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/event"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
)

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func saveYear(tenantID uuid.UUID) func(uow.Repositories) error {
	return func(repos uow.Repositories) error {
		year, err := accounting.NewFinancialYear(tenantID, "FY2024", "", date(2024, 1, 1), date(2025, 1, 1))
		if err != nil {
			return err
		}
		if err := repos.Years().Save(ctx, year); err != nil {
			return err
		}
		return uow.RecordAggregateEvents(ctx, repos, year)
	}
}

func TestGormTransactionScope_Commit(t *testing.T) {
	db := newSQLiteDB(t)
	scope := NewGormTransactionScope(db, event.NewLedgerEventSerializer())
	tenantID := uuid.New()

	require.NoError(t, scope.Execute(ctx, saveYear(tenantID)))

	assert.Equal(t, int64(1), countRows(t, db, &models.FinancialYearModel{}))
	var eventTypes []string
	require.NoError(t, db.Model(&models.OutboxEntryModel{}).Pluck("event_type", &eventTypes).Error)
	assert.Equal(t, []string{accounting.EventTypeFinancialYearCreated}, eventTypes)
}

func TestGormTransactionScope_RollbackDiscardsOutbox(t *testing.T) {
	db := newSQLiteDB(t)
	scope := NewGormTransactionScope(db, event.NewLedgerEventSerializer())
	boom := errors.New("boom")

	err := scope.Execute(ctx, func(repos uow.Repositories) error {
		if err := saveYear(uuid.New())(repos); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countRows(t, db, &models.FinancialYearModel{}))
	assert.Zero(t, countRows(t, db, &models.OutboxEntryModel{}))
}

func TestGormTransactionScope_RollbackOnPanic(t *testing.T) {
	db := newSQLiteDB(t)
	scope := NewGormTransactionScope(db, event.NewLedgerEventSerializer())

	assert.Panics(t, func() {
		_ = scope.Execute(ctx, func(repos uow.Repositories) error {
			if err := saveYear(uuid.New())(repos); err != nil {
				return err
			}
			panic("posting failed")
		})
	})
	assert.Zero(t, countRows(t, db, &models.FinancialYearModel{}))
	assert.Zero(t, countRows(t, db, &models.OutboxEntryModel{}))
}

func TestGormTransactionScope_DomainErrorPassesThrough(t *testing.T) {
	db := newSQLiteDB(t)
	scope := NewGormTransactionScope(db, event.NewLedgerEventSerializer())
	tenantID := uuid.New()
	require.NoError(t, scope.Execute(ctx, saveYear(tenantID)))

	err := scope.Execute(ctx, func(repos uow.Repositories) error {
		_, err := repos.Invoices().FindByID(ctx, tenantID, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	reads := NewGormRepositories(db, event.NewLedgerEventSerializer())
	years, err := reads.Years().FindAll(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, years, 1)
}
