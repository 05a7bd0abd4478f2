package persistence

import (
	"context"

	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/asset"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope implements uow.TransactionScope with one GORM
// transaction per Execute. Outbox events recorded inside fn are written
// by the same transaction.
type GormTransactionScope struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, serializer *event.EventSerializer) *GormTransactionScope {
	return &GormTransactionScope{db: db, serializer: serializer}
}

// Execute runs fn within a database transaction. An error or panic from
// fn rolls the transaction back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newGormRepositories(tx, s.serializer))
	})
}

// NewGormRepositories returns repositories working outside any explicit
// transaction, for read paths
func NewGormRepositories(db *gorm.DB, serializer *event.EventSerializer) uow.Repositories {
	return newGormRepositories(db, serializer)
}

// gormRepositories binds every repository to one *gorm.DB handle
type gormRepositories struct {
	tx         *gorm.DB
	serializer *event.EventSerializer
}

func newGormRepositories(tx *gorm.DB, serializer *event.EventSerializer) *gormRepositories {
	return &gormRepositories{tx: tx, serializer: serializer}
}

func (r *gormRepositories) Accounts() accounting.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormRepositories) Mappings() accounting.SystemAccountMappingRepository {
	return NewGormSystemAccountMappingRepository(r.tx)
}

func (r *gormRepositories) Years() accounting.FinancialYearRepository {
	return NewGormFinancialYearRepository(r.tx)
}

func (r *gormRepositories) Periods() accounting.FinancialPeriodRepository {
	return NewGormFinancialPeriodRepository(r.tx)
}

func (r *gormRepositories) Entries() accounting.AccountingEntryRepository {
	return NewGormAccountingEntryRepository(r.tx)
}

func (r *gormRepositories) Invoices() settlement.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormRepositories) Payments() settlement.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormRepositories) Charges() settlement.ChargeRepository {
	return NewGormChargeRepository(r.tx)
}

func (r *gormRepositories) CreditNotes() settlement.CreditNoteRepository {
	return NewGormCreditNoteRepository(r.tx)
}

func (r *gormRepositories) DependentOrders() settlement.DependentOrderRepository {
	return NewGormDependentOrderRepository(r.tx)
}

func (r *gormRepositories) Shifts() cashier.ShiftClosingRepository {
	return NewGormShiftClosingRepository(r.tx)
}

func (r *gormRepositories) Assets() asset.FixedAssetRepository {
	return NewGormFixedAssetRepository(r.tx)
}

func (r *gormRepositories) DepreciationRecords() asset.DepreciationRecordRepository {
	return NewGormDepreciationRecordRepository(r.tx)
}

func (r *gormRepositories) Events() uow.EventRecorder {
	return event.NewOutboxRecorder(r.serializer, event.NewGormOutboxRepository(r.tx))
}

var (
	_ uow.TransactionScope = (*GormTransactionScope)(nil)
	_ uow.Repositories     = (*gormRepositories)(nil)
)
