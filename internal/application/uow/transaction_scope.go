// Package uow defines the transaction boundary shared by the application
// services. Every posting producer runs its whole operation inside one
// TransactionScope so that the business change, the ledger entry and the
// outbox events commit or roll back together.
package uow

import (
	"context"

	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/asset"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
)

// TransactionScope runs fn inside one database transaction. A returned
// error, a panic or a cancelled context rolls the transaction back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// EventRecorder stores domain events in the transactional outbox
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// Repositories gives access to every repository bound to the current
// transaction. Repositories obtained here must not escape fn.
type Repositories interface {
	Accounts() accounting.AccountRepository
	Mappings() accounting.SystemAccountMappingRepository
	Years() accounting.FinancialYearRepository
	Periods() accounting.FinancialPeriodRepository
	Entries() accounting.AccountingEntryRepository

	Invoices() settlement.InvoiceRepository
	Payments() settlement.PaymentRepository
	Charges() settlement.ChargeRepository
	CreditNotes() settlement.CreditNoteRepository
	DependentOrders() settlement.DependentOrderRepository

	Shifts() cashier.ShiftClosingRepository

	Assets() asset.FixedAssetRepository
	DepreciationRecords() asset.DepreciationRecordRepository

	Events() EventRecorder
}

// RecordAggregateEvents moves the pending events of an aggregate to the
// outbox and clears them.
func RecordAggregateEvents(ctx context.Context, repos Repositories, aggregates ...shared.EventSource) error {
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := repos.Events().Record(ctx, events...); err != nil {
			return err
		}
		agg.ClearDomainEvents()
	}
	return nil
}
