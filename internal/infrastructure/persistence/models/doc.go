// Package models contains the GORM persistence models of the ledger.
// Domain types stay free of ORM tags; every model converts with ToDomain
// and a XModelFromDomain constructor.
//
// - base.go: shared id, timestamp and version columns
// - ledger.go: chart of accounts, calendar and posted entries
// - settlement.go: invoices, charges, payments, credit notes, dependent orders
// - cashier.go: shift closings and the per-cashier lock row
// - asset.go: fixed assets and depreciation records
// - outbox.go: transactional outbox
package models

// All returns one zero value of every persisted model, in an order
// satisfying foreign keys. Tests use it with AutoMigrate; production
// schemas come from the SQL migrations.
func All() []any {
	return []any{
		&AccountModel{},
		&SystemAccountMappingModel{},
		&FinancialYearModel{},
		&FinancialPeriodModel{},
		&AccountingEntryModel{},
		&AccountingEntryLineModel{},
		&InvoiceModel{},
		&ChargeModel{},
		&PaymentModel{},
		&CreditNoteModel{},
		&DependentOrderModel{},
		&ShiftClosingModel{},
		&CashierShiftLockModel{},
		&FixedAssetModel{},
		&DepreciationRecordModel{},
		&OutboxEntryModel{},
	}
}
