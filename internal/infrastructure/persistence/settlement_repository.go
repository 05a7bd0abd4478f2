package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/medierp/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openInvoiceStatuses are the statuses that may still carry a liability
var openInvoiceStatuses = []settlement.InvoiceStatus{
	settlement.InvoiceStatusDraft,
	settlement.InvoiceStatusIssued,
	settlement.InvoiceStatusPartiallyPaid,
}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice within a tenant
func (r *GormInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads an invoice by id and holds SELECT ... FOR UPDATE
// until the transaction ends
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*settlement.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter settlement.InvoiceFilter) ([]*settlement.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID)
	if filter.PatientID != nil {
		query = query.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.EncounterID != nil {
		query = query.Where("encounter_id = ?", *filter.EncounterID)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", filter.To.UTC())
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issued_at >= ?", filter.IssuedFrom.UTC())
	}
	if filter.IssuedTo != nil {
		query = query.Where("issued_at < ?", filter.IssuedTo.UTC())
	}

	var rows []models.InvoiceModel
	total, err := findPage(query, filter.Filter, InvoiceSortFields, "created_at", &rows)
	if err != nil {
		return nil, 0, err
	}
	return invoicesToDomain(rows), total, nil
}

// FindOpenByPatient lists the patient's invoices that are neither cancelled nor paid
func (r *GormInvoiceRepository) FindOpenByPatient(ctx context.Context, tenantID, patientID uuid.UUID) ([]*settlement.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND patient_id = ? AND status IN ?", tenantID, patientID, openInvoiceStatuses).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// worklistPredicate mirrors Invoice.NeedsCashierAttention: the remaining
// patient liability, capped by the remaining total, exceeds epsilon, or a
// zero patient share still waits for confirmation
var worklistPredicate = fmt.Sprintf(`(
	(COALESCE(patient_share, total_amount) - paid_amount > %[1]s
		AND total_amount - discount_amount - credited_amount - paid_amount > %[1]s)
	OR (COALESCE(patient_share, total_amount) = 0 AND status IN ?)
)`, valueobject.Epsilon.String())

// FindWorklist lists the oldest open invoices that need cashier action.
// The predicate is applied before the limit so settled invoices never
// crowd out the ones still owing.
func (r *GormInvoiceRepository) FindWorklist(ctx context.Context, tenantID uuid.UUID, limit int) ([]*settlement.Invoice, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status IN ?", tenantID, openInvoiceStatuses).
		Where(worklistPredicate, []settlement.InvoiceStatus{settlement.InvoiceStatusDraft, settlement.InvoiceStatusIssued}).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *settlement.Invoice) error {
	return translateError(r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error)
}

// SaveWithLock updates the mutable columns when the stored version is the
// one the invoice was loaded with
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *settlement.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", invoice.ID, invoice.TenantID, invoice.Version-1).
		Updates(map[string]any{
			"status":           invoice.Status,
			"paid_amount":      invoice.PaidAmount,
			"credited_amount":  invoice.CreditedAmount,
			"claim_status":     invoice.ClaimStatus,
			"issued_at":        utcOrNil(invoice.IssuedAt),
			"cancelled_at":     utcOrNil(invoice.CancelledAt),
			"cancel_reason":    invoice.CancelReason,
			"revenue_entry_id": invoice.RevenueEntryID,
			"version":          invoice.Version,
			"updated_at":       invoice.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			fmt.Sprintf("Invoice %s was modified by another transaction", invoice.InvoiceNumber))
	}
	return nil
}

func invoicesToDomain(rows []models.InvoiceModel) []*settlement.Invoice {
	invoices := make([]*settlement.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices
}

// utcOrNil keeps nil pointers as SQL NULL in map updates
func utcOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// GormPaymentRepository implements PaymentRepository using GORM. Payments are insert-only.
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *settlement.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error)
}

// FindByID finds a payment within a tenant
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists the payments of an invoice in payment order
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*settlement.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("paid_at ASC").
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return paymentsToDomain(rows), nil
}

// FindAll lists payments matching the filter
func (r *GormPaymentRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter settlement.PaymentFilter) ([]*settlement.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("tenant_id = ?", tenantID)
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.CashierID != nil {
		query = query.Where("cashier_id = ?", *filter.CashierID)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.From != nil {
		query = query.Where("paid_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("paid_at < ?", filter.To.UTC())
	}

	var rows []models.PaymentModel
	total, err := findPage(query, filter.Filter, PaymentSortFields, "paid_at", &rows)
	if err != nil {
		return nil, 0, err
	}
	return paymentsToDomain(rows), total, nil
}

// SumCash totals the cashier's CASH payments with paid_at in [from, to).
// Amounts are summed as decimals rather than in SQL.
func (r *GormPaymentRepository) SumCash(ctx context.Context, tenantID, cashierID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("tenant_id = ? AND cashier_id = ? AND method = ?", tenantID, cashierID, settlement.PaymentMethodCash).
		Where("paid_at >= ? AND paid_at < ?", from.UTC(), to.UTC()).
		Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total, nil
}

func paymentsToDomain(rows []models.PaymentModel) []*settlement.Payment {
	payments := make([]*settlement.Payment, len(rows))
	for i := range rows {
		payments[i] = rows[i].ToDomain()
	}
	return payments
}

// GormChargeRepository implements ChargeRepository using GORM
type GormChargeRepository struct {
	db *gorm.DB
}

// NewGormChargeRepository creates a new GormChargeRepository
func NewGormChargeRepository(db *gorm.DB) *GormChargeRepository {
	return &GormChargeRepository{db: db}
}

// Create inserts a charge
func (r *GormChargeRepository) Create(ctx context.Context, charge *settlement.Charge) error {
	return translateError(r.db.WithContext(ctx).Create(models.ChargeModelFromDomain(charge)).Error)
}

// FindUninvoicedByEncounter locks and returns the encounter's charges that
// are not yet on an invoice
func (r *GormChargeRepository) FindUninvoicedByEncounter(ctx context.Context, tenantID, encounterID uuid.UUID) ([]settlement.Charge, error) {
	var rows []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND encounter_id = ? AND invoice_id IS NULL", tenantID, encounterID).
		Order("charged_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return chargesToDomain(rows), nil
}

// AttachToInvoice links uninvoiced charges to invoiceID. It fails with
// CONFLICT when any of them was invoiced meanwhile.
func (r *GormChargeRepository) AttachToInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, chargeIDs []uuid.UUID) error {
	if len(chargeIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.ChargeModel{}).
		Where("tenant_id = ? AND id IN ? AND invoice_id IS NULL", tenantID, chargeIDs).
		Update("invoice_id", invoiceID)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected != int64(len(chargeIDs)) {
		return shared.NewDomainError(shared.CodeConflict, "Some charges were invoiced by another transaction")
	}
	return nil
}

// FindByInvoice lists the charges of an invoice
func (r *GormChargeRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]settlement.Charge, error) {
	var rows []models.ChargeModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		Order("charged_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return chargesToDomain(rows), nil
}

func chargesToDomain(rows []models.ChargeModel) []settlement.Charge {
	charges := make([]settlement.Charge, len(rows))
	for i := range rows {
		charges[i] = rows[i].ToDomain()
	}
	return charges
}

// GormCreditNoteRepository implements CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// Create inserts a credit note
func (r *GormCreditNoteRepository) Create(ctx context.Context, note *settlement.CreditNote) error {
	return translateError(r.db.WithContext(ctx).Create(models.CreditNoteModelFromDomain(note)).Error)
}

// FindByID finds a credit note within a tenant
func (r *GormCreditNoteRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*settlement.CreditNote, error) {
	var model models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByInvoice lists credit notes raised against an invoice
func (r *GormCreditNoteRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*settlement.CreditNote, error) {
	return r.find(ctx, "tenant_id = ? AND original_invoice_id = ?", tenantID, invoiceID)
}

// FindCreatedBetween lists credit notes created in [from, to)
func (r *GormCreditNoteRepository) FindCreatedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*settlement.CreditNote, error) {
	return r.find(ctx, "tenant_id = ? AND created_at >= ? AND created_at < ?", tenantID, from.UTC(), to.UTC())
}

func (r *GormCreditNoteRepository) find(ctx context.Context, where string, args ...any) ([]*settlement.CreditNote, error) {
	var rows []models.CreditNoteModel
	if err := r.db.WithContext(ctx).
		Where(where, args...).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	notes := make([]*settlement.CreditNote, len(rows))
	for i := range rows {
		notes[i] = rows[i].ToDomain()
	}
	return notes, nil
}

// GormDependentOrderRepository implements DependentOrderRepository using GORM
type GormDependentOrderRepository struct {
	db *gorm.DB
}

// NewGormDependentOrderRepository creates a new GormDependentOrderRepository
func NewGormDependentOrderRepository(db *gorm.DB) *GormDependentOrderRepository {
	return &GormDependentOrderRepository{db: db}
}

// FindUnsettledByEncounter locks and returns the encounter's orders still
// waiting for payment
func (r *GormDependentOrderRepository) FindUnsettledByEncounter(ctx context.Context, tenantID, encounterID uuid.UUID) ([]*settlement.DependentOrder, error) {
	var rows []models.DependentOrderModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND encounter_id = ? AND payment_settled = ?", tenantID, encounterID, false).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]*settlement.DependentOrder, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders, nil
}

// Create inserts a dependent order
func (r *GormDependentOrderRepository) Create(ctx context.Context, order *settlement.DependentOrder) error {
	return translateError(r.db.WithContext(ctx).Create(models.DependentOrderModelFromDomain(order)).Error)
}

// MarkSettled writes the settlement flag of each order. Orders already
// settled by a concurrent transaction are left as they are.
func (r *GormDependentOrderRepository) MarkSettled(ctx context.Context, orders []*settlement.DependentOrder) error {
	for _, o := range orders {
		if err := r.db.WithContext(ctx).Model(&models.DependentOrderModel{}).
			Where("tenant_id = ? AND id = ? AND payment_settled = ?", o.TenantID, o.ID, false).
			Updates(map[string]any{
				"payment_settled":       true,
				"settled_at":            utcOrNil(o.SettledAt),
				"settled_by_invoice_id": o.SettledByInvoiceID,
			}).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}

var (
	_ settlement.InvoiceRepository        = (*GormInvoiceRepository)(nil)
	_ settlement.PaymentRepository        = (*GormPaymentRepository)(nil)
	_ settlement.ChargeRepository         = (*GormChargeRepository)(nil)
	_ settlement.CreditNoteRepository     = (*GormCreditNoteRepository)(nil)
	_ settlement.DependentOrderRepository = (*GormDependentOrderRepository)(nil)
)
