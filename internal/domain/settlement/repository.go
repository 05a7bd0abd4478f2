package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	PatientID   *uuid.UUID
	EncounterID *uuid.UUID
	Statuses    []InvoiceStatus
	// From and To bound created_at, IssuedFrom and IssuedTo bound issued_at;
	// lower bounds are inclusive and upper bounds exclusive
	From       *time.Time
	To         *time.Time
	IssuedFrom *time.Time
	IssuedTo   *time.Time
}

// InvoiceRepository defines persistence for invoices
type InvoiceRepository interface {
	// FindByID loads an invoice of the tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate loads an invoice by id regardless of tenant and holds
	// an exclusive row lock until the transaction ends. Callers check the tenant.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindAll lists invoices matching the filter
	FindAll(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]*Invoice, int64, error)
	// FindOpenByPatient lists non-cancelled, not fully paid invoices of a patient
	FindOpenByPatient(ctx context.Context, tenantID, patientID uuid.UUID) ([]*Invoice, error)
	// FindWorklist lists, oldest first, up to limit open invoices that need
	// cashier action
	FindWorklist(ctx context.Context, tenantID uuid.UUID, limit int) ([]*Invoice, error)
	// Create inserts a new invoice
	Create(ctx context.Context, invoice *Invoice) error
	// SaveWithLock updates an invoice checking its version
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	InvoiceID *uuid.UUID
	CashierID *uuid.UUID
	Method    *PaymentMethod
	// From is inclusive, To is exclusive
	From *time.Time
	To   *time.Time
}

// PaymentRepository defines persistence for payments. Payments are insert-only.
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*Payment, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]*Payment, int64, error)
	// SumCash totals CASH payments of a cashier with paidAt in [from, to)
	SumCash(ctx context.Context, tenantID, cashierID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}

// ChargeRepository defines persistence for encounter charges
type ChargeRepository interface {
	Create(ctx context.Context, charge *Charge) error
	// FindUninvoicedByEncounter returns charges not yet attached to an invoice, locked for update
	FindUninvoicedByEncounter(ctx context.Context, tenantID, encounterID uuid.UUID) ([]Charge, error)
	// AttachToInvoice links the charges to invoiceID
	AttachToInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, chargeIDs []uuid.UUID) error
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Charge, error)
}

// CreditNoteRepository defines persistence for credit notes
type CreditNoteRepository interface {
	Create(ctx context.Context, note *CreditNote) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CreditNote, error)
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*CreditNote, error)
	// FindCreatedBetween lists credit notes created in [from, to)
	FindCreatedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*CreditNote, error)
}

// DependentOrderRepository writes the settlement flag of lab/radiology orders
type DependentOrderRepository interface {
	FindUnsettledByEncounter(ctx context.Context, tenantID, encounterID uuid.UUID) ([]*DependentOrder, error)
	Create(ctx context.Context, order *DependentOrder) error
	MarkSettled(ctx context.Context, orders []*DependentOrder) error
}
