package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model of an encounter invoice
type InvoiceModel struct {
	AggregateModel
	TenantID       uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_tenant_number,priority:1;index:idx_invoice_tenant_patient,priority:1"`
	InvoiceNumber  string                   `gorm:"type:varchar(40);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	PatientID      uuid.UUID                `gorm:"type:uuid;not null;index:idx_invoice_tenant_patient,priority:2"`
	EncounterID    uuid.UUID                `gorm:"type:uuid;not null;index"`
	Status         settlement.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	TotalAmount    decimal.Decimal          `gorm:"type:decimal(18,3);not null"`
	DiscountAmount decimal.Decimal          `gorm:"type:decimal(18,3);not null;default:0"`
	PaidAmount     decimal.Decimal          `gorm:"type:decimal(18,3);not null;default:0"`
	CreditedAmount decimal.Decimal          `gorm:"type:decimal(18,3);not null;default:0"`
	PatientShare   *decimal.Decimal         `gorm:"type:decimal(18,3)"`
	InsuranceShare decimal.Decimal          `gorm:"type:decimal(18,3);not null;default:0"`
	ClaimStatus    settlement.ClaimStatus   `gorm:"type:varchar(20);not null;default:NONE"`
	Currency       valueobject.Currency     `gorm:"type:varchar(3);not null"`
	IssuedAt       *time.Time               `gorm:"index"`
	CancelledAt    *time.Time
	CancelReason   string     `gorm:"type:text"`
	RevenueEntryID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the model to a domain Invoice. Charges are loaded separately.
func (m *InvoiceModel) ToDomain() *settlement.Invoice {
	inv := &settlement.Invoice{
		InvoiceNumber:  m.InvoiceNumber,
		PatientID:      m.PatientID,
		EncounterID:    m.EncounterID,
		Status:         m.Status,
		TotalAmount:    m.TotalAmount,
		DiscountAmount: m.DiscountAmount,
		PaidAmount:     m.PaidAmount,
		CreditedAmount: m.CreditedAmount,
		InsuranceShare: m.InsuranceShare,
		ClaimStatus:    m.ClaimStatus,
		Currency:       m.Currency,
		IssuedAt:       utcPtr(m.IssuedAt),
		CancelledAt:    utcPtr(m.CancelledAt),
		CancelReason:   m.CancelReason,
		RevenueEntryID: m.RevenueEntryID,
	}
	if m.PatientShare != nil {
		share := *m.PatientShare
		inv.PatientShare = &share
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot, m.TenantID)
	return inv
}

// InvoiceModelFromDomain creates a model from a domain Invoice
func InvoiceModelFromDomain(inv *settlement.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		TenantID:       inv.TenantID,
		InvoiceNumber:  inv.InvoiceNumber,
		PatientID:      inv.PatientID,
		EncounterID:    inv.EncounterID,
		Status:         inv.Status,
		TotalAmount:    inv.TotalAmount,
		DiscountAmount: inv.DiscountAmount,
		PaidAmount:     inv.PaidAmount,
		CreditedAmount: inv.CreditedAmount,
		PatientShare:   inv.PatientShare,
		InsuranceShare: inv.InsuranceShare,
		ClaimStatus:    inv.ClaimStatus,
		Currency:       inv.Currency,
		IssuedAt:       utcPtr(inv.IssuedAt),
		CancelledAt:    utcPtr(inv.CancelledAt),
		CancelReason:   inv.CancelReason,
		RevenueEntryID: inv.RevenueEntryID,
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	return m
}

// ChargeModel is a billable line of an encounter
type ChargeModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID              `gorm:"type:uuid;not null;index:idx_charge_tenant_encounter,priority:1"`
	EncounterID      uuid.UUID              `gorm:"type:uuid;not null;index:idx_charge_tenant_encounter,priority:2"`
	InvoiceID        *uuid.UUID             `gorm:"type:uuid;index"`
	ServiceType      settlement.ServiceType `gorm:"type:varchar(20);not null"`
	Description      string                 `gorm:"type:text"`
	Quantity         decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	UnitPrice        decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	Amount           decimal.Decimal        `gorm:"type:decimal(18,3);not null"`
	DependentOrderID *uuid.UUID             `gorm:"type:uuid"`
	ChargedAt        time.Time              `gorm:"not null"`
	CreatedAt        time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ChargeModel) TableName() string {
	return "charges"
}

// ToDomain converts the model to a domain Charge
func (m *ChargeModel) ToDomain() settlement.Charge {
	return settlement.Charge{
		ID:               m.ID,
		TenantID:         m.TenantID,
		EncounterID:      m.EncounterID,
		InvoiceID:        m.InvoiceID,
		ServiceType:      m.ServiceType,
		Description:      m.Description,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		Amount:           m.Amount,
		DependentOrderID: m.DependentOrderID,
		ChargedAt:        m.ChargedAt.UTC(),
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

// ChargeModelFromDomain creates a model from a domain Charge
func ChargeModelFromDomain(c *settlement.Charge) *ChargeModel {
	return &ChargeModel{
		ID:               c.ID,
		TenantID:         c.TenantID,
		EncounterID:      c.EncounterID,
		InvoiceID:        c.InvoiceID,
		ServiceType:      c.ServiceType,
		Description:      c.Description,
		Quantity:         c.Quantity,
		UnitPrice:        c.UnitPrice,
		Amount:           c.Amount,
		DependentOrderID: c.DependentOrderID,
		ChargedAt:        c.ChargedAt.UTC(),
		CreatedAt:        c.CreatedAt.UTC(),
	}
}

// PaymentModel is an insert-only payment row
type PaymentModel struct {
	ID                uuid.UUID                `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID                `gorm:"type:uuid;not null;index:idx_payment_cashier_paid,priority:1"`
	InvoiceID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal          `gorm:"type:decimal(18,3);not null"`
	Method            settlement.PaymentMethod `gorm:"type:varchar(20);not null;index:idx_payment_cashier_paid,priority:3"`
	CashierID         uuid.UUID                `gorm:"type:uuid;not null;index:idx_payment_cashier_paid,priority:2"`
	Reference         string                   `gorm:"type:varchar(100)"`
	PaidAt            time.Time                `gorm:"not null;index:idx_payment_cashier_paid,priority:4"`
	AccountingEntryID *uuid.UUID               `gorm:"type:uuid"`
	CreatedAt         time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *settlement.Payment {
	return &settlement.Payment{
		ID:                m.ID,
		TenantID:          m.TenantID,
		InvoiceID:         m.InvoiceID,
		Amount:            m.Amount,
		Method:            m.Method,
		CashierID:         m.CashierID,
		Reference:         m.Reference,
		PaidAt:            m.PaidAt.UTC(),
		AccountingEntryID: m.AccountingEntryID,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

// PaymentModelFromDomain creates a model from a domain Payment
func PaymentModelFromDomain(p *settlement.Payment) *PaymentModel {
	return &PaymentModel{
		ID:                p.ID,
		TenantID:          p.TenantID,
		InvoiceID:         p.InvoiceID,
		Amount:            p.Amount,
		Method:            p.Method,
		CashierID:         p.CashierID,
		Reference:         p.Reference,
		PaidAt:            p.PaidAt.UTC(),
		AccountingEntryID: p.AccountingEntryID,
		CreatedAt:         p.CreatedAt.UTC(),
	}
}

// CreditNoteModel is the persistence model of a credit note
type CreditNoteModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_credit_note_tenant_number,priority:1"`
	CreditNoteNumber  string          `gorm:"type:varchar(40);not null;uniqueIndex:idx_credit_note_tenant_number,priority:2"`
	OriginalInvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	Reason            string          `gorm:"type:text;not null"`
	AccountingEntryID *uuid.UUID      `gorm:"type:uuid"`
	CreatedBy         *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt         time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (CreditNoteModel) TableName() string {
	return "credit_notes"
}

// ToDomain converts the model to a domain CreditNote
func (m *CreditNoteModel) ToDomain() *settlement.CreditNote {
	return &settlement.CreditNote{
		ID:                m.ID,
		TenantID:          m.TenantID,
		CreditNoteNumber:  m.CreditNoteNumber,
		OriginalInvoiceID: m.OriginalInvoiceID,
		Amount:            m.Amount,
		Reason:            m.Reason,
		AccountingEntryID: m.AccountingEntryID,
		CreatedBy:         m.CreatedBy,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

// CreditNoteModelFromDomain creates a model from a domain CreditNote
func CreditNoteModelFromDomain(c *settlement.CreditNote) *CreditNoteModel {
	return &CreditNoteModel{
		ID:                c.ID,
		TenantID:          c.TenantID,
		CreditNoteNumber:  c.CreditNoteNumber,
		OriginalInvoiceID: c.OriginalInvoiceID,
		Amount:            c.Amount,
		Reason:            c.Reason,
		AccountingEntryID: c.AccountingEntryID,
		CreatedBy:         c.CreatedBy,
		CreatedAt:         c.CreatedAt.UTC(),
	}
}

// DependentOrderModel holds the settlement flag of a lab or radiology order
type DependentOrderModel struct {
	ID                 uuid.UUID                     `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID                     `gorm:"type:uuid;not null;index:idx_dependent_order_encounter,priority:1"`
	EncounterID        uuid.UUID                     `gorm:"type:uuid;not null;index:idx_dependent_order_encounter,priority:2"`
	Kind               settlement.DependentOrderKind `gorm:"type:varchar(20);not null"`
	PaymentSettled     bool                          `gorm:"not null;default:false"`
	SettledAt          *time.Time
	SettledByInvoiceID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (DependentOrderModel) TableName() string {
	return "dependent_orders"
}

// ToDomain converts the model to a domain DependentOrder
func (m *DependentOrderModel) ToDomain() *settlement.DependentOrder {
	return &settlement.DependentOrder{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		EncounterID:        m.EncounterID,
		Kind:               m.Kind,
		PaymentSettled:     m.PaymentSettled,
		SettledAt:          utcPtr(m.SettledAt),
		SettledByInvoiceID: m.SettledByInvoiceID,
	}
}

// DependentOrderModelFromDomain creates a model from a domain DependentOrder
func DependentOrderModelFromDomain(o *settlement.DependentOrder) *DependentOrderModel {
	return &DependentOrderModel{
		ID:                 o.ID,
		TenantID:           o.TenantID,
		EncounterID:        o.EncounterID,
		Kind:               o.Kind,
		PaymentSettled:     o.PaymentSettled,
		SettledAt:          utcPtr(o.SettledAt),
		SettledByInvoiceID: o.SettledByInvoiceID,
	}
}
