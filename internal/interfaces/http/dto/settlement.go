package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/settlement"
)

// AddChargeRequest records a billable item against an encounter
type AddChargeRequest struct {
	EncounterID      string `json:"encounter_id" binding:"required,uuid"`
	ServiceType      string `json:"service_type" binding:"required,oneof=SERVICE PHARMACY LAB RADIOLOGY ROOM"`
	Description      string `json:"description" binding:"required,max=500"`
	Quantity         string `json:"quantity" binding:"required,money_pos"`
	UnitPrice        string `json:"unit_price" binding:"required,money_nonneg"`
	DependentOrderID string `json:"dependent_order_id" binding:"omitempty,uuid"`
}

// RegisterDependentOrderRequest registers a LAB or RADIOLOGY order that
// waits for the patient share to be paid
type RegisterDependentOrderRequest struct {
	EncounterID string `json:"encounter_id" binding:"required,uuid"`
	Kind        string `json:"kind" binding:"required,oneof=LAB RADIOLOGY"`
}

// SplitRequest is a liability split computed outside the engine
type SplitRequest struct {
	Discount       string  `json:"discount" binding:"omitempty,money_nonneg"`
	PatientShare   *string `json:"patient_share" binding:"omitempty,money_nonneg"`
	InsuranceShare string  `json:"insurance_share" binding:"omitempty,money_nonneg"`
}

// ToSplitter converts the split
func (r *SplitRequest) ToSplitter() settlement.LiabilitySplitter {
	split := settlement.FixedSplit{
		Discount:       ParseMoney(r.Discount),
		InsuranceShare: ParseMoney(r.InsuranceShare),
	}
	if r.PatientShare != nil {
		share := ParseMoney(*r.PatientShare)
		split.PatientShare = &share
	}
	return split
}

// CreateInvoiceRequest invoices every uninvoiced charge of an encounter.
// Without a split the patient pays everything.
type CreateInvoiceRequest struct {
	EncounterID string        `json:"encounter_id" binding:"required,uuid"`
	PatientID   string        `json:"patient_id" binding:"required,uuid"`
	Currency    string        `json:"currency" binding:"omitempty,len=3,uppercase"`
	Split       *SplitRequest `json:"split"`
	Issue       bool          `json:"issue"`
}

// CancelInvoiceRequest cancels an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UpdateClaimStatusRequest moves the insurance claim status
type UpdateClaimStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=NONE PENDING SUBMITTED APPROVED REJECTED"`
}

// CreateCreditNoteRequest credits part of an issued invoice
type CreateCreditNoteRequest struct {
	Amount string `json:"amount" binding:"required,money_pos"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// RecordPaymentRequest records a payment against an invoice. A zero
// amount confirms an invoice whose patient owes nothing.
type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required,money_nonneg"`
	Method    string `json:"method" binding:"required,oneof=CASH CARD BANK_TRANSFER INSURANCE"`
	Reference string `json:"reference" binding:"omitempty,max=100"`
	CashierID string `json:"cashier_id" binding:"omitempty,uuid"`
	PaidAt    string `json:"paid_at" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ListInvoicesRequest filters invoices
type ListInvoicesRequest struct {
	ListRequest
	PatientID   string   `form:"patient_id" binding:"omitempty,uuid"`
	EncounterID string   `form:"encounter_id" binding:"omitempty,uuid"`
	Status      []string `form:"status" binding:"omitempty,dive,oneof=DRAFT ISSUED PARTIALLY_PAID PAID CANCELLED"`
	From        string   `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To          string   `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ListPaymentsRequest filters payments
type ListPaymentsRequest struct {
	ListRequest
	InvoiceID string `form:"invoice_id" binding:"omitempty,uuid"`
	CashierID string `form:"cashier_id" binding:"omitempty,uuid"`
	Method    string `form:"method" binding:"omitempty,oneof=CASH CARD BANK_TRANSFER INSURANCE"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// ChargeResponse is the wire form of a charge
type ChargeResponse struct {
	ID               uuid.UUID       `json:"id"`
	EncounterID      uuid.UUID       `json:"encounter_id"`
	InvoiceID        *uuid.UUID      `json:"invoice_id,omitempty"`
	ServiceType      string          `json:"service_type"`
	Description      string          `json:"description"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Amount           decimal.Decimal `json:"amount"`
	DependentOrderID *uuid.UUID      `json:"dependent_order_id,omitempty"`
	ChargedAt        time.Time       `json:"charged_at"`
}

// ToChargeResponse converts a charge
func ToChargeResponse(c *settlement.Charge) ChargeResponse {
	return ChargeResponse{
		ID:               c.ID,
		EncounterID:      c.EncounterID,
		InvoiceID:        c.InvoiceID,
		ServiceType:      string(c.ServiceType),
		Description:      c.Description,
		Quantity:         c.Quantity,
		UnitPrice:        c.UnitPrice,
		Amount:           c.Amount,
		DependentOrderID: c.DependentOrderID,
		ChargedAt:        c.ChargedAt,
	}
}

// DependentOrderResponse is the wire form of a dependent order
type DependentOrderResponse struct {
	ID                 uuid.UUID  `json:"id"`
	EncounterID        uuid.UUID  `json:"encounter_id"`
	Kind               string     `json:"kind"`
	PaymentSettled     bool       `json:"payment_settled"`
	SettledAt          *time.Time `json:"settled_at,omitempty"`
	SettledByInvoiceID *uuid.UUID `json:"settled_by_invoice_id,omitempty"`
}

// ToDependentOrderResponse converts a dependent order
func ToDependentOrderResponse(o *settlement.DependentOrder) DependentOrderResponse {
	return DependentOrderResponse{
		ID:                 o.ID,
		EncounterID:        o.EncounterID,
		Kind:               string(o.Kind),
		PaymentSettled:     o.PaymentSettled,
		SettledAt:          o.SettledAt,
		SettledByInvoiceID: o.SettledByInvoiceID,
	}
}

// InvoiceResponse is the wire form of an invoice. PatientShare is absent
// on invoices without a recorded split.
type InvoiceResponse struct {
	ID                        uuid.UUID        `json:"id"`
	InvoiceNumber             string           `json:"invoice_number"`
	PatientID                 uuid.UUID        `json:"patient_id"`
	EncounterID               uuid.UUID        `json:"encounter_id"`
	Status                    string           `json:"status"`
	ClaimStatus               string           `json:"claim_status"`
	Currency                  string           `json:"currency"`
	TotalAmount               decimal.Decimal  `json:"total_amount"`
	DiscountAmount            decimal.Decimal  `json:"discount_amount"`
	NetAmount                 decimal.Decimal  `json:"net_amount"`
	PaidAmount                decimal.Decimal  `json:"paid_amount"`
	CreditedAmount            decimal.Decimal  `json:"credited_amount"`
	PatientShare              *decimal.Decimal `json:"patient_share,omitempty"`
	InsuranceShare            decimal.Decimal  `json:"insurance_share"`
	RemainingTotal            decimal.Decimal  `json:"remaining_total"`
	RemainingPatientLiability decimal.Decimal  `json:"remaining_patient_liability"`
	IssuedAt                  *time.Time       `json:"issued_at,omitempty"`
	CancelledAt               *time.Time       `json:"cancelled_at,omitempty"`
	CancelReason              string           `json:"cancel_reason,omitempty"`
	RevenueEntryID            *uuid.UUID       `json:"revenue_entry_id,omitempty"`
	Version                   int              `json:"version"`
	CreatedAt                 time.Time        `json:"created_at"`
	Charges                   []ChargeResponse `json:"charges,omitempty"`
}

// ToInvoiceResponse converts an invoice with whatever charges it carries
func ToInvoiceResponse(inv *settlement.Invoice) InvoiceResponse {
	charges := make([]ChargeResponse, 0, len(inv.Charges))
	for i := range inv.Charges {
		charges = append(charges, ToChargeResponse(&inv.Charges[i]))
	}
	return InvoiceResponse{
		ID:                        inv.ID,
		InvoiceNumber:             inv.InvoiceNumber,
		PatientID:                 inv.PatientID,
		EncounterID:               inv.EncounterID,
		Status:                    string(inv.Status),
		ClaimStatus:               string(inv.ClaimStatus),
		Currency:                  string(inv.Currency),
		TotalAmount:               inv.TotalAmount,
		DiscountAmount:            inv.DiscountAmount,
		NetAmount:                 inv.NetAmount(),
		PaidAmount:                inv.PaidAmount,
		CreditedAmount:            inv.CreditedAmount,
		PatientShare:              inv.PatientShare,
		InsuranceShare:            inv.InsuranceShare,
		RemainingTotal:            inv.RemainingTotal(),
		RemainingPatientLiability: inv.RemainingPatientLiability(),
		IssuedAt:                  inv.IssuedAt,
		CancelledAt:               inv.CancelledAt,
		CancelReason:              inv.CancelReason,
		RevenueEntryID:            inv.RevenueEntryID,
		Version:                   inv.Version,
		CreatedAt:                 inv.CreatedAt,
		Charges:                   charges,
	}
}

// PaymentResponse is the wire form of a payment
type PaymentResponse struct {
	ID                uuid.UUID       `json:"id"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	CashierID         uuid.UUID       `json:"cashier_id"`
	Reference         string          `json:"reference,omitempty"`
	PaidAt            time.Time       `json:"paid_at"`
	AccountingEntryID *uuid.UUID      `json:"accounting_entry_id,omitempty"`
}

// ToPaymentResponse converts a payment
func ToPaymentResponse(p *settlement.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID,
		InvoiceID:         p.InvoiceID,
		Amount:            p.Amount,
		Method:            string(p.Method),
		CashierID:         p.CashierID,
		Reference:         p.Reference,
		PaidAt:            p.PaidAt,
		AccountingEntryID: p.AccountingEntryID,
	}
}

// CreditNoteResponse is the wire form of a credit note
type CreditNoteResponse struct {
	ID                uuid.UUID       `json:"id"`
	CreditNoteNumber  string          `json:"credit_note_number"`
	OriginalInvoiceID uuid.UUID       `json:"original_invoice_id"`
	Amount            decimal.Decimal `json:"amount"`
	Reason            string          `json:"reason"`
	AccountingEntryID *uuid.UUID      `json:"accounting_entry_id,omitempty"`
	CreatedBy         *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToCreditNoteResponse converts a credit note
func ToCreditNoteResponse(n *settlement.CreditNote) CreditNoteResponse {
	return CreditNoteResponse{
		ID:                n.ID,
		CreditNoteNumber:  n.CreditNoteNumber,
		OriginalInvoiceID: n.OriginalInvoiceID,
		Amount:            n.Amount,
		Reason:            n.Reason,
		AccountingEntryID: n.AccountingEntryID,
		CreatedBy:         n.CreatedBy,
		CreatedAt:         n.CreatedAt,
	}
}

// InvoiceDetailResponse is an invoice with its payments and credit notes
type InvoiceDetailResponse struct {
	InvoiceResponse
	Payments    []PaymentResponse    `json:"payments"`
	CreditNotes []CreditNoteResponse `json:"credit_notes"`
}

// ToInvoiceDetailResponse converts an invoice detail
func ToInvoiceDetailResponse(d *appsettlement.InvoiceDetail) InvoiceDetailResponse {
	resp := InvoiceDetailResponse{
		InvoiceResponse: ToInvoiceResponse(d.Invoice),
		Payments:        make([]PaymentResponse, 0, len(d.Payments)),
		CreditNotes:     make([]CreditNoteResponse, 0, len(d.CreditNotes)),
	}
	for _, p := range d.Payments {
		resp.Payments = append(resp.Payments, ToPaymentResponse(p))
	}
	for _, n := range d.CreditNotes {
		resp.CreditNotes = append(resp.CreditNotes, ToCreditNoteResponse(n))
	}
	resp.RemainingPatientLiability = d.RemainingPatientLiability
	resp.RemainingTotal = d.RemainingTotal
	return resp
}
