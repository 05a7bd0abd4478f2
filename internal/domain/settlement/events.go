package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeInvoiceIssued       = "settlement.invoice_issued"
	EventTypeInvoiceCancelled    = "settlement.invoice_cancelled"
	EventTypePaymentRecorded     = "settlement.payment_recorded"
	EventTypePatientShareSettled = "settlement.patient_share_settled"
	EventTypeCreditNoteCreated   = "settlement.credit_note_created"
	AggregateTypeInvoice         = "Invoice"
	AggregateTypeCreditNote      = "CreditNote"
)

// InvoiceIssuedEvent is raised when an invoice leaves DRAFT
type InvoiceIssuedEvent struct {
	shared.EventHeader
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PatientID     uuid.UUID       `json:"patient_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceIssuedEvent creates an InvoiceIssuedEvent
func NewInvoiceIssuedEvent(i *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		EventHeader:   shared.NewEventHeader(EventTypeInvoiceIssued, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:     i.ID,
		InvoiceNumber: i.InvoiceNumber,
		PatientID:     i.PatientID,
		TotalAmount:   i.TotalAmount,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.EventHeader
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason"`
}

// NewInvoiceCancelledEvent creates an InvoiceCancelledEvent
func NewInvoiceCancelledEvent(i *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		EventHeader: shared.NewEventHeader(EventTypeInvoiceCancelled, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:   i.ID,
		Reason:      i.CancelReason,
	}
}

// PaymentRecordedEvent is raised when a positive payment is committed
type PaymentRecordedEvent struct {
	shared.EventHeader
	InvoiceID uuid.UUID       `json:"invoice_id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	CashierID uuid.UUID       `json:"cashier_id"`
	Status    InvoiceStatus   `json:"status"`
}

// NewPaymentRecordedEvent creates a PaymentRecordedEvent
func NewPaymentRecordedEvent(i *Invoice, p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		EventHeader: shared.NewEventHeader(EventTypePaymentRecorded, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:   i.ID,
		PaymentID:   p.ID,
		Amount:      p.Amount,
		Method:      p.Method,
		CashierID:   p.CashierID,
		Status:      i.Status,
	}
}

// PatientShareSettledEvent is raised when the patient's share becomes fully
// paid, even if the insurer share is still outstanding.
type PatientShareSettledEvent struct {
	shared.EventHeader
	InvoiceID       uuid.UUID   `json:"invoice_id"`
	EncounterID     uuid.UUID   `json:"encounter_id"`
	PatientID       uuid.UUID   `json:"patient_id"`
	SettledOrderIDs []uuid.UUID `json:"settled_order_ids"`
	SettledAt       time.Time   `json:"settled_at"`
}

// NewPatientShareSettledEvent creates a PatientShareSettledEvent
func NewPatientShareSettledEvent(i *Invoice, orderIDs []uuid.UUID, at time.Time) *PatientShareSettledEvent {
	return &PatientShareSettledEvent{
		EventHeader:     shared.NewEventHeader(EventTypePatientShareSettled, AggregateTypeInvoice, i.ID, i.TenantID),
		InvoiceID:       i.ID,
		EncounterID:     i.EncounterID,
		PatientID:       i.PatientID,
		SettledOrderIDs: orderIDs,
		SettledAt:       at,
	}
}

// CreditNoteCreatedEvent is raised when a credit note is posted
type CreditNoteCreatedEvent struct {
	shared.EventHeader
	CreditNoteID      uuid.UUID       `json:"credit_note_id"`
	OriginalInvoiceID uuid.UUID       `json:"original_invoice_id"`
	Amount            decimal.Decimal `json:"amount"`
}

// NewCreditNoteCreatedEvent creates a CreditNoteCreatedEvent
func NewCreditNoteCreatedEvent(c *CreditNote) *CreditNoteCreatedEvent {
	return &CreditNoteCreatedEvent{
		EventHeader:       shared.NewEventHeader(EventTypeCreditNoteCreated, AggregateTypeCreditNote, c.ID, c.TenantID),
		CreditNoteID:      c.ID,
		OriginalInvoiceID: c.OriginalInvoiceID,
		Amount:            c.Amount,
	}
}
