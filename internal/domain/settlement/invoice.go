package settlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusIssued        InvoiceStatus = "ISSUED"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true for PAID and CANCELLED
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanCancel returns true if plain cancellation is allowed
func (s InvoiceStatus) CanCancel() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusIssued || s == InvoiceStatusPartiallyPaid
}

// WasIssued returns true if the invoice has left DRAFT and is not cancelled
func (s InvoiceStatus) WasIssued() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartiallyPaid || s == InvoiceStatusPaid
}

// ClaimStatus tracks the insurer claim for the insurance share
type ClaimStatus string

const (
	ClaimStatusNone      ClaimStatus = "NONE"
	ClaimStatusPending   ClaimStatus = "PENDING"
	ClaimStatusSubmitted ClaimStatus = "SUBMITTED"
	ClaimStatusApproved  ClaimStatus = "APPROVED"
	ClaimStatusRejected  ClaimStatus = "REJECTED"
)

// IsValid checks if the claim status is valid
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusNone, ClaimStatusPending, ClaimStatusSubmitted,
		ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// LiabilitySplit is the outcome of pricing an encounter: what is owed and by whom.
// A nil PatientShare means no split was recorded and the patient owes everything.
type LiabilitySplit struct {
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	PatientShare   *decimal.Decimal
	InsuranceShare decimal.Decimal
}

// Invoice is the settlement aggregate of an encounter
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber  string
	PatientID      uuid.UUID
	EncounterID    uuid.UUID
	Status         InvoiceStatus
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	PaidAmount     decimal.Decimal
	// CreditedAmount is the sum of the credit notes raised against the invoice
	CreditedAmount decimal.Decimal
	PatientShare   *decimal.Decimal
	InsuranceShare decimal.Decimal
	ClaimStatus    ClaimStatus
	Currency       valueobject.Currency
	IssuedAt       *time.Time
	CancelledAt    *time.Time
	CancelReason   string
	// RevenueEntryID is the entry that recognized the net amount as revenue
	RevenueEntryID *uuid.UUID
	Charges        []Charge
}

// NewInvoice creates a DRAFT invoice from a liability split
func NewInvoice(tenantID, patientID, encounterID uuid.UUID, currency valueobject.Currency, split LiabilitySplit) (*Invoice, error) {
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Patient is required")
	}
	if split.TotalAmount.IsNegative() || split.DiscountAmount.IsNegative() || split.InsuranceShare.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Invoice amounts cannot be negative")
	}
	if split.DiscountAmount.GreaterThan(split.TotalAmount) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Discount cannot exceed total amount")
	}
	if split.PatientShare != nil {
		if split.PatientShare.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Patient share cannot be negative")
		}
		sum := split.PatientShare.Add(split.InsuranceShare)
		if !valueobject.IsNegligible(sum.Sub(split.TotalAmount)) {
			return nil, shared.NewDomainError(shared.CodeInvalidAmount,
				fmt.Sprintf("Patient share %s plus insurance share %s must equal total %s",
					split.PatientShare.String(), split.InsuranceShare.String(), split.TotalAmount.String()))
		}
	} else if split.InsuranceShare.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Insurance share requires a patient share")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PatientID:           patientID,
		EncounterID:         encounterID,
		Status:              InvoiceStatusDraft,
		TotalAmount:         split.TotalAmount,
		DiscountAmount:      split.DiscountAmount,
		PaidAmount:          decimal.Zero,
		CreditedAmount:      decimal.Zero,
		InsuranceShare:      split.InsuranceShare,
		ClaimStatus:         ClaimStatusNone,
		Currency:            currency,
	}
	if split.PatientShare != nil {
		share := *split.PatientShare
		inv.PatientShare = &share
	}
	if inv.InsuranceShare.IsPositive() {
		inv.ClaimStatus = ClaimStatusPending
	}
	inv.InvoiceNumber = fmt.Sprintf("INV-%s-%s", inv.CreatedAt.Format("20060102"), strings.ToUpper(inv.ID.String()[:8]))
	return inv, nil
}

// AttachCharges links charges to the invoice
func (i *Invoice) AttachCharges(charges []Charge) {
	for idx := range charges {
		id := i.ID
		charges[idx].InvoiceID = &id
	}
	i.Charges = append(i.Charges, charges...)
}

// NetAmount returns total minus discount
func (i *Invoice) NetAmount() decimal.Decimal {
	return i.TotalAmount.Sub(i.DiscountAmount)
}

// RemainingTotal returns total − discount − credited − paid, never negative
func (i *Invoice) RemainingTotal() decimal.Decimal {
	return valueobject.NonNegative(i.NetAmount().Sub(i.CreditedAmount).Sub(i.PaidAmount))
}

// EffectivePatientShare returns the recorded patient share, or the total
// amount for invoices that never recorded a split.
func (i *Invoice) EffectivePatientShare() decimal.Decimal {
	if i.PatientShare == nil {
		return i.TotalAmount
	}
	return *i.PatientShare
}

// RemainingPatientLiability returns max(0, patientShare − paid), capped at RemainingTotal
func (i *Invoice) RemainingPatientLiability() decimal.Decimal {
	remaining := valueobject.NonNegative(i.EffectivePatientShare().Sub(i.PaidAmount))
	if total := i.RemainingTotal(); remaining.GreaterThan(total) {
		return total
	}
	return remaining
}

// PatientShareSettled reports whether the patient owes nothing more
func (i *Invoice) PatientShareSettled() bool {
	share := i.EffectivePatientShare()
	return valueobject.IsNegligible(share.Sub(decimal.Min(i.PaidAmount, share))) ||
		valueobject.IsNegligible(i.RemainingTotal())
}

// NeedsCashierAttention is the cashier worklist predicate: either the
// patient still owes money after payments and credit notes, or there is no
// patient liability and the invoice still waits for a zero-amount
// confirmation.
func (i *Invoice) NeedsCashierAttention() bool {
	if i.Status == InvoiceStatusCancelled {
		return false
	}
	if i.RemainingPatientLiability().GreaterThan(valueobject.Epsilon) {
		return true
	}
	return i.EffectivePatientShare().IsZero() && (i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusIssued)
}

// NeedsRevenueRecognition reports whether the net amount of an invoice that
// left DRAFT has not been posted as revenue yet
func (i *Invoice) NeedsRevenueRecognition() bool {
	return i.RevenueEntryID == nil && i.Status.WasIssued() && i.NetAmount().IsPositive()
}

// LinkRevenueEntry records the entry that recognized the invoice revenue.
// It is saved with the transition that moved the invoice out of DRAFT and
// does not bump the version on its own.
func (i *Invoice) LinkRevenueEntry(entryID uuid.UUID) error {
	if i.RevenueEntryID != nil {
		return shared.ErrImmutableRecord
	}
	i.RevenueEntryID = &entryID
	return nil
}

// ApplyCredit records a credit note amount. The amount is validated by
// NewCreditNote; the status is left as is.
func (i *Invoice) ApplyCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Credit amount must be positive")
	}
	if valueobject.ExceedsBy(i.CreditedAmount.Add(amount), i.NetAmount()) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Credits cannot exceed the net amount")
	}
	i.CreditedAmount = i.CreditedAmount.Add(amount)
	i.Touch()
	i.IncrementVersion()
	return nil
}

// Issue transitions DRAFT -> ISSUED
func (i *Invoice) Issue() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError(shared.CodeInvalidState, "Only draft invoices can be issued")
	}
	now := time.Now().UTC()
	i.Status = InvoiceStatusIssued
	i.IssuedAt = &now
	i.Touch()
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceIssuedEvent(i))
	return nil
}

// SettlementResult describes the effect of applying a payment
type SettlementResult struct {
	PreviousStatus InvoiceStatus
	Status         InvoiceStatus
	PaidAmount     decimal.Decimal
	// Applied is the amount added to PaidAmount, at most the remaining
	// patient liability
	Applied decimal.Decimal
	// PatientShareJustSettled is true when this application completed the patient's share
	PatientShareJustSettled bool
}

// ApplyPayment applies amount to the invoice. A zero amount only
// re-derives the status and is idempotent. An amount within Epsilon above
// the remaining patient liability is clamped to it; result.Applied is what
// must be recorded and posted.
func (i *Invoice) ApplyPayment(amount decimal.Decimal) (SettlementResult, error) {
	result := SettlementResult{PreviousStatus: i.Status, Applied: decimal.Zero}
	if i.Status == InvoiceStatusCancelled {
		return result, shared.NewDomainError(shared.CodeInvalidState, "Cancelled invoices do not accept payments")
	}
	if amount.IsNegative() {
		return result, shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount cannot be negative")
	}
	if !valueobject.FitsScale(amount) {
		return result, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Payment amount %s has more than %d decimal places", amount.String(), valueobject.AmountScale))
	}
	if i.Status == InvoiceStatusPaid && amount.IsPositive() {
		return result, shared.NewDomainError(shared.CodeInvalidState, "Invoice is already paid")
	}
	remaining := i.RemainingPatientLiability()
	overpayment := func() error {
		return shared.NewDomainError(shared.CodeOverpayment,
			fmt.Sprintf("Payment %s exceeds remaining patient liability %s", amount.String(), remaining.String())).
			WithDetail("remaining_patient_liability", remaining.String())
	}
	if valueobject.ExceedsBy(amount, remaining) {
		return result, overpayment()
	}
	applied := decimal.Min(amount, remaining)
	if amount.IsPositive() && !applied.IsPositive() {
		return result, overpayment()
	}

	settledBefore := i.PatientShareSettled()
	if applied.IsPositive() {
		i.PaidAmount = i.PaidAmount.Add(applied)
	}
	i.recomputeStatus()

	if i.Status != result.PreviousStatus || applied.IsPositive() {
		i.Touch()
		i.IncrementVersion()
	}
	result.Status = i.Status
	result.PaidAmount = i.PaidAmount
	result.Applied = applied
	result.PatientShareJustSettled = applied.IsPositive() && !settledBefore && i.PatientShareSettled()
	return result, nil
}

// recomputeStatus derives the status from the total remaining across
// patient and insurer.
func (i *Invoice) recomputeStatus() {
	if i.Status == InvoiceStatusCancelled {
		return
	}
	if i.NetAmount().Sub(i.CreditedAmount).Sub(i.PaidAmount).LessThanOrEqual(valueobject.Epsilon) {
		i.Status = InvoiceStatusPaid
		return
	}
	i.Status = InvoiceStatusPartiallyPaid
}

// Cancel transitions DRAFT|ISSUED|PARTIALLY_PAID -> CANCELLED
func (i *Invoice) Cancel(reason string) error {
	if !i.Status.CanCancel() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}
	now := time.Now().UTC()
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = strings.TrimSpace(reason)
	i.Touch()
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoiceCancelledEvent(i))
	return nil
}

// UpdateClaimStatus records the insurer claim progress
func (i *Invoice) UpdateClaimStatus(status ClaimStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid claim status")
	}
	if i.InsuranceShare.IsZero() && status != ClaimStatusNone {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoice has no insurance share")
	}
	i.ClaimStatus = status
	i.Touch()
	i.IncrementVersion()
	return nil
}
