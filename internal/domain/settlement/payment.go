package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a payment was tendered
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodInsurance    PaymentMethod = "INSURANCE"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodInsurance:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// DebitAccountKey returns the system account debited when money arrives by this method
func (m PaymentMethod) DebitAccountKey() accounting.SystemAccountKey {
	switch m {
	case PaymentMethodCash:
		return accounting.KeyCashMain
	case PaymentMethodCard:
		return accounting.KeyCardClearing
	default:
		return accounting.KeyBank
	}
}

// Payment is a settlement applied to an invoice. Payments are never
// modified once recorded.
type Payment struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	InvoiceID         uuid.UUID
	Amount            decimal.Decimal
	Method            PaymentMethod
	CashierID         uuid.UUID
	Reference         string
	PaidAt            time.Time
	AccountingEntryID *uuid.UUID
	CreatedAt         time.Time
}

// NewPayment creates a positive payment against inv
func NewPayment(inv *Invoice, amount decimal.Decimal, method PaymentMethod, cashierID uuid.UUID, reference string, paidAt time.Time) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Recorded payments must be positive")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid payment method")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	return &Payment{
		ID:        uuid.New(),
		TenantID:  inv.TenantID,
		InvoiceID: inv.ID,
		Amount:    amount,
		Method:    method,
		CashierID: cashierID,
		Reference: strings.TrimSpace(reference),
		PaidAt:    paidAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LinkEntry records the ledger entry of the payment
func (p *Payment) LinkEntry(entryID uuid.UUID) error {
	if p.AccountingEntryID != nil {
		return shared.ErrImmutableRecord
	}
	p.AccountingEntryID = &entryID
	return nil
}

// SumPayments returns the total of payments
func SumPayments(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
