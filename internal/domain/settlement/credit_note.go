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

// CreditNote reverses part or all of an issued invoice through the ledger.
// The original invoice and its charges are left untouched.
type CreditNote struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	CreditNoteNumber  string
	OriginalInvoiceID uuid.UUID
	Amount            decimal.Decimal
	Reason            string
	AccountingEntryID *uuid.UUID
	CreatedBy         *uuid.UUID
	CreatedAt         time.Time
}

// NewCreditNote validates a credit note against the original invoice and
// the amount already credited on it.
func NewCreditNote(original *Invoice, amount decimal.Decimal, reason string, alreadyCredited decimal.Decimal, createdBy uuid.UUID) (*CreditNote, error) {
	if original == nil {
		return nil, shared.ErrNotFound
	}
	if !original.Status.WasIssued() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Credit notes require an issued invoice, invoice is %s", original.Status))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Credit note amount must be positive")
	}
	available := valueobject.NonNegative(original.NetAmount().Sub(alreadyCredited))
	if valueobject.ExceedsBy(amount, available) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Credit note %s exceeds creditable amount %s", amount.String(), available.String()))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Credit note reason is required")
	}

	cn := &CreditNote{
		ID:                uuid.New(),
		TenantID:          original.TenantID,
		OriginalInvoiceID: original.ID,
		Amount:            amount,
		Reason:            reason,
		CreatedAt:         time.Now().UTC(),
	}
	if createdBy != uuid.Nil {
		cn.CreatedBy = &createdBy
	}
	cn.CreditNoteNumber = fmt.Sprintf("CN-%s-%s", cn.CreatedAt.Format("20060102"), strings.ToUpper(cn.ID.String()[:8]))
	return cn, nil
}

// LinkEntry records the offsetting ledger entry
func (c *CreditNote) LinkEntry(entryID uuid.UUID) error {
	if c.AccountingEntryID != nil {
		return shared.ErrImmutableRecord
	}
	c.AccountingEntryID = &entryID
	return nil
}
