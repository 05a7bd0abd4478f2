package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/shopspring/decimal"
)

// recognizeRevenue posts Dr PATIENT_RECEIVABLE / Cr SERVICE_REVENUE for the
// net amount the first time an invoice leaves DRAFT. Payments and credit
// notes later settle the receivable. The caller saves the invoice.
func (s *SettlementService) recognizeRevenue(ctx context.Context, repos uow.Repositories, invoice *settlement.Invoice, by uuid.UUID) error {
	if !invoice.NeedsRevenueRecognition() {
		return nil
	}
	accounts, err := s.poster.ResolveAccounts(ctx, repos, invoice.TenantID,
		accounting.KeyPatientReceivable, accounting.KeyServiceRevenue)
	if err != nil {
		return err
	}
	at := time.Now().UTC()
	if invoice.IssuedAt != nil {
		at = *invoice.IssuedAt
	}
	amount := invoice.NetAmount()
	memo := fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
	entry, err := s.poster.Post(ctx, repos, appaccounting.PostingRequest{
		TenantID:     invoice.TenantID,
		EntryDate:    at,
		Description:  memo,
		SourceModule: accounting.SourceSettlement,
		SourceID:     invoice.ID.String(),
		Lines: []accounting.LineInput{
			accounting.Debit(accounts[accounting.KeyPatientReceivable], amount, memo),
			accounting.Credit(accounts[accounting.KeyServiceRevenue], amount, memo),
		},
		CreatedBy: by,
	})
	if err != nil {
		return err
	}
	return invoice.LinkRevenueEntry(entry.ID)
}

// reverseRevenue takes the uncollected part of a cancelled invoice back out
// of revenue and the receivable
func (s *SettlementService) reverseRevenue(ctx context.Context, repos uow.Repositories, invoice *settlement.Invoice, amount decimal.Decimal) error {
	accounts, err := s.poster.ResolveAccounts(ctx, repos, invoice.TenantID,
		accounting.KeyServiceRevenue, accounting.KeyPatientReceivable)
	if err != nil {
		return err
	}
	at := time.Now().UTC()
	if invoice.CancelledAt != nil {
		at = *invoice.CancelledAt
	}
	memo := fmt.Sprintf("Invoice %s cancelled: %s", invoice.InvoiceNumber, invoice.CancelReason)
	_, err = s.poster.Post(ctx, repos, appaccounting.PostingRequest{
		TenantID:     invoice.TenantID,
		EntryDate:    at,
		Description:  memo,
		SourceModule: accounting.SourceSettlement,
		SourceID:     invoice.ID.String() + ":cancel",
		Lines: []accounting.LineInput{
			accounting.Debit(accounts[accounting.KeyServiceRevenue], amount, memo),
			accounting.Credit(accounts[accounting.KeyPatientReceivable], amount, memo),
		},
		CreatedBy: invoiceActor(invoice),
	})
	return err
}

func invoiceActor(invoice *settlement.Invoice) uuid.UUID {
	if invoice.CreatedBy != nil {
		return *invoice.CreatedBy
	}
	return uuid.Nil
}
