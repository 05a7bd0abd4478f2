package settlement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateCreditNoteInput credits part of an issued invoice
type CreateCreditNoteInput struct {
	TenantID          uuid.UUID
	OriginalInvoiceID uuid.UUID
	Amount            decimal.Decimal
	Reason            string
	CreatedBy         uuid.UUID
}

// CreateCreditNote posts an offsetting CREDIT_NOTE entry against an issued
// invoice. The charges and the invoice status are not modified; the
// credited amount of the invoice grows by the note so that settlement sees
// less owed. The invoice row is locked so concurrent credit notes cannot
// exceed its net amount.
func (s *SettlementService) CreateCreditNote(ctx context.Context, in CreateCreditNoteInput) (*settlement.CreditNote, error) {
	var note *settlement.CreditNote
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		original, err := lockInvoice(ctx, repos, in.TenantID, in.OriginalInvoiceID)
		if err != nil {
			return err
		}
		note, err = settlement.NewCreditNote(original, in.Amount, in.Reason, original.CreditedAmount, in.CreatedBy)
		if err != nil {
			return err
		}

		accounts, err := s.poster.ResolveAccounts(ctx, repos, in.TenantID, accounting.KeySalesReturns, accounting.KeyPatientReceivable)
		if err != nil {
			return err
		}
		memo := fmt.Sprintf("Credit note %s for invoice %s: %s", note.CreditNoteNumber, original.InvoiceNumber, note.Reason)
		entry, err := s.poster.Post(ctx, repos, appaccounting.PostingRequest{
			TenantID:     in.TenantID,
			EntryDate:    note.CreatedAt,
			Description:  memo,
			SourceModule: accounting.SourceCreditNote,
			SourceID:     note.ID.String(),
			Lines: []accounting.LineInput{
				accounting.Debit(accounts[accounting.KeySalesReturns], note.Amount, memo),
				accounting.Credit(accounts[accounting.KeyPatientReceivable], note.Amount, memo),
			},
			CreatedBy: in.CreatedBy,
		})
		if err != nil {
			return err
		}
		if err := note.LinkEntry(entry.ID); err != nil {
			return err
		}
		if err := repos.CreditNotes().Create(ctx, note); err != nil {
			return fmt.Errorf("insert credit note: %w", err)
		}
		if err := original.ApplyCredit(note.Amount); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, original); err != nil {
			return err
		}
		return repos.Events().Record(ctx, settlement.NewCreditNoteCreatedEvent(note))
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Credit note created",
		zap.String("credit_note_number", note.CreditNoteNumber),
		zap.String("invoice_id", note.OriginalInvoiceID.String()),
		zap.String("amount", note.Amount.String()),
	)
	return note, nil
}
