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
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordPaymentInput is a cashier's payment against an invoice
type RecordPaymentInput struct {
	TenantID  uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Method    settlement.PaymentMethod
	Reference string
	CashierID uuid.UUID
	// PaidAt defaults to now
	PaidAt time.Time
}

// PaymentResult is the invoice state after a payment
type PaymentResult struct {
	InvoiceID  uuid.UUID                `json:"invoice_id"`
	Status     settlement.InvoiceStatus `json:"status"`
	PaidAmount decimal.Decimal          `json:"paid_amount"`
	// Amount is what was recorded, the tendered amount clamped to the
	// remaining patient liability
	Amount decimal.Decimal `json:"amount"`
	// PaymentID and EntryID are nil for zero-amount confirmations
	PaymentID           *uuid.UUID  `json:"payment_id,omitempty"`
	EntryID             *uuid.UUID  `json:"entry_id,omitempty"`
	PatientShareSettled bool        `json:"patient_share_settled"`
	SettledOrderIDs     []uuid.UUID `json:"settled_order_ids,omitempty"`
}

// RecordPayment applies a payment to an invoice. The invoice row stays
// locked until the payment, its ledger entry, the dependent order flags
// and the outbox events are committed together.
func (s *SettlementService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record_payment",
		telemetry.SpanAttrTenantID, in.TenantID.String(),
		telemetry.SpanAttrInvoiceID, in.InvoiceID.String(),
		telemetry.SpanAttrPaymentMethod, in.Method.String(),
		telemetry.SpanAttrAmount, in.Amount.String(),
	)
	defer span.End()

	var result *PaymentResult
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationRecordPayment, "settlement"), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos uow.Repositories) error {
			var err error
			result, err = s.recordPayment(c, repos, in)
			return err
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		s.logger.Warn("Payment rejected",
			zap.String("invoice_id", in.InvoiceID.String()),
			zap.String("amount", in.Amount.String()),
			zap.Error(operationErr),
		)
		return nil, operationErr
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceStatus, result.Status.String())
	if result.PaymentID != nil {
		telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, result.PaymentID.String())
		if s.metrics != nil {
			s.metrics.RecordPayment(ctx, in.TenantID, in.Method.String(), result.Status.String(), result.Amount)
		}
		s.logger.Info("Payment recorded",
			zap.String("invoice_id", in.InvoiceID.String()),
			zap.String("payment_id", result.PaymentID.String()),
			zap.String("amount", result.Amount.String()),
			zap.String("method", in.Method.String()),
			zap.String("status", result.Status.String()),
		)
	} else {
		s.logger.Info("Invoice settlement confirmed",
			zap.String("invoice_id", in.InvoiceID.String()),
			zap.String("status", result.Status.String()),
		)
	}
	if result.PatientShareSettled {
		s.logger.Info("Patient share settled",
			zap.String("invoice_id", in.InvoiceID.String()),
			zap.Int("released_orders", len(result.SettledOrderIDs)),
		)
	}
	return result, nil
}

func (s *SettlementService) recordPayment(ctx context.Context, repos uow.Repositories, in RecordPaymentInput) (*PaymentResult, error) {
	invoice, err := lockInvoice(ctx, repos, in.TenantID, in.InvoiceID)
	if err != nil {
		return nil, err
	}

	previousVersion := invoice.Version
	applied, err := invoice.ApplyPayment(in.Amount)
	if err != nil {
		return nil, err
	}
	// an invalid payment rolls the transaction back, so the in-memory
	// invoice change is never saved
	var payment *settlement.Payment
	if applied.Applied.IsPositive() {
		payment, err = settlement.NewPayment(invoice, applied.Applied, in.Method, in.CashierID, in.Reference, in.PaidAt)
		if err != nil {
			return nil, err
		}
	}
	// a draft leaves DRAFT through its first payment or confirmation; the
	// revenue entry is saved with that change
	if invoice.Version != previousVersion {
		if err := s.recognizeRevenue(ctx, repos, invoice, in.CashierID); err != nil {
			return nil, err
		}
	}
	result := &PaymentResult{
		InvoiceID:  invoice.ID,
		Status:     applied.Status,
		PaidAmount: applied.PaidAmount,
		Amount:     decimal.Zero,
	}

	if payment == nil {
		if invoice.Version != previousVersion {
			if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	entry, err := s.postPayment(ctx, repos, invoice, payment)
	if err != nil {
		return nil, err
	}
	if err := payment.LinkEntry(entry.ID); err != nil {
		return nil, err
	}
	if err := repos.Payments().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}
	result.PaymentID = &payment.ID
	result.EntryID = &entry.ID
	result.Amount = payment.Amount
	invoice.AddDomainEvent(settlement.NewPaymentRecordedEvent(invoice, payment))

	if applied.PatientShareJustSettled {
		ids, err := s.releaseDependentOrders(ctx, repos, invoice, payment.PaidAt)
		if err != nil {
			return nil, err
		}
		result.PatientShareSettled = true
		result.SettledOrderIDs = ids
	}
	if err := uow.RecordAggregateEvents(ctx, repos, invoice); err != nil {
		return nil, fmt.Errorf("record payment events: %w", err)
	}
	return result, nil
}

// postPayment debits the account of the payment method and credits the
// patient receivable
func (s *SettlementService) postPayment(ctx context.Context, repos uow.Repositories, invoice *settlement.Invoice, payment *settlement.Payment) (*accounting.AccountingEntry, error) {
	accounts, err := s.poster.ResolveAccounts(ctx, repos, invoice.TenantID,
		payment.Method.DebitAccountKey(), accounting.KeyPatientReceivable)
	if err != nil {
		return nil, err
	}
	memo := fmt.Sprintf("Payment %s for invoice %s", payment.Method, invoice.InvoiceNumber)
	return s.poster.Post(ctx, repos, appaccounting.PostingRequest{
		TenantID:     invoice.TenantID,
		EntryDate:    payment.PaidAt,
		Description:  memo,
		SourceModule: accounting.SourceCashier,
		SourceID:     payment.ID.String(),
		Lines: []accounting.LineInput{
			accounting.Debit(accounts[payment.Method.DebitAccountKey()], payment.Amount, memo),
			accounting.Credit(accounts[accounting.KeyPatientReceivable], payment.Amount, memo),
		},
		CreatedBy: payment.CashierID,
	})
}

// releaseDependentOrders flags the encounter's waiting lab and radiology
// orders as paid and raises the patient-share-settled event
func (s *SettlementService) releaseDependentOrders(ctx context.Context, repos uow.Repositories, invoice *settlement.Invoice, at time.Time) ([]uuid.UUID, error) {
	orders, err := repos.DependentOrders().FindUnsettledByEncounter(ctx, invoice.TenantID, invoice.EncounterID)
	if err != nil {
		return nil, err
	}
	changed := make([]*settlement.DependentOrder, 0, len(orders))
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		if o.MarkSettled(invoice.ID, at) {
			changed = append(changed, o)
			ids = append(ids, o.ID)
		}
	}
	if len(changed) > 0 {
		if err := repos.DependentOrders().MarkSettled(ctx, changed); err != nil {
			return nil, fmt.Errorf("mark dependent orders settled: %w", err)
		}
	}
	invoice.AddDomainEvent(settlement.NewPatientShareSettledEvent(invoice, ids, at.UTC()))
	return ids, nil
}
