// Package settlement implements invoicing, payment recording and credit
// notes on top of the ledger poster.
package settlement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	"github.com/medierp/ledger/internal/application/uow"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Options tunes settlement behaviour
type Options struct {
	// DischargeBlockThreshold is the outstanding patient liability above
	// which discharge is blocked
	DischargeBlockThreshold decimal.Decimal
	DefaultCurrency         valueobject.Currency
	// Locale is used to format amounts on receipts and statements
	Locale language.Tag
	// WorklistLimit caps the invoices listed on the cashier worklist
	WorklistLimit int
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		DischargeBlockThreshold: valueobject.Epsilon,
		DefaultCurrency:         valueobject.DefaultCurrency,
		Locale:                  language.English,
		WorklistLimit:           defaultWorklistSize,
	}
}

// CreateInvoiceInput describes the invoice of an encounter
type CreateInvoiceInput struct {
	TenantID    uuid.UUID
	EncounterID uuid.UUID
	PatientID   uuid.UUID
	Currency    valueobject.Currency
	// Split overrides the configured LiabilitySplitter
	Split     settlement.LiabilitySplitter
	Issue     bool
	CreatedBy uuid.UUID
}

// AddChargeInput is a billable line reported by a clinical module
type AddChargeInput struct {
	TenantID         uuid.UUID
	EncounterID      uuid.UUID
	ServiceType      settlement.ServiceType
	Description      string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	DependentOrderID *uuid.UUID
}

// SettlementService handles the invoice lifecycle
type SettlementService struct {
	scope    uow.TransactionScope
	reads    uow.Repositories
	poster   *appaccounting.Poster
	splitter settlement.LiabilitySplitter
	opts     Options
	logger   *zap.Logger
	metrics  *telemetry.LedgerMetrics
}

// NewSettlementService creates a SettlementService. A nil splitter charges
// the patient for everything.
func NewSettlementService(
	scope uow.TransactionScope,
	reads uow.Repositories,
	poster *appaccounting.Poster,
	splitter settlement.LiabilitySplitter,
	opts Options,
	logger *zap.Logger,
) *SettlementService {
	if splitter == nil {
		splitter = settlement.PatientPaysAll{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = valueobject.DefaultCurrency
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}
	if opts.WorklistLimit <= 0 {
		opts.WorklistLimit = defaultWorklistSize
	}
	return &SettlementService{
		scope:    scope,
		reads:    reads,
		poster:   poster,
		splitter: splitter,
		opts:     opts,
		logger:   logger,
	}
}

// SetMetrics sets the business metrics collector
func (s *SettlementService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// AddCharge records an uninvoiced charge for an encounter
func (s *SettlementService) AddCharge(ctx context.Context, in AddChargeInput) (*settlement.Charge, error) {
	charge, err := settlement.NewCharge(in.TenantID, in.EncounterID, in.ServiceType, in.Description, in.Quantity, in.UnitPrice)
	if err != nil {
		return nil, err
	}
	charge.DependentOrderID = in.DependentOrderID
	if err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		return repos.Charges().Create(ctx, charge)
	}); err != nil {
		return nil, err
	}
	return charge, nil
}

// RegisterDependentOrder records a lab or radiology order that waits for
// the patient's payment
func (s *SettlementService) RegisterDependentOrder(ctx context.Context, tenantID, encounterID uuid.UUID, kind settlement.DependentOrderKind) (*settlement.DependentOrder, error) {
	if kind != settlement.DependentOrderLab && kind != settlement.DependentOrderRadiology {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown dependent order kind")
	}
	if encounterID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Encounter is required")
	}
	order := &settlement.DependentOrder{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EncounterID: encounterID,
		Kind:        kind,
	}
	if err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		return repos.DependentOrders().Create(ctx, order)
	}); err != nil {
		return nil, err
	}
	return order, nil
}

// CreateInvoiceForEncounter invoices every uninvoiced charge of an encounter
func (s *SettlementService) CreateInvoiceForEncounter(ctx context.Context, in CreateInvoiceInput) (*settlement.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "create_invoice",
		telemetry.SpanAttrTenantID, in.TenantID.String(),
	)
	defer span.End()

	splitter := in.Split
	if splitter == nil {
		splitter = s.splitter
	}
	currency := in.Currency
	if currency == "" {
		currency = s.opts.DefaultCurrency
	}

	var invoice *settlement.Invoice
	var operationErr error
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerOperationLabels(telemetry.OperationCreateInvoice, "settlement"), func(c context.Context) {
		operationErr = s.scope.Execute(c, func(repos uow.Repositories) error {
			charges, err := repos.Charges().FindUninvoicedByEncounter(c, in.TenantID, in.EncounterID)
			if err != nil {
				return err
			}
			if len(charges) == 0 {
				return shared.ErrNoCharges
			}
			split, err := splitter.Split(c, in.TenantID, in.PatientID, in.EncounterID, charges)
			if err != nil {
				return fmt.Errorf("split liability: %w", err)
			}
			invoice, err = settlement.NewInvoice(in.TenantID, in.PatientID, in.EncounterID, currency, split)
			if err != nil {
				return err
			}
			invoice.SetCreatedBy(in.CreatedBy)
			invoice.AttachCharges(charges)
			if in.Issue {
				if err := invoice.Issue(); err != nil {
					return err
				}
				if err := s.recognizeRevenue(c, repos, invoice, in.CreatedBy); err != nil {
					return err
				}
			}
			if err := repos.Invoices().Create(c, invoice); err != nil {
				return err
			}
			ids := make([]uuid.UUID, len(charges))
			for i, ch := range charges {
				ids[i] = ch.ID
			}
			if err := repos.Charges().AttachToInvoice(c, in.TenantID, invoice.ID, ids); err != nil {
				return err
			}
			return uow.RecordAggregateEvents(c, repos, invoice)
		})
	})
	if operationErr != nil {
		telemetry.RecordError(span, operationErr)
		return nil, operationErr
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrInvoiceStatus, invoice.Status.String(),
	)
	s.logger.Info("Invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("status", invoice.Status.String()),
		zap.Int("charges", len(invoice.Charges)),
		zap.String("total", invoice.TotalAmount.String()),
	)
	return invoice, nil
}

// IssueInvoice moves a draft invoice to ISSUED and posts its revenue
func (s *SettlementService) IssueInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*settlement.Invoice, error) {
	return s.mutate(ctx, tenantID, invoiceID, func(repos uow.Repositories, inv *settlement.Invoice) error {
		if err := inv.Issue(); err != nil {
			return err
		}
		return s.recognizeRevenue(ctx, repos, inv, invoiceActor(inv))
	})
}

// CancelInvoice cancels an unpaid or partially paid invoice. Payments
// already posted stand; the revenue still uncollected is reversed.
func (s *SettlementService) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*settlement.Invoice, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Cancellation reason is required")
	}
	inv, err := s.mutate(ctx, tenantID, invoiceID, func(repos uow.Repositories, inv *settlement.Invoice) error {
		uncollected := inv.RemainingTotal()
		recognized := inv.RevenueEntryID != nil
		if err := inv.Cancel(reason); err != nil {
			return err
		}
		if !recognized || valueobject.IsNegligible(uncollected) {
			return nil
		}
		return s.reverseRevenue(ctx, repos, inv, uncollected)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Invoice cancelled", zap.String("invoice_number", inv.InvoiceNumber), zap.String("reason", inv.CancelReason))
	return inv, nil
}

// UpdateClaimStatus records insurer claim progress
func (s *SettlementService) UpdateClaimStatus(ctx context.Context, tenantID, invoiceID uuid.UUID, status settlement.ClaimStatus) (*settlement.Invoice, error) {
	return s.mutate(ctx, tenantID, invoiceID, func(_ uow.Repositories, inv *settlement.Invoice) error {
		return inv.UpdateClaimStatus(status)
	})
}

// mutate applies fn to the locked invoice and saves it with its events
func (s *SettlementService) mutate(ctx context.Context, tenantID, invoiceID uuid.UUID, fn func(uow.Repositories, *settlement.Invoice) error) (*settlement.Invoice, error) {
	var invoice *settlement.Invoice
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		invoice, err = lockInvoice(ctx, repos, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := fn(repos, invoice); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return err
		}
		return uow.RecordAggregateEvents(ctx, repos, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// lockInvoice takes the invoice row lock by id, then checks the tenant
func lockInvoice(ctx context.Context, repos uow.Repositories, tenantID, invoiceID uuid.UUID) (*settlement.Invoice, error) {
	invoice, err := repos.Invoices().FindByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !invoice.BelongsTo(tenantID) {
		return nil, shared.ErrTenantMismatch
	}
	return invoice, nil
}
