package settlement

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	pageSizeAll         = 500
	defaultWorklistSize = 200
)

// InvoiceDetail is an invoice with its charges, payments and credit notes
type InvoiceDetail struct {
	Invoice     *settlement.Invoice      `json:"invoice"`
	Payments    []*settlement.Payment    `json:"payments"`
	CreditNotes []*settlement.CreditNote `json:"credit_notes"`
	// RemainingPatientLiability is what the patient still owes
	RemainingPatientLiability decimal.Decimal `json:"remaining_patient_liability"`
	RemainingTotal            decimal.Decimal `json:"remaining_total"`
}

// StatementLine is one invoice on a patient statement
type StatementLine struct {
	InvoiceID     uuid.UUID                `json:"invoice_id"`
	InvoiceNumber string                   `json:"invoice_number"`
	Date          time.Time                `json:"date"`
	Status        settlement.InvoiceStatus `json:"status"`
	Net           decimal.Decimal          `json:"net"`
	PatientShare  decimal.Decimal          `json:"patient_share"`
	Paid          decimal.Decimal          `json:"paid"`
	Credited      decimal.Decimal          `json:"credited"`
	Outstanding   decimal.Decimal          `json:"outstanding"`
}

// PatientStatement lists a patient's invoices over a date range
type PatientStatement struct {
	PatientID uuid.UUID       `json:"patient_id"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Lines     []StatementLine `json:"lines"`
	TotalNet  decimal.Decimal `json:"total_net"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	// Outstanding is the patient liability still open on the listed invoices
	Outstanding          decimal.Decimal `json:"outstanding"`
	OutstandingFormatted string          `json:"outstanding_formatted"`
}

// Receipt is the printable confirmation of a payment
type Receipt struct {
	PaymentID          uuid.UUID                `json:"payment_id"`
	InvoiceNumber      string                   `json:"invoice_number"`
	PatientID          uuid.UUID                `json:"patient_id"`
	Method             settlement.PaymentMethod `json:"method"`
	Reference          string                   `json:"reference,omitempty"`
	CashierID          uuid.UUID                `json:"cashier_id"`
	PaidAt             time.Time                `json:"paid_at"`
	Amount             decimal.Decimal          `json:"amount"`
	AmountFormatted    string                   `json:"amount_formatted"`
	InvoiceStatus      settlement.InvoiceStatus `json:"invoice_status"`
	Remaining          decimal.Decimal          `json:"remaining"`
	RemainingFormatted string                   `json:"remaining_formatted"`
	EntryID            *uuid.UUID               `json:"entry_id,omitempty"`
}

// WorklistItem is an invoice waiting for cashier action
type WorklistItem struct {
	InvoiceID                 uuid.UUID                `json:"invoice_id"`
	InvoiceNumber             string                   `json:"invoice_number"`
	PatientID                 uuid.UUID                `json:"patient_id"`
	EncounterID               uuid.UUID                `json:"encounter_id"`
	Status                    settlement.InvoiceStatus `json:"status"`
	RemainingPatientLiability decimal.Decimal          `json:"remaining_patient_liability"`
	// NeedsConfirmation marks zero-liability invoices awaiting a zero payment
	NeedsConfirmation bool      `json:"needs_confirmation"`
	CreatedAt         time.Time `json:"created_at"`
}

// OutstandingLiability is the discharge check of a patient
type OutstandingLiability struct {
	PatientID uuid.UUID       `json:"patient_id"`
	Amount    decimal.Decimal `json:"amount"`
	Threshold decimal.Decimal `json:"threshold"`
	Blocked   bool            `json:"blocked"`
	Invoices  int             `json:"invoices"`
}

// MethodTotal sums the payments of one method
type MethodTotal struct {
	Method settlement.PaymentMethod `json:"method"`
	Count  int                      `json:"count"`
	Amount decimal.Decimal          `json:"amount"`
}

// DailyReport summarises one day of settlement activity
type DailyReport struct {
	Date              time.Time       `json:"date"`
	Payments          []MethodTotal   `json:"payments"`
	TotalCollected    decimal.Decimal `json:"total_collected"`
	InvoicesIssued    int             `json:"invoices_issued"`
	InvoicedAmount    decimal.Decimal `json:"invoiced_amount"`
	CreditNotes       int             `json:"credit_notes"`
	CreditNotesAmount decimal.Decimal `json:"credit_notes_amount"`
}

// GetInvoice returns an invoice with its settlement history
func (s *SettlementService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceDetail, error) {
	invoice, err := s.reads.Invoices().FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	charges, err := s.reads.Charges().FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	invoice.Charges = charges
	payments, err := s.reads.Payments().FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	notes, err := s.reads.CreditNotes().FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{
		Invoice:                   invoice,
		Payments:                  payments,
		CreditNotes:               notes,
		RemainingPatientLiability: invoice.RemainingPatientLiability(),
		RemainingTotal:            invoice.RemainingTotal(),
	}, nil
}

// ListInvoices lists invoices matching filter
func (s *SettlementService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter settlement.InvoiceFilter) (shared.Paginated[*settlement.Invoice], error) {
	filter.Filter = filter.Filter.Normalize()
	invoices, total, err := s.reads.Invoices().FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*settlement.Invoice]{}, err
	}
	return shared.NewPaginated(invoices, total, filter.Page, filter.PageSize), nil
}

// ListPayments lists payments matching filter
func (s *SettlementService) ListPayments(ctx context.Context, tenantID uuid.UUID, filter settlement.PaymentFilter) (shared.Paginated[*settlement.Payment], error) {
	filter.Filter = filter.Filter.Normalize()
	payments, total, err := s.reads.Payments().FindAll(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[*settlement.Payment]{}, err
	}
	return shared.NewPaginated(payments, total, filter.Page, filter.PageSize), nil
}

// PatientStatement lists the patient's invoices created between from and
// to, both inclusive dates
func (s *SettlementService) PatientStatement(ctx context.Context, tenantID, patientID uuid.UUID, from, to time.Time) (*PatientStatement, error) {
	from, to = accounting.DateOnly(from), accounting.DateOnly(to)
	if to.Before(from) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Statement end date is before its start date")
	}
	end := to.AddDate(0, 0, 1)
	invoices, err := collectAll(func(f shared.Filter) ([]*settlement.Invoice, int64, error) {
		return s.reads.Invoices().FindAll(ctx, tenantID, settlement.InvoiceFilter{
			Filter:    withOrder(f, "created_at", "asc"),
			PatientID: &patientID,
			From:      &from,
			To:        &end,
		})
	})
	if err != nil {
		return nil, err
	}

	st := &PatientStatement{
		PatientID:   patientID,
		From:        from,
		To:          to,
		Lines:       make([]StatementLine, 0, len(invoices)),
		TotalNet:    decimal.Zero,
		TotalPaid:   decimal.Zero,
		Outstanding: decimal.Zero,
	}
	currency := s.opts.DefaultCurrency
	for _, inv := range invoices {
		line := StatementLine{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Date:          inv.CreatedAt,
			Status:        inv.Status,
			Net:           inv.NetAmount(),
			PatientShare:  inv.EffectivePatientShare(),
			Paid:          inv.PaidAmount,
			Credited:      inv.CreditedAmount,
			Outstanding:   decimal.Zero,
		}
		if inv.Status != settlement.InvoiceStatusCancelled {
			line.Outstanding = inv.RemainingPatientLiability()
			st.TotalNet = st.TotalNet.Add(line.Net)
		}
		st.TotalPaid = st.TotalPaid.Add(inv.PaidAmount)
		st.Outstanding = st.Outstanding.Add(line.Outstanding)
		st.Lines = append(st.Lines, line)
		currency = inv.Currency
	}
	st.OutstandingFormatted = valueobject.NewMoney(st.Outstanding, currency).Format(s.opts.Locale)
	return st, nil
}

// PaymentReceipt renders the receipt of a payment
func (s *SettlementService) PaymentReceipt(ctx context.Context, tenantID, paymentID uuid.UUID) (*Receipt, error) {
	payment, err := s.reads.Payments().FindByID(ctx, tenantID, paymentID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.reads.Invoices().FindByID(ctx, tenantID, payment.InvoiceID)
	if err != nil {
		return nil, err
	}
	remaining := invoice.RemainingPatientLiability()
	return &Receipt{
		PaymentID:          payment.ID,
		InvoiceNumber:      invoice.InvoiceNumber,
		PatientID:          invoice.PatientID,
		Method:             payment.Method,
		Reference:          payment.Reference,
		CashierID:          payment.CashierID,
		PaidAt:             payment.PaidAt,
		Amount:             payment.Amount,
		AmountFormatted:    valueobject.NewMoney(payment.Amount, invoice.Currency).Format(s.opts.Locale),
		InvoiceStatus:      invoice.Status,
		Remaining:          remaining,
		RemainingFormatted: valueobject.NewMoney(remaining, invoice.Currency).Format(s.opts.Locale),
		EntryID:            payment.AccountingEntryID,
	}, nil
}

// CashierWorklist lists invoices where the patient still owes money or a
// zero-liability invoice still awaits confirmation, oldest first
func (s *SettlementService) CashierWorklist(ctx context.Context, tenantID uuid.UUID) ([]WorklistItem, error) {
	candidates, err := s.reads.Invoices().FindWorklist(ctx, tenantID, s.opts.WorklistLimit)
	if err != nil {
		return nil, err
	}
	items := make([]WorklistItem, 0, len(candidates))
	for _, inv := range candidates {
		if !inv.NeedsCashierAttention() {
			continue
		}
		remaining := inv.RemainingPatientLiability()
		items = append(items, WorklistItem{
			InvoiceID:                 inv.ID,
			InvoiceNumber:             inv.InvoiceNumber,
			PatientID:                 inv.PatientID,
			EncounterID:               inv.EncounterID,
			Status:                    inv.Status,
			RemainingPatientLiability: remaining,
			NeedsConfirmation:         inv.EffectivePatientShare().IsZero(),
			CreatedAt:                 inv.CreatedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// OutstandingPatientLiability sums what the patient still owes across open
// invoices; discharge is blocked above the configured threshold
func (s *SettlementService) OutstandingPatientLiability(ctx context.Context, tenantID, patientID uuid.UUID) (*OutstandingLiability, error) {
	invoices, err := s.reads.Invoices().FindOpenByPatient(ctx, tenantID, patientID)
	if err != nil {
		return nil, err
	}
	out := &OutstandingLiability{
		PatientID: patientID,
		Amount:    decimal.Zero,
		Threshold: s.opts.DischargeBlockThreshold,
	}
	for _, inv := range invoices {
		remaining := inv.RemainingPatientLiability()
		if valueobject.IsNegligible(remaining) {
			continue
		}
		out.Amount = out.Amount.Add(remaining)
		out.Invoices++
	}
	out.Blocked = out.Amount.GreaterThan(out.Threshold)
	return out, nil
}

// DailyReport summarises payments, issued invoices and credit notes of one
// UTC day
func (s *SettlementService) DailyReport(ctx context.Context, tenantID uuid.UUID, date time.Time) (*DailyReport, error) {
	day := accounting.DateOnly(date)
	next := day.AddDate(0, 0, 1)

	payments, err := collectAll(func(f shared.Filter) ([]*settlement.Payment, int64, error) {
		return s.reads.Payments().FindAll(ctx, tenantID, settlement.PaymentFilter{
			Filter: withOrder(f, "paid_at", "asc"),
			From:   &day,
			To:     &next,
		})
	})
	if err != nil {
		return nil, err
	}
	issued, err := collectAll(func(f shared.Filter) ([]*settlement.Invoice, int64, error) {
		return s.reads.Invoices().FindAll(ctx, tenantID, settlement.InvoiceFilter{
			Filter:     withOrder(f, "issued_at", "asc"),
			IssuedFrom: &day,
			IssuedTo:   &next,
		})
	})
	if err != nil {
		return nil, err
	}
	notes, err := s.reads.CreditNotes().FindCreatedBetween(ctx, tenantID, day, next)
	if err != nil {
		return nil, err
	}

	report := &DailyReport{
		Date:              day,
		TotalCollected:    decimal.Zero,
		InvoicedAmount:    decimal.Zero,
		CreditNotesAmount: decimal.Zero,
	}
	byMethod := make(map[settlement.PaymentMethod]*MethodTotal)
	for _, p := range payments {
		mt, ok := byMethod[p.Method]
		if !ok {
			mt = &MethodTotal{Method: p.Method, Amount: decimal.Zero}
			byMethod[p.Method] = mt
		}
		mt.Count++
		mt.Amount = mt.Amount.Add(p.Amount)
		report.TotalCollected = report.TotalCollected.Add(p.Amount)
	}
	for _, mt := range byMethod {
		report.Payments = append(report.Payments, *mt)
	}
	sort.Slice(report.Payments, func(i, j int) bool {
		return report.Payments[i].Method < report.Payments[j].Method
	})
	for _, inv := range issued {
		report.InvoicesIssued++
		report.InvoicedAmount = report.InvoicedAmount.Add(inv.NetAmount())
	}
	for _, n := range notes {
		report.CreditNotes++
		report.CreditNotesAmount = report.CreditNotesAmount.Add(n.Amount)
	}
	return report, nil
}

// collectAll pages through a listing until every row is loaded
func collectAll[T any](page func(shared.Filter) ([]T, int64, error)) ([]T, error) {
	var all []T
	f := shared.Filter{Page: 1, PageSize: pageSizeAll}
	for {
		items, total, err := page(f)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) == 0 || int64(len(all)) >= total {
			return all, nil
		}
		f.Page++
	}
}

func withOrder(f shared.Filter, by, dir string) shared.Filter {
	f.OrderBy = by
	f.OrderDir = dir
	return f
}
