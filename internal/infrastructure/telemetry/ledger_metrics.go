package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LedgerMetrics records business counters of the posting engine.
type LedgerMetrics struct {
	entriesPosted     *Counter
	postingRejected   *Counter
	payments          *Counter
	paymentAmount     *Histogram
	shiftClosings     *Counter
	shiftVariance     *Histogram
	depreciationAsset *Counter
}

// NewLedgerMetrics registers the instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &LedgerMetrics{}
	var err error

	if m.entriesPosted, err = NewCounter(meter, "ledger_entries_posted_total",
		"Accounting entries committed", "{entries}"); err != nil {
		return nil, err
	}
	if m.postingRejected, err = NewCounter(meter, "ledger_postings_rejected_total",
		"Posting attempts rejected by validation", "{entries}"); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter, "settlement_payments_total",
		"Payments applied to invoices", "{payments}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewHistogram(meter, HistogramOpts{
		Name:        "settlement_payment_amount",
		Description: "Distribution of payment amounts",
		Unit:        "{currency}",
		Boundaries:  []float64{1000, 5000, 10000, 50000, 100000, 500000, 1000000},
	}); err != nil {
		return nil, err
	}
	if m.shiftClosings, err = NewCounter(meter, "cashier_shift_closings_total",
		"Cashier shifts closed", "{shifts}"); err != nil {
		return nil, err
	}
	if m.shiftVariance, err = NewHistogram(meter, HistogramOpts{
		Name:        "cashier_shift_variance",
		Description: "Absolute cash count variance per closed shift",
		Unit:        "{currency}",
		Boundaries:  []float64{0, 1, 10, 100, 1000, 10000},
	}); err != nil {
		return nil, err
	}
	if m.depreciationAsset, err = NewCounter(meter, "depreciation_assets_total",
		"Assets processed by depreciation runs", "{assets}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordEntryPosted counts a committed entry
func (m *LedgerMetrics) RecordEntryPosted(ctx context.Context, tenantID uuid.UUID, source string) {
	m.entriesPosted.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrSourceModule.String(source))
}

// RecordPostingRejected counts a rejected posting
func (m *LedgerMetrics) RecordPostingRejected(ctx context.Context, tenantID uuid.UUID, source, code string) {
	m.postingRejected.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrSourceModule.String(source),
		AttrOutcome.String(code),
	)
}

// RecordPayment counts a payment and samples its amount
func (m *LedgerMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, method, status string, amount decimal.Decimal) {
	m.payments.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(method),
		AttrInvoiceStatus.String(status),
	)
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), AttrPaymentMethod.String(method))
}

// RecordShiftClosed counts a closing and samples its variance
func (m *LedgerMetrics) RecordShiftClosed(ctx context.Context, tenantID uuid.UUID, difference decimal.Decimal) {
	kind := "balanced"
	switch {
	case difference.IsPositive():
		kind = "surplus"
	case difference.IsNegative():
		kind = "shortage"
	}
	m.shiftClosings.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrVarianceKind.String(kind))
	m.shiftVariance.Record(ctx, difference.Abs().InexactFloat64(), AttrVarianceKind.String(kind))
}

// RecordDepreciation counts assets by run outcome
func (m *LedgerMetrics) RecordDepreciation(ctx context.Context, tenantID uuid.UUID, posted, skipped, failed int) {
	tenant := AttrTenantID.String(tenantID.String())
	m.depreciationAsset.Add(ctx, int64(posted), tenant, AttrOutcome.String("posted"))
	m.depreciationAsset.Add(ctx, int64(skipped), tenant, AttrOutcome.String("skipped"))
	m.depreciationAsset.Add(ctx, int64(failed), tenant, AttrOutcome.String("failed"))
}
