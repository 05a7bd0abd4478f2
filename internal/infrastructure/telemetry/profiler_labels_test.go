package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"operation":  "record_payment",
		"Tenant-ID":  "t1",
		"invoice_id": "should be dropped",
		"empty":      "",
		"route":      strings.Repeat("x", MaxLabelValueLength+10),
	})

	assert.Equal(t, []string{
		"operation", "record_payment",
		"route", strings.Repeat("x", MaxLabelValueLength),
		"tenant_id", "t1",
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "cash_shift", sanitizeLabelKey("Cash Shift"))
	assert.Equal(t, "a_b", sanitizeLabelKey("a-b!"))
	assert.Equal(t, "", sanitizeLabelKey("%%"))
}

func TestWithProfilingLabels(t *testing.T) {
	var got string
	WithProfilingLabels(context.Background(), LedgerOperationLabels(OperationPostEntry, "ledger"), func(ctx context.Context) {
		got, _ = pprof.Label(ctx, ProfilingLabelOperation)
	})
	assert.Equal(t, OperationPostEntry, got)

	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestOperationLabels(t *testing.T) {
	labels := OperationLabels(OperationCloseShift, map[string]string{ProfilingLabelOperation: "overridden", "module": "cashier"})
	assert.Equal(t, OperationCloseShift, labels[ProfilingLabelOperation])
	assert.Equal(t, "cashier", labels[ProfilingLabelModule])

	http := HTTPRequestLabels("InvoiceHandler", "/invoices/:id/payments", "POST", "t1")
	assert.Len(t, http, 4)
}
