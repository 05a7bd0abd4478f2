package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/medierp/ledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	invoiceID := uuid.New()
	_, span := telemetry.StartServiceSpan(context.Background(), "settlement", "record_payment",
		telemetry.SpanAttrInvoiceID, invoiceID,
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, "60.000",
		telemetry.SpanAttrPaymentMethod, "CASH",
		"ignored",
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "settlement.record_payment", spans[0].Name())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, invoiceID.String(), attrs[telemetry.SpanAttrInvoiceID])
	assert.Equal(t, "60.000", attrs[telemetry.SpanAttrAmount])
	assert.Equal(t, "CASH", attrs[telemetry.SpanAttrPaymentMethod])
	assert.NotContains(t, attrs, "ignored")
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "ledger.post_entry")
	telemetry.RecordError(span, errors.New("period closed"))
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "period closed", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
}

func TestAddEventAndIDs(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "cashier.close_shift")
	telemetry.AddEvent(span, "cashier_locked", telemetry.SpanAttrCashierID, "c-5")
	assert.NotEmpty(t, telemetry.TraceID(ctx))
	assert.NotEmpty(t, telemetry.SpanID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "cashier_locked", spans[0].Events()[0].Name)

	assert.Empty(t, telemetry.TraceID(context.Background()))
	assert.Empty(t, telemetry.SpanID(context.Background()))
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}
