package printing

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/settlement"
)

func sampleReceipt() *appsettlement.Receipt {
	return &appsettlement.Receipt{
		PaymentID:          uuid.MustParse("5f0c2a9e-0000-4000-8000-000000000001"),
		InvoiceNumber:      "INV-2026-000042",
		PatientID:          uuid.New(),
		Method:             settlement.PaymentMethodCash,
		Reference:          "<drawer 2>",
		CashierID:          uuid.MustParse("0b7d9c11-0000-4000-8000-000000000002"),
		PaidAt:             time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Amount:             decimal.NewFromInt(150000),
		AmountFormatted:    "IQD 150,000.00",
		InvoiceStatus:      settlement.InvoiceStatusPaid,
		Remaining:          decimal.Zero,
		RemainingFormatted: "IQD 0.00",
	}
}

func TestReceiptHTML(t *testing.T) {
	html, err := ReceiptHTML("RS Sehat", sampleReceipt())
	require.NoError(t, err)

	assert.Contains(t, html, "<title>RS Sehat</title>")
	assert.Contains(t, html, "INV-2026-000042")
	assert.Contains(t, html, "2026-03-14 09:30")
	assert.Contains(t, html, "IQD 150,000.00")
	assert.Contains(t, html, "5f0c2a9e")
	assert.Contains(t, html, "&lt;drawer 2&gt;", "reference is escaped")
	assert.NotContains(t, html, "<drawer 2>")
}

func TestReceiptHTML_OmitsEmptyReference(t *testing.T) {
	r := sampleReceipt()
	r.Reference = ""
	html, err := ReceiptHTML("RS Sehat", r)
	require.NoError(t, err)
	assert.NotContains(t, html, "Reference")
}

func TestPrintParams(t *testing.T) {
	roll := printParams(PaperReceipt80)
	assert.InDelta(t, 80/25.4, roll.PaperWidth, 0.001)
	assert.InDelta(t, continuousHeightMM/25.4, roll.PaperHeight, 0.001)
	assert.InDelta(t, 3/25.4, roll.MarginLeft, 0.001)
	assert.True(t, roll.PrintBackground)

	sheet := printParams(Paper{WidthMM: 210, HeightMM: 297})
	assert.InDelta(t, 297/25.4, sheet.PaperHeight, 0.001)
	assert.Zero(t, sheet.MarginTop)
}

type capturingRenderer struct {
	html  string
	paper Paper
}

func (c *capturingRenderer) RenderPDF(_ context.Context, html string, paper Paper) ([]byte, error) {
	c.html, c.paper = html, paper
	return []byte("%PDF-1.4"), nil
}

func TestReceiptPrinter(t *testing.T) {
	renderer := &capturingRenderer{}
	pdf, err := NewReceiptPrinter(renderer, "").PrintReceipt(t.Context(), sampleReceipt())
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.4"), pdf)
	assert.Equal(t, PaperReceipt80, renderer.paper)
	assert.Contains(t, renderer.html, "Payment Receipt")
}

func TestChromeRenderer_EmptyDocument(t *testing.T) {
	r := NewChromeRenderer(ChromeConfig{}, nil)
	defer r.Close()
	assert.Equal(t, defaultRenderTimeout, r.config.Timeout)

	_, err := r.RenderPDF(t.Context(), "  ", PaperReceipt80)
	assert.ErrorContains(t, err, "empty document")
}

func TestChromeRenderer_RendersWithLocalChrome(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	found := false
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("no Chrome binary on PATH")
	}

	r := NewChromeRenderer(ChromeConfig{NoSandbox: true, Timeout: time.Minute}, zap.NewNop())
	defer r.Close()

	html, err := ReceiptHTML("RS Sehat", sampleReceipt())
	require.NoError(t, err)
	pdf, err := r.RenderPDF(t.Context(), html, PaperReceipt80)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}
