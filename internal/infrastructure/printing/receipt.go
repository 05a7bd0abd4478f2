package printing

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/google/uuid"

	appsettlement "github.com/medierp/ledger/internal/application/settlement"
)

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"short": func(id uuid.UUID) string { return id.String()[:8] },
	"stamp": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><title>{{.Title}}</title>
<style>
body { font-family: "DejaVu Sans Mono", monospace; font-size: 11px; margin: 0; }
h1 { font-size: 13px; text-align: center; margin: 0 0 6px; }
table { width: 100%; border-collapse: collapse; }
td.v { text-align: right; }
tr.total td { border-top: 1px dashed #000; font-weight: bold; padding-top: 4px; }
p.foot { text-align: center; margin-top: 8px; }
</style></head>
<body>
<h1>{{.Title}}</h1>
<table>
<tr><td>Receipt</td><td class="v">{{short .R.PaymentID}}</td></tr>
<tr><td>Invoice</td><td class="v">{{.R.InvoiceNumber}}</td></tr>
<tr><td>Date</td><td class="v">{{stamp .R.PaidAt}}</td></tr>
<tr><td>Method</td><td class="v">{{.R.Method}}</td></tr>
{{- if .R.Reference}}
<tr><td>Reference</td><td class="v">{{.R.Reference}}</td></tr>
{{- end}}
<tr><td>Cashier</td><td class="v">{{short .R.CashierID}}</td></tr>
<tr class="total"><td>Paid</td><td class="v">{{.R.AmountFormatted}}</td></tr>
<tr><td>Remaining</td><td class="v">{{.R.RemainingFormatted}}</td></tr>
<tr><td>Status</td><td class="v">{{.R.InvoiceStatus}}</td></tr>
</table>
<p class="foot">Thank you</p>
</body></html>
`))

// ReceiptHTML renders a payment receipt for an 80mm roll
func ReceiptHTML(title string, r *appsettlement.Receipt) (string, error) {
	var buf bytes.Buffer
	err := receiptTemplate.Execute(&buf, struct {
		Title string
		R     *appsettlement.Receipt
	}{Title: title, R: r})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PDFRenderer prints HTML
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string, paper Paper) ([]byte, error)
}

// ReceiptPrinter produces receipt PDFs headed with the facility name
type ReceiptPrinter struct {
	renderer PDFRenderer
	title    string
}

// NewReceiptPrinter creates a ReceiptPrinter
func NewReceiptPrinter(renderer PDFRenderer, title string) *ReceiptPrinter {
	if title == "" {
		title = "Payment Receipt"
	}
	return &ReceiptPrinter{renderer: renderer, title: title}
}

// PrintReceipt renders r as a PDF
func (p *ReceiptPrinter) PrintReceipt(ctx context.Context, r *appsettlement.Receipt) ([]byte, error) {
	html, err := ReceiptHTML(p.title, r)
	if err != nil {
		return nil, err
	}
	return p.renderer.RenderPDF(ctx, html, PaperReceipt80)
}
