package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appevent "github.com/medierp/ledger/internal/application/event"
	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/accounting"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/event"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
	"github.com/medierp/ledger/internal/interfaces/http/middleware"
	"github.com/medierp/ledger/tests/testutil"
)

// tenantHeader lets a test act as another tenant
const tenantHeader = "X-Test-Tenant"

type api struct {
	t       *testing.T
	ledger  *testutil.Ledger
	router  *gin.Engine
	archive *stubArchive
	printer *stubPrinter
}

// stubPrinter fails when err is set
type stubPrinter struct {
	printed []string
	err     error
}

func (s *stubPrinter) PrintReceipt(_ context.Context, r *appsettlement.Receipt) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.printed = append(s.printed, r.InvoiceNumber)
	return []byte("%PDF-1.4 " + r.InvoiceNumber), nil
}

// stubArchive knows the periods listed in links
type stubArchive struct {
	links map[uuid.UUID]string
}

func (s *stubArchive) DownloadURL(_ context.Context, _, periodID uuid.UUID) (string, time.Time, error) {
	link, ok := s.links[periodID]
	if !ok {
		return "", time.Time{}, shared.NewDomainError(shared.CodeNotFound, "No archived report for this period")
	}
	return link, time.Now().Add(time.Minute), nil
}

func newAPI(t *testing.T) *api {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	l := testutil.NewSeededLedger(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		tenantID := l.TenantID
		if v := c.GetHeader(tenantHeader); v != "" {
			tenantID = uuid.MustParse(v)
		}
		c.Set(middleware.TenantIDKey, tenantID)
		c.Set(middleware.UserIDKey, l.UserID)
		c.Next()
	})

	v1 := r.Group("/api/v1")
	NewAccountingHandler(l.Chart, l.Calendar, l.Entries).RegisterRoutes(v1)
	printer := &stubPrinter{}
	NewSettlementHandler(l.Settlement).WithPrinter(printer).RegisterRoutes(v1)
	NewCashierHandler(l.Shifts, l.Settlement).RegisterRoutes(v1)
	NewAssetHandler(l.Depreciation).RegisterRoutes(v1)
	archive := &stubArchive{links: map[uuid.UUID]string{}}
	NewReportHandler(l.Entries, l.Settlement).WithArchive(archive).RegisterRoutes(v1)
	NewOutboxHandler(appevent.NewOutboxService(event.NewGormOutboxRepository(l.DB), nil)).RegisterRoutes(v1)

	return &api{t: t, ledger: l, router: r, archive: archive, printer: printer}
}

func (a *api) do(method, path string, body any) *httptest.ResponseRecorder {
	return a.doAs(uuid.Nil, method, path, body)
}

func (a *api) doAs(tenantID uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var headers map[string]string
	if tenantID != uuid.Nil {
		headers = map[string]string{tenantHeader: tenantID.String()}
	}
	return testutil.DoJSON(a.t, a.router, method, "/api/v1"+path, body, headers)
}

func today() string {
	return time.Now().UTC().Format(dto.DateLayout)
}

func TestAccountingAPI_ChartAndManualEntries(t *testing.T) {
	a := newAPI(t)
	cash := a.ledger.AccountID(accounting.KeyCashMain)

	w := a.do(http.MethodGet, "/accounts?type=ASSET", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), testutil.DecodeEnvelope(t, w).Meta.Total)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/accounts", map[string]string{"code": "1101", "name": "Dup", "type": "ASSET"}),
		http.StatusConflict, shared.CodeConflict)

	supplies := testutil.RequireData[dto.AccountResponse](t, a.do(http.MethodPost, "/accounts", map[string]string{
		"code": "6300", "name": "Medical Supplies", "type": "EXPENSE",
	}), http.StatusCreated)

	entry := testutil.RequireData[dto.EntryResponse](t, a.do(http.MethodPost, "/entries", map[string]any{
		"entry_date":  today(),
		"description": "Supplies bought with petty cash",
		"lines": []map[string]string{
			{"account_id": supplies.ID.String(), "debit": "25.50"},
			{"account_id": cash.String(), "credit": "25.50"},
		},
	}), http.StatusCreated)
	assert.Equal(t, string(accounting.SourceManual), entry.SourceModule)
	assert.True(t, entry.TotalDebit.Equal(decimal.RequireFromString("25.50")))
	assert.Len(t, entry.Lines, 2)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/entries", map[string]any{
		"entry_date":  today(),
		"description": "Off by one",
		"lines": []map[string]string{
			{"account_id": supplies.ID.String(), "debit": "10"},
			{"account_id": cash.String(), "credit": "9"},
		},
	}), http.StatusUnprocessableEntity, shared.CodeUnbalancedEntry)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/entries", map[string]any{
		"entry_date":  today(),
		"description": "Negative",
		"lines": []map[string]string{
			{"account_id": supplies.ID.String(), "debit": "-10"},
			{"account_id": cash.String(), "credit": "-10"},
		},
	}), http.StatusBadRequest, dto.ErrCodeValidation)

	tb := testutil.RequireData[dto.TrialBalanceResponse](t, a.do(http.MethodGet, "/reports/trial-balance", nil), http.StatusOK)
	assert.True(t, tb.Balanced)
	assert.True(t, tb.TotalDebit.Equal(decimal.RequireFromString("25.50")))

	w = a.do(http.MethodGet, "/reports/trial-balance?format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, XLSXContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "trial-balance-")
	assert.NotZero(t, w.Body.Len())
}

func TestAccountingAPI_ReverseEntry(t *testing.T) {
	a := newAPI(t)
	cash := a.ledger.AccountID(accounting.KeyCashMain)
	bank := a.ledger.AccountID(accounting.KeyBank)

	entry := testutil.RequireData[dto.EntryResponse](t, a.do(http.MethodPost, "/entries", map[string]any{
		"entry_date":  today(),
		"description": "Cash deposit",
		"lines": []map[string]string{
			{"account_id": bank.String(), "debit": "100"},
			{"account_id": cash.String(), "credit": "100"},
		},
	}), http.StatusCreated)

	reversal := testutil.RequireData[dto.EntryResponse](t, a.do(http.MethodPost, "/entries/"+entry.ID.String()+"/reverse",
		map[string]string{"reason": "Deposit bounced"}), http.StatusCreated)
	require.NotNil(t, reversal.ReversalOfID)
	assert.Equal(t, entry.ID, *reversal.ReversalOfID)

	assert.True(t, a.ledger.AccountBalance(t, accounting.KeyBank).IsZero())
	a.ledger.RequireBalanced(t)
}

func TestAccountingAPI_FinancialYears(t *testing.T) {
	a := newAPI(t)

	current := testutil.RequireData[dto.FinancialYearResponse](t, a.do(http.MethodGet, "/financial-years/current", nil), http.StatusOK)
	assert.Equal(t, a.ledger.Year.ID, current.ID)
	assert.Equal(t, string(accounting.FinancialYearStatusOpen), current.Status)

	periods := testutil.RequireData[[]dto.FinancialPeriodResponse](t, a.do(http.MethodGet, "/financial-years/"+current.ID.String()+"/periods", nil), http.StatusOK)
	assert.Len(t, periods, 12)

	testutil.RequireErrorCode(t, a.do(http.MethodGet, "/financial-years/"+uuid.NewString(), nil), http.StatusNotFound, shared.CodeNotFound)
	testutil.RequireErrorCode(t, a.do(http.MethodGet, "/financial-years/not-a-uuid", nil), http.StatusBadRequest, dto.ErrCodeValidation)
}

func TestSettlementAPI_PaymentFlow(t *testing.T) {
	a := newAPI(t)
	encounterID := uuid.New()
	patientID := uuid.New()

	for _, price := range []string{"60", "40"} {
		testutil.RequireData[dto.ChargeResponse](t, a.do(http.MethodPost, "/charges", map[string]string{
			"encounter_id": encounterID.String(),
			"service_type": "SERVICE",
			"description":  "Consultation",
			"quantity":     "1",
			"unit_price":   price,
		}), http.StatusCreated)
	}

	invoice := testutil.RequireData[dto.InvoiceResponse](t, a.do(http.MethodPost, "/invoices", map[string]any{
		"encounter_id": encounterID.String(),
		"patient_id":   patientID.String(),
		"issue":        true,
	}), http.StatusCreated)
	assert.Equal(t, string(settlement.InvoiceStatusIssued), invoice.Status)
	assert.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(100)))
	assert.Len(t, invoice.Charges, 2)

	payPath := "/invoices/" + invoice.ID.String() + "/payments"
	testutil.RequireErrorCode(t, a.do(http.MethodPost, payPath, map[string]string{"amount": "100.01", "method": "CASH"}),
		http.StatusUnprocessableEntity, shared.CodeOverpayment)

	first := testutil.RequireData[map[string]any](t, a.do(http.MethodPost, payPath, map[string]string{"amount": "30", "method": "CARD"}), http.StatusCreated)
	assert.Equal(t, string(settlement.InvoiceStatusPartiallyPaid), first["status"])

	second := testutil.RequireData[map[string]any](t, a.do(http.MethodPost, payPath, map[string]string{"amount": "70", "method": "CASH"}), http.StatusCreated)
	assert.Equal(t, string(settlement.InvoiceStatusPaid), second["status"])
	assert.Equal(t, true, second["patient_share_settled"])

	detail := testutil.RequireData[dto.InvoiceDetailResponse](t, a.do(http.MethodGet, "/invoices/"+invoice.ID.String(), nil), http.StatusOK)
	assert.Len(t, detail.Payments, 2)
	assert.True(t, detail.RemainingTotal.IsZero())

	receiptPath := "/payments/" + second["payment_id"].(string) + "/receipt"
	w := a.do(http.MethodGet, receiptPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, receiptPath+"?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "receipt-"+invoice.InvoiceNumber+".pdf")
	assert.Equal(t, []string{invoice.InvoiceNumber}, a.printer.printed)

	a.printer.err = errors.New("chrome is gone")
	testutil.RequireErrorCode(t, a.do(http.MethodGet, receiptPath+"?format=pdf", nil),
		http.StatusInternalServerError, dto.ErrCodeInternal)
	testutil.RequireErrorCode(t, a.do(http.MethodGet, receiptPath+"?format=docx", nil),
		http.StatusBadRequest, dto.ErrCodeValidation)

	outstanding := testutil.RequireData[map[string]any](t, a.do(http.MethodGet, "/patients/"+patientID.String()+"/outstanding", nil), http.StatusOK)
	assert.Equal(t, false, outstanding["blocked"])

	w = a.do(http.MethodGet, "/payments?invoice_id="+invoice.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), testutil.DecodeEnvelope(t, w).Meta.Total)

	assert.True(t, a.ledger.AccountBalance(t, accounting.KeyPatientReceivable).IsZero())
	assert.True(t, a.ledger.AccountBalance(t, accounting.KeyServiceRevenue).Equal(decimal.NewFromInt(-100)))
	a.ledger.RequireBalanced(t)
}

func TestSettlementAPI_ValidationAndTenancy(t *testing.T) {
	a := newAPI(t)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/charges", map[string]string{
		"encounter_id": uuid.NewString(),
		"service_type": "SERVICE",
		"description":  "Consultation",
		"quantity":     "1",
		"unit_price":   "-5",
	}), http.StatusBadRequest, dto.ErrCodeValidation)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/invoices", map[string]any{
		"encounter_id": uuid.NewString(),
		"patient_id":   uuid.NewString(),
	}), http.StatusUnprocessableEntity, shared.CodeNoCharges)

	invoice := a.ledger.InvoiceEncounter(t, uuid.New(), "80")
	testutil.RequireErrorCode(t, a.doAs(uuid.New(), http.MethodGet, "/invoices/"+invoice.ID.String(), nil),
		http.StatusNotFound, shared.CodeNotFound)
	testutil.RequireErrorCode(t, a.doAs(uuid.New(), http.MethodPost, "/invoices/"+invoice.ID.String()+"/payments",
		map[string]string{"amount": "80", "method": "CASH"}), http.StatusNotFound, shared.CodeNotFound)
}

func TestSettlementAPI_CreditNote(t *testing.T) {
	a := newAPI(t)
	invoice := a.ledger.InvoiceEncounter(t, uuid.New(), "200")
	path := "/invoices/" + invoice.ID.String() + "/credit-notes"

	note := testutil.RequireData[dto.CreditNoteResponse](t, a.do(http.MethodPost, path, map[string]string{"amount": "50", "reason": "Duplicate scan"}), http.StatusCreated)
	assert.True(t, note.Amount.Equal(decimal.NewFromInt(50)))

	testutil.RequireErrorCode(t, a.do(http.MethodPost, path, map[string]string{"amount": "151", "reason": "Too much"}),
		http.StatusUnprocessableEntity, shared.CodeInvalidAmount)
	a.ledger.RequireBalanced(t)
}

func TestCashierAPI_CloseShift(t *testing.T) {
	a := newAPI(t)
	ctx := t.Context()
	invoice := a.ledger.InvoiceEncounter(t, uuid.New(), "100")
	_, err := a.ledger.Pay(ctx, invoice.ID, "100", settlement.PaymentMethodCash, a.ledger.UserID)
	require.NoError(t, err)

	now := time.Now().UTC()
	body := map[string]string{
		"cashier_id":  a.ledger.UserID.String(),
		"range_start": now.Add(-time.Hour).Format(time.RFC3339),
		"range_end":   now.Add(time.Hour).Format(time.RFC3339),
		"actual_cash": "95",
	}

	closing := testutil.RequireData[dto.ShiftClosingResponse](t, a.do(http.MethodPost, "/cashier/shifts", body), http.StatusCreated)
	assert.True(t, closing.SystemCashTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, closing.Difference.Equal(decimal.NewFromInt(-5)))
	assert.NotNil(t, closing.AccountingEntryID)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/cashier/shifts", body), http.StatusConflict, shared.CodeOverlappingShift)

	got := testutil.RequireData[dto.ShiftClosingResponse](t, a.do(http.MethodGet, "/cashier/shifts/"+closing.ID.String(), nil), http.StatusOK)
	assert.Equal(t, closing.ID, got.ID)
	a.ledger.RequireBalanced(t)
}

func TestAssetAPI_RegisterAndDepreciate(t *testing.T) {
	a := newAPI(t)
	acquired := time.Date(time.Now().UTC().Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	asset := testutil.RequireData[dto.FixedAssetResponse](t, a.do(http.MethodPost, "/assets", map[string]any{
		"code":              "MRI-01",
		"name":              "MRI scanner",
		"acquisition_date":  acquired.Format(dto.DateLayout),
		"cost":              "12000",
		"salvage_value":     "0",
		"useful_life_years": 10,
	}), http.StatusCreated)
	assert.True(t, asset.BookValue.Equal(decimal.NewFromInt(12000)))

	run := testutil.RequireData[map[string]any](t, a.do(http.MethodPost, "/depreciation-runs", map[string]string{"date": today()}), http.StatusOK)
	assert.Equal(t, float64(1), run["posted"])

	again := testutil.RequireData[map[string]any](t, a.do(http.MethodPost, "/depreciation-runs", map[string]string{"date": today()}), http.StatusOK)
	assert.Equal(t, float64(0), again["posted"])
	assert.Equal(t, float64(1), again["skipped"])

	records := testutil.RequireData[[]dto.DepreciationRecordResponse](t, a.do(http.MethodGet, "/assets/"+asset.ID.String()+"/depreciation", nil), http.StatusOK)
	assert.Len(t, records, 1)
	a.ledger.RequireBalanced(t)
}

func TestOutboxAPI_Stats(t *testing.T) {
	a := newAPI(t)
	a.ledger.InvoiceEncounter(t, uuid.New(), "10")

	stats := testutil.RequireData[appevent.OutboxStats](t, a.do(http.MethodGet, "/outbox/stats", nil), http.StatusOK)
	assert.NotZero(t, stats.Pending)
	assert.Zero(t, stats.Dead)

	w := a.do(http.MethodGet, "/outbox/dead", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, testutil.DecodeEnvelope(t, w).Meta.Total)

	testutil.RequireErrorCode(t, a.do(http.MethodPost, "/outbox/entries/"+uuid.NewString()+"/retry", nil), http.StatusNotFound, shared.CodeNotFound)
}

func TestReportAPI_PeriodArchiveLink(t *testing.T) {
	a := newAPI(t)
	periodID := uuid.New()
	a.archive.links[periodID] = "https://archive.example/" + periodID.String()

	link := testutil.RequireData[map[string]any](t, a.do(http.MethodGet, "/reports/periods/"+periodID.String()+"/archive", nil), http.StatusOK)
	assert.Equal(t, "https://archive.example/"+periodID.String(), link["url"])
	assert.NotEmpty(t, link["expires_at"])

	testutil.RequireErrorCode(t, a.do(http.MethodGet, "/reports/periods/"+uuid.NewString()+"/archive", nil), http.StatusNotFound, shared.CodeNotFound)
}
