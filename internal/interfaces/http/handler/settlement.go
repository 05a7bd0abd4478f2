package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/domain/shared/valueobject"
	"github.com/medierp/ledger/internal/infrastructure/logger"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
)

// ReceiptPrinter renders receipts as PDF
type ReceiptPrinter interface {
	PrintReceipt(ctx context.Context, r *appsettlement.Receipt) ([]byte, error)
}

// SettlementHandler serves charges, invoices, credit notes and payments
type SettlementHandler struct {
	BaseHandler
	settlement *appsettlement.SettlementService
	printer    ReceiptPrinter
}

// NewSettlementHandler creates a SettlementHandler
func NewSettlementHandler(svc *appsettlement.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlement: svc}
}

// WithPrinter enables format=pdf on receipts
func (h *SettlementHandler) WithPrinter(p ReceiptPrinter) *SettlementHandler {
	h.printer = p
	return h
}

// RegisterRoutes mounts the settlement routes on rg
func (h *SettlementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/charges", h.AddCharge)
	rg.POST("/dependent-orders", h.RegisterDependentOrder)

	invoices := rg.Group("/invoices")
	invoices.POST("", h.CreateInvoice)
	invoices.GET("", h.ListInvoices)
	invoices.GET("/:id", h.GetInvoice)
	invoices.POST("/:id/issue", h.IssueInvoice)
	invoices.POST("/:id/cancel", h.CancelInvoice)
	invoices.PUT("/:id/claim-status", h.UpdateClaimStatus)
	invoices.POST("/:id/credit-notes", h.CreateCreditNote)
	invoices.POST("/:id/payments", h.RecordPayment)

	payments := rg.Group("/payments")
	payments.GET("", h.ListPayments)
	payments.GET("/:id/receipt", h.Receipt)
}

// AddCharge handles POST /charges
func (h *SettlementHandler) AddCharge(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.AddChargeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	charge, err := h.settlement.AddCharge(c.Request.Context(), appsettlement.AddChargeInput{
		TenantID:         tenantID,
		EncounterID:      uuid.MustParse(req.EncounterID),
		ServiceType:      settlement.ServiceType(req.ServiceType),
		Description:      req.Description,
		Quantity:         dto.ParseMoney(req.Quantity),
		UnitPrice:        dto.ParseMoney(req.UnitPrice),
		DependentOrderID: parseOptionalUUID(req.DependentOrderID),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToChargeResponse(charge))
}

// RegisterDependentOrder handles POST /dependent-orders
func (h *SettlementHandler) RegisterDependentOrder(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.RegisterDependentOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.settlement.RegisterDependentOrder(c.Request.Context(), tenantID,
		uuid.MustParse(req.EncounterID), settlement.DependentOrderKind(req.Kind))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToDependentOrderResponse(order))
}

// CreateInvoice handles POST /invoices
func (h *SettlementHandler) CreateInvoice(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	in := appsettlement.CreateInvoiceInput{
		TenantID:    tenantID,
		EncounterID: uuid.MustParse(req.EncounterID),
		PatientID:   uuid.MustParse(req.PatientID),
		Currency:    valueobject.Currency(req.Currency),
		Issue:       req.Issue,
		CreatedBy:   userID,
	}
	if req.Split != nil {
		in.Split = req.Split.ToSplitter()
	}
	invoice, err := h.settlement.CreateInvoiceForEncounter(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToInvoiceResponse(invoice))
}

// ListInvoices handles GET /invoices
func (h *SettlementHandler) ListInvoices(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListInvoicesRequest
	if !h.bindQuery(c, &req) {
		return
	}

	from, to := dayRange(req.From, req.To)
	filter := settlement.InvoiceFilter{
		Filter:      req.ListRequest.Filter(),
		PatientID:   parseOptionalUUID(req.PatientID),
		EncounterID: parseOptionalUUID(req.EncounterID),
		From:        from,
		To:          to,
	}
	for _, s := range req.Status {
		filter.Statuses = append(filter.Statuses, settlement.InvoiceStatus(s))
	}
	page, err := h.settlement.ListInvoices(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToInvoiceResponse))
}

// GetInvoice handles GET /invoices/:id with payments and credit notes
func (h *SettlementHandler) GetInvoice(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	detail, err := h.settlement.GetInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceDetailResponse(detail))
}

// IssueInvoice handles POST /invoices/:id/issue
func (h *SettlementHandler) IssueInvoice(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.settlement.IssueInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceResponse(invoice))
}

// CancelInvoice handles POST /invoices/:id/cancel
func (h *SettlementHandler) CancelInvoice(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	invoice, err := h.settlement.CancelInvoice(c.Request.Context(), tenantID, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceResponse(invoice))
}

// UpdateClaimStatus handles PUT /invoices/:id/claim-status
func (h *SettlementHandler) UpdateClaimStatus(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateClaimStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	invoice, err := h.settlement.UpdateClaimStatus(c.Request.Context(), tenantID, id, settlement.ClaimStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceResponse(invoice))
}

// CreateCreditNote handles POST /invoices/:id/credit-notes
func (h *SettlementHandler) CreateCreditNote(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateCreditNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	note, err := h.settlement.CreateCreditNote(c.Request.Context(), appsettlement.CreateCreditNoteInput{
		TenantID:          tenantID,
		OriginalInvoiceID: id,
		Amount:            dto.ParseMoney(req.Amount),
		Reason:            req.Reason,
		CreatedBy:         userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToCreditNoteResponse(note))
}

// RecordPayment handles POST /invoices/:id/payments. The cashier defaults
// to the caller.
func (h *SettlementHandler) RecordPayment(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	in := appsettlement.RecordPaymentInput{
		TenantID:  tenantID,
		InvoiceID: id,
		Amount:    dto.ParseMoney(req.Amount),
		Method:    settlement.PaymentMethod(req.Method),
		Reference: req.Reference,
		CashierID: userID,
	}
	if cashierID := parseOptionalUUID(req.CashierID); cashierID != nil {
		in.CashierID = *cashierID
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			h.ValidationError(c, []dto.ValidationDetail{{Field: "paid_at", Message: "Must be an RFC 3339 timestamp"}})
			return
		}
		in.PaidAt = paidAt
	}
	result, err := h.settlement.RecordPayment(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.PaymentID == nil {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// ListPayments handles GET /payments
func (h *SettlementHandler) ListPayments(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListPaymentsRequest
	if !h.bindQuery(c, &req) {
		return
	}

	from, to := dayRange(req.From, req.To)
	filter := settlement.PaymentFilter{
		Filter:    req.ListRequest.Filter(),
		InvoiceID: parseOptionalUUID(req.InvoiceID),
		CashierID: parseOptionalUUID(req.CashierID),
		From:      from,
		To:        to,
	}
	if req.Method != "" {
		m := settlement.PaymentMethod(req.Method)
		filter.Method = &m
	}
	page, err := h.settlement.ListPayments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToPaymentResponse))
}

// Receipt handles GET /payments/:id/receipt
func (h *SettlementHandler) Receipt(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	format := c.Query("format")
	if format != "" && format != "json" && format != "pdf" {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "format", Message: "must be one of json pdf"}})
		return
	}
	receipt, err := h.settlement.PaymentReceipt(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if format != "pdf" {
		h.Success(c, receipt)
		return
	}
	if h.printer == nil {
		h.HandleError(c, shared.NewDomainError(shared.CodeNotFound, "PDF receipts are not enabled"))
		return
	}
	pdf, err := h.printer.PrintReceipt(c.Request.Context(), receipt)
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("render receipt", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Failed to render the receipt")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%s.pdf"`, receipt.InvoiceNumber))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
