package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appaccounting "github.com/medierp/ledger/internal/application/accounting"
	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/shared"
	"github.com/medierp/ledger/internal/infrastructure/export"
	"github.com/medierp/ledger/internal/infrastructure/logger"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
)

// XLSXContentType is the media type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PeriodArchive links to the stored report of a closed period
type PeriodArchive interface {
	DownloadURL(ctx context.Context, tenantID, periodID uuid.UUID) (string, time.Time, error)
}

// ReportHandler serves the read-only financial reports
type ReportHandler struct {
	BaseHandler
	ledger     *appaccounting.LedgerService
	settlement *appsettlement.SettlementService
	archive    PeriodArchive
}

// NewReportHandler creates a ReportHandler
func NewReportHandler(ledger *appaccounting.LedgerService, settlement *appsettlement.SettlementService) *ReportHandler {
	return &ReportHandler{ledger: ledger, settlement: settlement}
}

// WithArchive enables the archived period report links
func (h *ReportHandler) WithArchive(archive PeriodArchive) *ReportHandler {
	h.archive = archive
	return h
}

// RegisterRoutes mounts the report routes on rg
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	reports.GET("/trial-balance", h.TrialBalance)
	reports.GET("/account-ledger/:account_id", h.AccountLedger)
	reports.GET("/daily", h.DailyReport)
	reports.GET("/periods/:period_id/archive", h.PeriodArchiveLink)

	patients := rg.Group("/patients")
	patients.GET("/:patient_id/statement", h.PatientStatement)
	patients.GET("/:patient_id/outstanding", h.OutstandingLiability)
}

// TrialBalance handles GET /reports/trial-balance
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.TrialBalanceRequest
	if !h.bindQuery(c, &req) {
		return
	}

	tb, err := h.ledger.TrialBalance(c.Request.Context(), appaccounting.TrialBalanceQuery{
		TenantID: tenantID,
		YearID:   parseOptionalUUID(req.YearID),
		AsOf:     mustDate(req.AsOf),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if req.Format != "xlsx" {
		h.Success(c, dto.ToTrialBalanceResponse(tb))
		return
	}

	var buf bytes.Buffer
	title := "Trial Balance as of " + tb.AsOf.Format(dto.DateLayout)
	if err := export.WriteTrialBalance(&buf, title, tb); err != nil {
		h.exportFailed(c, err)
		return
	}
	h.attachment(c, "trial-balance-"+tb.AsOf.Format(dto.DateLayout)+".xlsx", buf.Bytes())
}

// AccountLedger handles GET /reports/account-ledger/:account_id
func (h *ReportHandler) AccountLedger(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	accountID, ok := h.pathUUID(c, "account_id")
	if !ok {
		return
	}
	var req dto.AccountLedgerRequest
	if !h.bindQuery(c, &req) {
		return
	}

	ledger, err := h.ledger.AccountLedger(c.Request.Context(), tenantID, accountID, mustDate(req.From), mustDate(req.To))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if req.Format != "xlsx" {
		h.Success(c, dto.ToAccountLedgerResponse(ledger))
		return
	}

	var buf bytes.Buffer
	if err := export.WriteAccountLedger(&buf, ledger); err != nil {
		h.exportFailed(c, err)
		return
	}
	name := fmt.Sprintf("ledger-%s-%s-%s.xlsx", ledger.Account.Code, req.From, req.To)
	h.attachment(c, name, buf.Bytes())
}

// DailyReport handles GET /reports/daily
func (h *ReportHandler) DailyReport(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.DailyReportRequest
	if !h.bindQuery(c, &req) {
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		date = mustDate(req.Date)
	}
	report, err := h.settlement.DailyReport(c.Request.Context(), tenantID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// PatientStatement handles GET /patients/:patient_id/statement
func (h *ReportHandler) PatientStatement(c *gin.Context) {
	tenantID, patientID, ok := h.patient(c)
	if !ok {
		return
	}
	var req dto.StatementRequest
	if !h.bindQuery(c, &req) {
		return
	}
	statement, err := h.settlement.PatientStatement(c.Request.Context(), tenantID, patientID, mustDate(req.From), mustDate(req.To))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}

// OutstandingLiability handles GET /patients/:patient_id/outstanding, the
// discharge check
func (h *ReportHandler) OutstandingLiability(c *gin.Context) {
	tenantID, patientID, ok := h.patient(c)
	if !ok {
		return
	}
	liability, err := h.settlement.OutstandingPatientLiability(c.Request.Context(), tenantID, patientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, liability)
}

// PeriodArchiveLink handles GET /reports/periods/:period_id/archive
func (h *ReportHandler) PeriodArchiveLink(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	periodID, ok := h.pathUUID(c, "period_id")
	if !ok {
		return
	}
	if h.archive == nil {
		h.HandleError(c, shared.NewDomainError(shared.CodeNotFound, "Report archiving is not enabled"))
		return
	}
	link, expiresAt, err := h.archive.DownloadURL(c.Request.Context(), tenantID, periodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ArchiveLinkResponse{URL: link, ExpiresAt: expiresAt})
}

func (h *ReportHandler) patient(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	patientID, ok := h.pathUUID(c, "patient_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, patientID, true
}

func (h *ReportHandler) attachment(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, XLSXContentType, data)
}

func (h *ReportHandler) exportFailed(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("render workbook", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Failed to render the workbook")
}
