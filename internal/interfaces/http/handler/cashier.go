package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcashier "github.com/medierp/ledger/internal/application/cashier"
	appsettlement "github.com/medierp/ledger/internal/application/settlement"
	"github.com/medierp/ledger/internal/domain/cashier"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
)

// CashierHandler serves shift reconciliation and the cashier worklist
type CashierHandler struct {
	BaseHandler
	shifts     *appcashier.ShiftService
	settlement *appsettlement.SettlementService
}

// NewCashierHandler creates a CashierHandler
func NewCashierHandler(shifts *appcashier.ShiftService, settlement *appsettlement.SettlementService) *CashierHandler {
	return &CashierHandler{shifts: shifts, settlement: settlement}
}

// RegisterRoutes mounts the cashier routes on rg
func (h *CashierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/cashier")
	group.GET("/worklist", h.Worklist)
	group.GET("/shifts", h.ListShifts)
	group.GET("/shifts/preview", h.PreviewShift)
	group.GET("/shifts/:id", h.GetShift)
	group.POST("/shifts", h.CloseShift)
}

// Worklist handles GET /cashier/worklist
func (h *CashierHandler) Worklist(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	items, err := h.settlement.CashierWorklist(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// CloseShift handles POST /cashier/shifts
func (h *CashierHandler) CloseShift(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CloseShiftRequest
	if !h.bindJSON(c, &req) {
		return
	}
	start, end, ok := h.window(c, req.RangeStart, req.RangeEnd)
	if !ok {
		return
	}

	closing, err := h.shifts.CloseCashierShift(c.Request.Context(), appcashier.CloseShiftInput{
		TenantID:   tenantID,
		CashierID:  uuid.MustParse(req.CashierID),
		RangeStart: start,
		RangeEnd:   end,
		ActualCash: dto.ParseMoney(req.ActualCash),
		Note:       req.Note,
		ClosedBy:   userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToShiftClosingResponse(closing))
}

// PreviewShift handles GET /cashier/shifts/preview
func (h *CashierHandler) PreviewShift(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.PreviewShiftRequest
	if !h.bindQuery(c, &req) {
		return
	}
	start, end, ok := h.window(c, req.RangeStart, req.RangeEnd)
	if !ok {
		return
	}
	preview, err := h.shifts.PreviewShift(c.Request.Context(), tenantID, uuid.MustParse(req.CashierID), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// GetShift handles GET /cashier/shifts/:id
func (h *CashierHandler) GetShift(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	closing, err := h.shifts.GetShift(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToShiftClosingResponse(closing))
}

// ListShifts handles GET /cashier/shifts
func (h *CashierHandler) ListShifts(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListShiftsRequest
	if !h.bindQuery(c, &req) {
		return
	}
	from, to := dayRange(req.From, req.To)
	page, err := h.shifts.ListShifts(c.Request.Context(), tenantID, cashier.ShiftFilter{
		Filter:    req.ListRequest.Filter(),
		CashierID: parseOptionalUUID(req.CashierID),
		From:      from,
		To:        to,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToShiftClosingResponse))
}

// window parses a validated pair of RFC 3339 instants
func (h *CashierHandler) window(c *gin.Context, start, end string) (time.Time, time.Time, bool) {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "range_start", Message: "Must be an RFC 3339 timestamp"}})
		return time.Time{}, time.Time{}, false
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		h.ValidationError(c, []dto.ValidationDetail{{Field: "range_end", Message: "Must be an RFC 3339 timestamp"}})
		return time.Time{}, time.Time{}, false
	}
	return s, e, true
}
