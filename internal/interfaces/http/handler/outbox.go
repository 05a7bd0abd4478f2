package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medierp/ledger/internal/application/event"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
)

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outbox *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outbox *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outbox: outbox}
}

// RegisterRoutes mounts the outbox routes on rg
func (h *OutboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/outbox")
	outbox.GET("/stats", h.GetStats)
	outbox.GET("/dead", h.ListDeadEntries)
	outbox.POST("/dead/retry", h.RetryAllDeadEntries)
	outbox.GET("/entries/:id", h.GetEntry)
	outbox.POST("/entries/:id/retry", h.RetryDeadEntry)
}

// ListDeadEntries handles GET /outbox/dead
func (h *OutboxHandler) ListDeadEntries(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	page, err := h.outbox.ListDeadEntries(c.Request.Context(), tenantID, req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToOutboxEntryResponse))
}

// GetEntry handles GET /outbox/entries/:id
func (h *OutboxHandler) GetEntry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.GetEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOutboxEntryResponse(entry))
}

// RetryDeadEntry handles POST /outbox/entries/:id/retry
func (h *OutboxHandler) RetryDeadEntry(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	entry, err := h.outbox.RetryDeadEntry(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToOutboxEntryResponse(entry))
}

// RetryAllDeadEntries handles POST /outbox/dead/retry
func (h *OutboxHandler) RetryAllDeadEntries(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	count, err := h.outbox.RetryAllDeadEntries(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.RetryAllResponse{Requeued: count})
}

// GetStats handles GET /outbox/stats
func (h *OutboxHandler) GetStats(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	stats, err := h.outbox.GetStats(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
