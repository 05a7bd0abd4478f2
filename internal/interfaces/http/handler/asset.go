package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appasset "github.com/medierp/ledger/internal/application/asset"
	"github.com/medierp/ledger/internal/interfaces/http/dto"
)

// AssetHandler serves the fixed asset register and depreciation runs
type AssetHandler struct {
	BaseHandler
	depreciation *appasset.DepreciationService
}

// NewAssetHandler creates an AssetHandler
func NewAssetHandler(svc *appasset.DepreciationService) *AssetHandler {
	return &AssetHandler{depreciation: svc}
}

// RegisterRoutes mounts the asset routes on rg
func (h *AssetHandler) RegisterRoutes(rg *gin.RouterGroup) {
	assets := rg.Group("/assets")
	assets.POST("", h.RegisterAsset)
	assets.GET("", h.ListAssets)
	assets.GET("/:id", h.GetAsset)
	assets.GET("/:id/depreciation", h.ListDepreciation)
	assets.POST("/:id/dispose", h.DisposeAsset)

	rg.POST("/depreciation-runs", h.RunDepreciation)
}

// RegisterAsset handles POST /assets
func (h *AssetHandler) RegisterAsset(c *gin.Context) {
	tenantID, userID, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.RegisterAssetRequest
	if !h.bindJSON(c, &req) {
		return
	}
	a, err := h.depreciation.RegisterAsset(c.Request.Context(), appasset.RegisterAssetInput{
		TenantID:        tenantID,
		Code:            req.Code,
		Name:            req.Name,
		AcquisitionDate: mustDate(req.AcquisitionDate),
		Cost:            dto.ParseMoney(req.Cost),
		SalvageValue:    dto.ParseMoney(req.SalvageValue),
		UsefulLifeYears: req.UsefulLifeYears,
		CreatedBy:       userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToFixedAssetResponse(a))
}

// ListAssets handles GET /assets
func (h *AssetHandler) ListAssets(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.ListRequest
	if !h.bindQuery(c, &req) {
		return
	}
	page, err := h.depreciation.ListAssets(c.Request.Context(), tenantID, req.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page, dto.ToFixedAssetResponse))
}

// GetAsset handles GET /assets/:id
func (h *AssetHandler) GetAsset(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.depreciation.GetAsset(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToFixedAssetResponse(a))
}

// ListDepreciation handles GET /assets/:id/depreciation
func (h *AssetHandler) ListDepreciation(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := h.depreciation.ListDepreciationRecords(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, convertAll(records, dto.ToDepreciationRecordResponse))
}

// DisposeAsset handles POST /assets/:id/dispose
func (h *AssetHandler) DisposeAsset(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	a, err := h.depreciation.DisposeAsset(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToFixedAssetResponse(a))
}

// RunDepreciation handles POST /depreciation-runs for the period
// containing date, today when omitted
func (h *AssetHandler) RunDepreciation(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req dto.RunDepreciationRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}
	date := time.Now().UTC()
	if req.Date != "" {
		date = mustDate(req.Date)
	}
	result, err := h.depreciation.RunDepreciation(c.Request.Context(), tenantID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
