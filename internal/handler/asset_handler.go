package handler

import (
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type AssetHandler struct {
	assetService  service.AssetService
	exportService service.ExportService
	gate          *middleware.Gate
}

func NewAssetHandler(assetService service.AssetService, exportService service.ExportService, gate *middleware.Gate) *AssetHandler {
	return &AssetHandler{assetService: assetService, exportService: exportService, gate: gate}
}

func (h *AssetHandler) RegisterRoutes(router *gin.RouterGroup) {
	assets := router.Group("/assets", h.gate.Authenticate())
	{
		assets.GET("", h.gate.RequirePermission("assets.view"), h.ListAssets)
		assets.GET("/export", h.gate.RequirePermission("assets.export"), h.ExportAssets)
		assets.GET("/:id", h.gate.RequirePermission("assets.view"), h.GetAsset)
		assets.POST("", h.gate.RequirePermission("assets.create"), h.CreateAsset)
		assets.PUT("/:id", h.gate.RequirePermission("assets.edit"), h.UpdateAsset)
		assets.DELETE("/:id", h.gate.RequirePermission("assets.delete"), h.DeleteAsset)
		assets.POST("/:id/transfer", h.gate.RequirePermission("assets.transfer"), h.TransferAsset)
	}
}

// ListAssets returns the asset registry
// @Summary      List assets
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        search       query     string  false  "Tag, name or serial number"
// @Param        status       query     string  false  "ACTIVE, IN_MAINTENANCE, LOANED or RETIRED"
// @Param        location_id  query     string  false  "Location"
// @Param        company_id   query     string  false  "Client company"
// @Success      200          {object}  response.Response{data=[]model.Asset}
// @Router       /assets [get]
func (h *AssetHandler) ListAssets(c *gin.Context) {
	filter, valid := assetFilter(c)
	if !valid {
		return
	}
	p := pagination.Parse(c)
	assets, total, err := h.assetService.ListAssets(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, assets, p, total)
}

// GetAsset returns one asset
// @Summary      Get asset
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response{data=model.Asset}
// @Router       /assets/{id} [get]
func (h *AssetHandler) GetAsset(c *gin.Context) {
	asset, err := h.assetService.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, asset)
}

// CreateAsset registers an asset; the tag is generated when omitted
// @Summary      Create asset
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AssetRequest  true  "Asset"
// @Success      201      {object}  response.Response{data=model.Asset}
// @Failure      409      {object}  response.Response
// @Router       /assets [post]
func (h *AssetHandler) CreateAsset(c *gin.Context) {
	var req service.AssetRequest
	if !bind(c, &req) {
		return
	}
	asset, err := h.assetService.CreateAsset(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, asset)
}

// UpdateAsset edits an asset
// @Summary      Update asset
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Asset ID"
// @Param        payload  body      service.AssetRequest  true  "Asset"
// @Success      200      {object}  response.Response{data=model.Asset}
// @Router       /assets/{id} [put]
func (h *AssetHandler) UpdateAsset(c *gin.Context) {
	var req service.AssetRequest
	if !bind(c, &req) {
		return
	}
	asset, err := h.assetService.UpdateAsset(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, asset)
}

// DeleteAsset removes an asset
// @Summary      Delete asset
// @Tags         assets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Asset ID"
// @Success      200  {object}  response.Response
// @Router       /assets/{id} [delete]
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	if err := h.assetService.DeleteAsset(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Asset deleted successfully"})
}

// TransferAsset moves an asset to another location
// @Summary      Transfer asset
// @Tags         assets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Asset ID"
// @Param        payload  body      service.TransferAssetRequest  true  "Destination"
// @Success      200      {object}  response.Response{data=model.Asset}
// @Failure      409      {object}  response.Response "Retired asset"
// @Router       /assets/{id}/transfer [post]
func (h *AssetHandler) TransferAsset(c *gin.Context) {
	var req service.TransferAssetRequest
	if !bind(c, &req) {
		return
	}
	asset, err := h.assetService.TransferAsset(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, asset)
}

// ExportAssets downloads the asset registry as a spreadsheet
// @Summary      Export assets
// @Tags         assets
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status       query     string  false  "Status"
// @Param        location_id  query     string  false  "Location"
// @Param        company_id   query     string  false  "Client company"
// @Success      200          {file}    file
// @Router       /assets/export [get]
func (h *AssetHandler) ExportAssets(c *gin.Context) {
	filter, valid := assetFilter(c)
	if !valid {
		return
	}
	export, err := h.exportService.ExportAssets(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	sendExport(c, export)
}

func assetFilter(c *gin.Context) (repository.AssetFilter, bool) {
	locationID, valid := queryID(c, "location_id")
	if !valid {
		return repository.AssetFilter{}, false
	}
	companyID, valid := queryID(c, "company_id")
	if !valid {
		return repository.AssetFilter{}, false
	}
	return repository.AssetFilter{
		Search:     strings.TrimSpace(c.Query("search")),
		Status:     strings.ToUpper(c.Query("status")),
		LocationID: locationID,
		CompanyID:  companyID,
	}, true
}
