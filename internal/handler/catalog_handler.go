package handler

import (
	"net/http"

	"zyllen/internal/middleware"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"
	"zyllen/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalogService service.CatalogService
	gate           *middleware.Gate
}

func NewCatalogHandler(catalogService service.CatalogService, gate *middleware.Gate) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, gate: gate}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	skus := router.Group("/catalog/skus", h.gate.Authenticate())
	{
		skus.GET("", h.gate.RequirePermission("catalog.view"), h.ListSKUs)
		skus.GET("/lookup", h.gate.RequireInternal(), h.LookupSKU)
		skus.GET("/:id", h.gate.RequirePermission("catalog.view"), h.GetSKU)
		skus.POST("", h.gate.RequirePermission("catalog.create"), h.CreateSKU)
		skus.PUT("/:id", h.gate.RequirePermission("catalog.edit"), h.UpdateSKU)
		skus.DELETE("/:id", h.gate.RequirePermission("catalog.delete"), h.DeleteSKU)
	}
}

// ListSKUs returns the SKU catalog
// @Summary      List SKUs
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        search       query     string  false  "Code, barcode or name"
// @Param        category_id  query     string  false  "Category"
// @Param        active       query     bool    false  "Only active SKUs"
// @Success      200          {object}  response.Response{data=[]model.SKU}
// @Router       /catalog/skus [get]
func (h *CatalogHandler) ListSKUs(c *gin.Context) {
	p := pagination.Parse(c)
	categoryID, valid := queryID(c, "category_id")
	if !valid {
		return
	}

	filter := repository.SKUFilter{Search: p.Search, CategoryID: categoryID, ActiveOnly: c.Query("active") == "true"}
	skus, total, err := h.catalogService.ListSKUs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, skus, p, total)
}

// LookupSKU resolves a scanned code or barcode for any internal user
// @Summary      Lookup SKU by code or barcode
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        code  query     string  true  "Code or barcode"
// @Success      200   {object}  response.Response{data=model.SKU}
// @Failure      404   {object}  response.Response
// @Router       /catalog/skus/lookup [get]
func (h *CatalogHandler) LookupSKU(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "code is required"))
		return
	}
	sku, err := h.catalogService.LookupSKU(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sku)
}

// GetSKU returns one SKU
// @Summary      Get SKU
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "SKU ID"
// @Success      200  {object}  response.Response{data=model.SKU}
// @Router       /catalog/skus/{id} [get]
func (h *CatalogHandler) GetSKU(c *gin.Context) {
	sku, err := h.catalogService.GetSKU(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sku)
}

// CreateSKU adds a SKU to the catalog
// @Summary      Create SKU
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SKURequest  true  "SKU"
// @Success      201      {object}  response.Response{data=model.SKU}
// @Failure      409      {object}  response.Response
// @Router       /catalog/skus [post]
func (h *CatalogHandler) CreateSKU(c *gin.Context) {
	var req service.SKURequest
	if !bind(c, &req) {
		return
	}
	sku, err := h.catalogService.CreateSKU(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, sku)
}

// UpdateSKU edits a SKU
// @Summary      Update SKU
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "SKU ID"
// @Param        payload  body      service.SKURequest  true  "SKU"
// @Success      200      {object}  response.Response{data=model.SKU}
// @Router       /catalog/skus/{id} [put]
func (h *CatalogHandler) UpdateSKU(c *gin.Context) {
	var req service.SKURequest
	if !bind(c, &req) {
		return
	}
	sku, err := h.catalogService.UpdateSKU(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, sku)
}

// DeleteSKU removes a SKU
// @Summary      Delete SKU
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "SKU ID"
// @Success      200  {object}  response.Response
// @Router       /catalog/skus/{id} [delete]
func (h *CatalogHandler) DeleteSKU(c *gin.Context) {
	if err := h.catalogService.DeleteSKU(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "SKU deleted successfully"})
}
