package handler

import (
	"net/http"
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
	exportService    service.ExportService
	gate             *middleware.Gate
}

func NewInventoryHandler(inventoryService service.InventoryService, exportService service.ExportService, gate *middleware.Gate) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService, exportService: exportService, gate: gate}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/inventory", h.gate.Authenticate())
	{
		inventory.POST("/entries", h.gate.RequirePermission("inventory.bipar_entrada"), h.RegisterEntry)
		inventory.POST("/exits", h.gate.RequirePermission("inventory.bipar_saida"), h.RegisterExit)

		inventory.GET("/movements", h.gate.RequirePermission("inventory.view"), h.ListMovements)
		inventory.GET("/movements/:id", h.gate.RequirePermission("inventory.view"), h.GetMovement)
		inventory.POST("/movements", h.gate.RequirePermission("inventory.create"), h.CreateMovement)
		inventory.POST("/movements/:id/approve", h.gate.RequirePermission("inventory.approve"), h.ApproveMovement)
		inventory.POST("/movements/:id/reject", h.gate.RequirePermission("inventory.approve"), h.RejectMovement)

		inventory.GET("/balances", h.gate.RequirePermission("inventory.view"), h.ListBalances)
		inventory.GET("/export", h.gate.RequirePermission("inventory.export"), h.ExportBalances)
	}
}

// RegisterEntry records a scanned stock entry (bipar entrada)
// @Summary      Scan entry
// @Description  Creates a PENDING IN movement from a scanned code or barcode
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ScanRequest  true  "Scan"
// @Success      201      {object}  response.Response{data=model.StockMovement}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /inventory/entries [post]
func (h *InventoryHandler) RegisterEntry(c *gin.Context) {
	var req service.ScanRequest
	if !bind(c, &req) {
		return
	}
	mv, err := h.inventoryService.RegisterEntry(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, mv)
}

// RegisterExit records a scanned stock exit (bipar saída)
// @Summary      Scan exit
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ScanRequest  true  "Scan"
// @Success      201      {object}  response.Response{data=model.StockMovement}
// @Router       /inventory/exits [post]
func (h *InventoryHandler) RegisterExit(c *gin.Context) {
	var req service.ScanRequest
	if !bind(c, &req) {
		return
	}
	mv, err := h.inventoryService.RegisterExit(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, mv)
}

// CreateMovement creates a PENDING movement of any type
// @Summary      Create movement
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MovementRequest  true  "Movement"
// @Success      201      {object}  response.Response{data=model.StockMovement}
// @Failure      400      {object}  response.Response
// @Router       /inventory/movements [post]
func (h *InventoryHandler) CreateMovement(c *gin.Context) {
	var req service.MovementRequest
	if !bind(c, &req) {
		return
	}
	mv, err := h.inventoryService.CreateMovement(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, mv)
}

// ApproveMovement applies a PENDING movement to the balances
// @Summary      Approve movement
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Movement ID"
// @Success      200  {object}  response.Response{data=model.StockMovement}
// @Failure      400  {object}  response.Response "Insufficient stock"
// @Failure      409  {object}  response.Response "Not pending"
// @Router       /inventory/movements/{id}/approve [post]
func (h *InventoryHandler) ApproveMovement(c *gin.Context) {
	mv, err := h.inventoryService.ApproveMovement(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mv)
}

// RejectMovement rejects a PENDING movement
// @Summary      Reject movement
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Movement ID"
// @Param        payload  body      service.RejectRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=model.StockMovement}
// @Router       /inventory/movements/{id}/reject [post]
func (h *InventoryHandler) RejectMovement(c *gin.Context) {
	var req service.RejectRequest
	if !bind(c, &req) {
		return
	}
	mv, err := h.inventoryService.RejectMovement(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mv)
}

// ListMovements returns stock movements, newest first
// @Summary      List movements
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        status       query     string  false  "PENDING, APPROVED or REJECTED"
// @Param        sku_id       query     string  false  "SKU"
// @Param        location_id  query     string  false  "Location (source or destination)"
// @Success      200          {object}  response.Response{data=[]model.StockMovement}
// @Router       /inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)
	skuID, valid := queryID(c, "sku_id")
	if !valid {
		return
	}
	locationID, valid := queryID(c, "location_id")
	if !valid {
		return
	}

	filter := repository.MovementFilter{Status: strings.ToUpper(c.Query("status")), SKUID: skuID, LocationID: locationID}
	movements, total, err := h.inventoryService.ListMovements(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, movements, p, total)
}

// GetMovement returns one movement
// @Summary      Get movement
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Movement ID"
// @Success      200  {object}  response.Response{data=model.StockMovement}
// @Router       /inventory/movements/{id} [get]
func (h *InventoryHandler) GetMovement(c *gin.Context) {
	mv, err := h.inventoryService.GetMovement(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, mv)
}

// ListBalances returns stock on hand per SKU and location
// @Summary      List balances
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        location_id  query     string  false  "Location"
// @Param        sku_id       query     string  false  "SKU"
// @Param        below_min    query     bool    false  "Only balances under the SKU minimum"
// @Success      200          {object}  response.Response{data=[]model.StockBalance}
// @Router       /inventory/balances [get]
func (h *InventoryHandler) ListBalances(c *gin.Context) {
	filter, valid := balanceFilter(c)
	if !valid {
		return
	}
	p := pagination.Parse(c)
	balances, total, err := h.inventoryService.ListBalances(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, balances, p, total)
}

// ExportBalances downloads the balances as a spreadsheet
// @Summary      Export balances
// @Tags         inventory
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        location_id  query     string  false  "Location"
// @Param        sku_id       query     string  false  "SKU"
// @Param        below_min    query     bool    false  "Only balances under the SKU minimum"
// @Success      200          {file}    file
// @Router       /inventory/export [get]
func (h *InventoryHandler) ExportBalances(c *gin.Context) {
	filter, valid := balanceFilter(c)
	if !valid {
		return
	}
	export, err := h.exportService.ExportBalances(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	sendExport(c, export)
}

func balanceFilter(c *gin.Context) (repository.BalanceFilter, bool) {
	skuID, valid := queryID(c, "sku_id")
	if !valid {
		return repository.BalanceFilter{}, false
	}
	locationID, valid := queryID(c, "location_id")
	if !valid {
		return repository.BalanceFilter{}, false
	}
	return repository.BalanceFilter{SKUID: skuID, LocationID: locationID, BelowMin: c.Query("below_min") == "true"}, true
}

func sendExport(c *gin.Context, export *service.Export) {
	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Content)
}
