package handler

import (
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type MaintenanceHandler struct {
	maintenanceService service.MaintenanceService
	gate               *middleware.Gate
}

func NewMaintenanceHandler(maintenanceService service.MaintenanceService, gate *middleware.Gate) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService, gate: gate}
}

func (h *MaintenanceHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/maintenance/orders", h.gate.Authenticate())
	{
		orders.GET("", h.gate.RequirePermission("maintenance.view"), h.ListOrders)
		orders.GET("/:id", h.gate.RequirePermission("maintenance.view"), h.GetOrder)
		orders.POST("", h.gate.RequirePermission("maintenance.create"), h.CreateOrder)
		orders.PUT("/:id", h.gate.RequirePermission("maintenance.edit"), h.UpdateOrder)
		orders.POST("/:id/status", h.gate.RequirePermission("maintenance.edit"), h.ChangeStatus)
		orders.POST("/:id/assign", h.gate.RequirePermission("maintenance.assign"), h.AssignContractor)
	}
}

// ListOrders returns maintenance orders (OS)
// @Summary      List maintenance orders
// @Tags         maintenance
// @Security     BearerAuth
// @Produce      json
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Param        search         query     string  false  "Number or title"
// @Param        status         query     string  false  "Status"
// @Param        asset_id       query     string  false  "Asset"
// @Param        contractor_id  query     string  false  "Contractor"
// @Success      200            {object}  response.Response{data=[]model.MaintenanceOrder}
// @Router       /maintenance/orders [get]
func (h *MaintenanceHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	assetID, valid := queryID(c, "asset_id")
	if !valid {
		return
	}
	contractorID, valid := queryID(c, "contractor_id")
	if !valid {
		return
	}

	filter := repository.MaintenanceFilter{
		Search:       p.Search,
		Status:       strings.ToUpper(c.Query("status")),
		AssetID:      assetID,
		ContractorID: contractorID,
	}
	orders, total, err := h.maintenanceService.ListOrders(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, orders, p, total)
}

// GetOrder returns one maintenance order
// @Summary      Get maintenance order
// @Tags         maintenance
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.MaintenanceOrder}
// @Router       /maintenance/orders/{id} [get]
func (h *MaintenanceHandler) GetOrder(c *gin.Context) {
	order, err := h.maintenanceService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// CreateOrder opens a maintenance order
// @Summary      Create maintenance order
// @Tags         maintenance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MaintenanceRequest  true  "Order"
// @Success      201      {object}  response.Response{data=model.MaintenanceOrder}
// @Router       /maintenance/orders [post]
func (h *MaintenanceHandler) CreateOrder(c *gin.Context) {
	var req service.MaintenanceRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.maintenanceService.CreateOrder(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, order)
}

// UpdateOrder edits an open maintenance order
// @Summary      Update maintenance order
// @Tags         maintenance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Order ID"
// @Param        payload  body      service.MaintenanceRequest  true  "Order"
// @Success      200      {object}  response.Response{data=model.MaintenanceOrder}
// @Router       /maintenance/orders/{id} [put]
func (h *MaintenanceHandler) UpdateOrder(c *gin.Context) {
	var req service.MaintenanceRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.maintenanceService.UpdateOrder(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// ChangeStatus moves an order along its workflow and syncs the asset status
// @Summary      Change maintenance status
// @Tags         maintenance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Order ID"
// @Param        payload  body      service.MaintenanceStatusRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.MaintenanceOrder}
// @Failure      409      {object}  response.Response "Invalid transition"
// @Router       /maintenance/orders/{id}/status [post]
func (h *MaintenanceHandler) ChangeStatus(c *gin.Context) {
	var req service.MaintenanceStatusRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.maintenanceService.ChangeStatus(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// AssignContractor sets or clears the contractor
// @Summary      Assign contractor
// @Tags         maintenance
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Order ID"
// @Param        payload  body      service.AssignContractorRequest  true  "Contractor"
// @Success      200      {object}  response.Response{data=model.MaintenanceOrder}
// @Router       /maintenance/orders/{id}/assign [post]
func (h *MaintenanceHandler) AssignContractor(c *gin.Context) {
	var req service.AssignContractorRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.maintenanceService.AssignContractor(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}
