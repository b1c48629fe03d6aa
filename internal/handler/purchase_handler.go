package handler

import (
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	purchaseService service.PurchaseService
	gate            *middleware.Gate
}

func NewPurchaseHandler(purchaseService service.PurchaseService, gate *middleware.Gate) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService, gate: gate}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/purchases/orders", h.gate.Authenticate())
	{
		orders.GET("", h.gate.RequirePermission("purchases.view"), h.ListOrders)
		orders.GET("/:id", h.gate.RequirePermission("purchases.view"), h.GetOrder)
		orders.POST("", h.gate.RequirePermission("purchases.create"), h.CreateOrder)
		orders.PUT("/:id", h.gate.RequirePermission("purchases.edit"), h.UpdateOrder)
		orders.DELETE("/:id", h.gate.RequirePermission("purchases.delete"), h.DeleteOrder)
		orders.POST("/:id/send", h.gate.RequirePermission("purchases.approve"), h.SendOrder)
		orders.POST("/:id/cancel", h.gate.RequirePermission("purchases.approve"), h.CancelOrder)
		orders.POST("/:id/receive", h.gate.RequirePermission("purchases.receive"), h.ReceiveOrder)
	}
}

// ListOrders returns purchase orders
// @Summary      List purchase orders
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        search       query     string  false  "Order number"
// @Param        status       query     string  false  "DRAFT, SENT, PARTIALLY_RECEIVED, RECEIVED or CANCELLED"
// @Param        supplier_id  query     string  false  "Supplier"
// @Success      200          {object}  response.Response{data=[]model.PurchaseOrder}
// @Router       /purchases/orders [get]
func (h *PurchaseHandler) ListOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.purchaseService.ListOrders(c.Request.Context(), strings.ToUpper(c.Query("status")), c.Query("supplier_id"), p.Search, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, orders, p, total)
}

// GetOrder returns a purchase order with its items
// @Summary      Get purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Router       /purchases/orders/{id} [get]
func (h *PurchaseHandler) GetOrder(c *gin.Context) {
	order, err := h.purchaseService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// CreateOrder creates a DRAFT purchase order
// @Summary      Create purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PurchaseOrderRequest  true  "Order"
// @Success      201      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400      {object}  response.Response
// @Router       /purchases/orders [post]
func (h *PurchaseHandler) CreateOrder(c *gin.Context) {
	var req service.PurchaseOrderRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.purchaseService.CreateOrder(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, order)
}

// UpdateOrder replaces a DRAFT order's supplier and items
// @Summary      Update purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Order ID"
// @Param        payload  body      service.PurchaseOrderRequest  true  "Order"
// @Success      200      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      409      {object}  response.Response "Not a draft"
// @Router       /purchases/orders/{id} [put]
func (h *PurchaseHandler) UpdateOrder(c *gin.Context) {
	var req service.PurchaseOrderRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.purchaseService.UpdateOrder(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// DeleteOrder deletes a DRAFT order
// @Summary      Delete purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Router       /purchases/orders/{id} [delete]
func (h *PurchaseHandler) DeleteOrder(c *gin.Context) {
	if err := h.purchaseService.DeleteOrder(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Purchase order deleted successfully"})
}

// SendOrder moves a DRAFT order to SENT
// @Summary      Send purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Router       /purchases/orders/{id}/send [post]
func (h *PurchaseHandler) SendOrder(c *gin.Context) {
	order, err := h.purchaseService.SendOrder(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// CancelOrder cancels a DRAFT or SENT order
// @Summary      Cancel purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.PurchaseOrder}
// @Router       /purchases/orders/{id}/cancel [post]
func (h *PurchaseHandler) CancelOrder(c *gin.Context) {
	order, err := h.purchaseService.CancelOrder(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// ReceiveOrder books received quantities into stock
// @Summary      Receive purchase order
// @Tags         purchases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Order ID"
// @Param        payload  body      service.ReceivePurchaseRequest  true  "Received items"
// @Success      200      {object}  response.Response{data=model.PurchaseOrder}
// @Failure      400      {object}  response.Response "Over-receiving"
// @Router       /purchases/orders/{id}/receive [post]
func (h *PurchaseHandler) ReceiveOrder(c *gin.Context) {
	var req service.ReceivePurchaseRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.purchaseService.ReceiveOrder(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}
