package handler

import (
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/model"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// PortalHandler serves the client and contractor self-service portals
type PortalHandler struct {
	clientPortal     service.ClientPortalService
	contractorPortal service.ContractorPortalService
	gate             *middleware.Gate
}

func NewPortalHandler(clientPortal service.ClientPortalService, contractorPortal service.ContractorPortalService, gate *middleware.Gate) *PortalHandler {
	return &PortalHandler{clientPortal: clientPortal, contractorPortal: contractorPortal, gate: gate}
}

func (h *PortalHandler) RegisterRoutes(router *gin.RouterGroup) {
	client := router.Group("/client", h.gate.Authenticate(), h.gate.RequireKind(model.KindClient))
	{
		client.GET("/tickets", h.ListClientTickets)
		client.POST("/tickets", h.CreateClientTicket)
		client.GET("/tickets/:id", h.GetClientTicket)
		client.POST("/tickets/:id/comments", h.AddClientComment)
		client.GET("/assets", h.ListClientAssets)
	}

	contractor := router.Group("/contractor", h.gate.Authenticate(), h.gate.RequireKind(model.KindContractor))
	{
		contractor.GET("/orders", h.ListContractorOrders)
		contractor.GET("/orders/:id", h.GetContractorOrder)
		contractor.POST("/orders/:id/status", h.ChangeContractorOrderStatus)
	}
}

// ListClientTickets returns the tickets of the caller's company
// @Summary      Client tickets
// @Tags         portal
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Number or title"
// @Param        status  query     string  false  "Status"
// @Success      200     {object}  response.Response{data=[]model.Ticket}
// @Router       /client/tickets [get]
func (h *PortalHandler) ListClientTickets(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.TicketFilter{
		Search:   p.Search,
		Status:   strings.ToUpper(c.Query("status")),
		Priority: strings.ToUpper(c.Query("priority")),
	}
	tickets, total, err := h.clientPortal.ListTickets(c.Request.Context(), actor(c), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, tickets, p, total)
}

// CreateClientTicket opens a ticket for the caller's company
// @Summary      Open client ticket
// @Tags         portal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PortalTicketRequest  true  "Ticket"
// @Success      201      {object}  response.Response{data=model.Ticket}
// @Router       /client/tickets [post]
func (h *PortalHandler) CreateClientTicket(c *gin.Context) {
	var req service.PortalTicketRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.clientPortal.CreateTicket(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, ticket)
}

// GetClientTicket returns one of the company's tickets with its public comments
// @Summary      Get client ticket
// @Tags         portal
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ticket ID"
// @Success      200  {object}  response.Response{data=model.Ticket}
// @Failure      404  {object}  response.Response
// @Router       /client/tickets/{id} [get]
func (h *PortalHandler) GetClientTicket(c *gin.Context) {
	ticket, err := h.clientPortal.GetTicket(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ticket)
}

// AddClientComment posts a public comment on a company ticket
// @Summary      Comment on client ticket
// @Tags         portal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Ticket ID"
// @Param        payload  body      service.PortalCommentRequest  true  "Comment"
// @Success      201      {object}  response.Response{data=model.TicketComment}
// @Router       /client/tickets/{id}/comments [post]
func (h *PortalHandler) AddClientComment(c *gin.Context) {
	var req service.PortalCommentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := h.clientPortal.AddComment(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, comment)
}

// ListClientAssets returns the assets held by the caller's company
// @Summary      Client assets
// @Tags         portal
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Tag, name or serial number"
// @Success      200     {object}  response.Response{data=[]model.Asset}
// @Router       /client/assets [get]
func (h *PortalHandler) ListClientAssets(c *gin.Context) {
	p := pagination.Parse(c)
	assets, total, err := h.clientPortal.ListAssets(c.Request.Context(), actor(c), p.Search, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, assets, p, total)
}

// ListContractorOrders returns the orders assigned to the caller's contractor
// @Summary      Contractor orders
// @Tags         portal
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        status  query     string  false  "Status"
// @Success      200     {object}  response.Response{data=[]model.MaintenanceOrder}
// @Router       /contractor/orders [get]
func (h *PortalHandler) ListContractorOrders(c *gin.Context) {
	p := pagination.Parse(c)
	orders, total, err := h.contractorPortal.ListOrders(c.Request.Context(), actor(c), strings.ToUpper(c.Query("status")), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, orders, p, total)
}

// GetContractorOrder returns one assigned order
// @Summary      Get contractor order
// @Tags         portal
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.MaintenanceOrder}
// @Failure      404  {object}  response.Response
// @Router       /contractor/orders/{id} [get]
func (h *PortalHandler) GetContractorOrder(c *gin.Context) {
	order, err := h.contractorPortal.GetOrder(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}

// ChangeContractorOrderStatus starts or completes an assigned order
// @Summary      Update contractor order status
// @Tags         portal
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Order ID"
// @Param        payload  body      service.ContractorStatusRequest  true  "Status, resolution and cost"
// @Success      200      {object}  response.Response{data=model.MaintenanceOrder}
// @Failure      409      {object}  response.Response "Invalid transition"
// @Router       /contractor/orders/{id}/status [post]
func (h *PortalHandler) ChangeContractorOrderStatus(c *gin.Context) {
	var req service.ContractorStatusRequest
	if !bind(c, &req) {
		return
	}
	order, err := h.contractorPortal.ChangeStatus(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, order)
}
