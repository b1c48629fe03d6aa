package handler

import (
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	ticketService service.TicketService
	gate          *middleware.Gate
}

func NewTicketHandler(ticketService service.TicketService, gate *middleware.Gate) *TicketHandler {
	return &TicketHandler{ticketService: ticketService, gate: gate}
}

func (h *TicketHandler) RegisterRoutes(router *gin.RouterGroup) {
	tickets := router.Group("/tickets", h.gate.Authenticate())
	{
		tickets.GET("", h.gate.RequirePermission("tickets.view"), h.ListTickets)
		tickets.GET("/:id", h.gate.RequirePermission("tickets.view"), h.GetTicket)
		tickets.POST("", h.gate.RequirePermission("tickets.create"), h.CreateTicket)
		tickets.PUT("/:id", h.gate.RequirePermission("tickets.edit"), h.UpdateTicket)
		tickets.POST("/:id/status", h.gate.RequirePermission("tickets.edit"), h.ChangeStatus)
		tickets.POST("/:id/assign", h.gate.RequirePermission("tickets.assign"), h.AssignTicket)
		tickets.GET("/:id/comments", h.gate.RequirePermission("tickets.view"), h.ListComments)
		tickets.POST("/:id/comments", h.gate.RequirePermission("tickets.comment"), h.AddComment)
	}
}

// ListTickets returns tickets, newest first
// @Summary      List tickets
// @Tags         tickets
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        search       query     string  false  "Number or title"
// @Param        status       query     string  false  "Status"
// @Param        priority     query     string  false  "Priority"
// @Param        company_id   query     string  false  "Client company"
// @Param        assignee_id  query     string  false  "Assignee"
// @Success      200          {object}  response.Response{data=[]model.Ticket}
// @Router       /tickets [get]
func (h *TicketHandler) ListTickets(c *gin.Context) {
	p := pagination.Parse(c)
	companyID, valid := queryID(c, "company_id")
	if !valid {
		return
	}
	assigneeID, valid := queryID(c, "assignee_id")
	if !valid {
		return
	}

	filter := repository.TicketFilter{
		Search:     p.Search,
		Status:     strings.ToUpper(c.Query("status")),
		Priority:   strings.ToUpper(c.Query("priority")),
		CompanyID:  companyID,
		AssigneeID: assigneeID,
	}
	tickets, total, err := h.ticketService.ListTickets(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, tickets, p, total)
}

// GetTicket returns a ticket with all its comments
// @Summary      Get ticket
// @Tags         tickets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ticket ID"
// @Success      200  {object}  response.Response{data=model.Ticket}
// @Router       /tickets/{id} [get]
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.ticketService.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ticket)
}

// CreateTicket opens a ticket on behalf of the caller
// @Summary      Create ticket
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.TicketRequest  true  "Ticket"
// @Success      201      {object}  response.Response{data=model.Ticket}
// @Router       /tickets [post]
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req service.TicketRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.ticketService.CreateTicket(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, ticket)
}

// UpdateTicket edits title, description, priority and links
// @Summary      Update ticket
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Ticket ID"
// @Param        payload  body      service.TicketRequest  true  "Ticket"
// @Success      200      {object}  response.Response{data=model.Ticket}
// @Router       /tickets/{id} [put]
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	var req service.TicketRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.ticketService.UpdateTicket(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ticket)
}

// ChangeStatus moves a ticket along its workflow
// @Summary      Change ticket status
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Ticket ID"
// @Param        payload  body      service.TicketStatusRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.Ticket}
// @Failure      409      {object}  response.Response "Invalid transition"
// @Router       /tickets/{id}/status [post]
func (h *TicketHandler) ChangeStatus(c *gin.Context) {
	var req service.TicketStatusRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.ticketService.ChangeStatus(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ticket)
}

// AssignTicket sets or clears the assignee
// @Summary      Assign ticket
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Ticket ID"
// @Param        payload  body      service.AssignTicketRequest  true  "Assignee"
// @Success      200      {object}  response.Response{data=model.Ticket}
// @Router       /tickets/{id}/assign [post]
func (h *TicketHandler) AssignTicket(c *gin.Context) {
	var req service.AssignTicketRequest
	if !bind(c, &req) {
		return
	}
	ticket, err := h.ticketService.AssignTicket(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, ticket)
}

// ListComments returns every comment of a ticket, internal ones included
// @Summary      List ticket comments
// @Tags         tickets
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Ticket ID"
// @Success      200  {object}  response.Response{data=[]model.TicketComment}
// @Router       /tickets/{id}/comments [get]
func (h *TicketHandler) ListComments(c *gin.Context) {
	comments, err := h.ticketService.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, comments)
}

// AddComment posts a comment; internal comments are hidden from the client portal
// @Summary      Add ticket comment
// @Tags         tickets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Ticket ID"
// @Param        payload  body      service.CommentRequest  true  "Comment"
// @Success      201      {object}  response.Response{data=model.TicketComment}
// @Router       /tickets/{id}/comments [post]
func (h *TicketHandler) AddComment(c *gin.Context) {
	var req service.CommentRequest
	if !bind(c, &req) {
		return
	}
	comment, err := h.ticketService.AddComment(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, comment)
}
