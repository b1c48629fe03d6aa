package handler

import (
	"strings"

	"zyllen/internal/middleware"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// ClientHandler manages portal accounts of clients and contractors
type ClientHandler struct {
	userService service.ExternalUserService
	gate        *middleware.Gate
}

func NewClientHandler(userService service.ExternalUserService, gate *middleware.Gate) *ClientHandler {
	return &ClientHandler{userService: userService, gate: gate}
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/clients/users", h.gate.Authenticate())
	{
		users.GET("", h.gate.RequirePermission("clients.view"), h.ListUsers)
		users.GET("/:id", h.gate.RequirePermission("clients.view"), h.GetUser)
		users.POST("", h.gate.RequirePermission("clients.create"), h.CreateUser)
		users.PUT("/:id", h.gate.RequirePermission("clients.edit"), h.UpdateUser)
		users.DELETE("/:id", h.gate.RequirePermission("clients.delete"), h.DeleteUser)
	}
}

// ListUsers returns portal users
// @Summary      List portal users
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name or email"
// @Param        type    query     string  false  "CLIENT or CONTRACTOR"
// @Success      200     {object}  response.Response{data=[]service.PortalUserResponse}
// @Router       /clients/users [get]
func (h *ClientHandler) ListUsers(c *gin.Context) {
	p := pagination.Parse(c)
	users, total, err := h.userService.ListUsers(c.Request.Context(), strings.ToUpper(c.Query("type")), p.Search, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, users, p, total)
}

// GetUser returns one portal user
// @Summary      Get portal user
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.PortalUserResponse}
// @Router       /clients/users/{id} [get]
func (h *ClientHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// CreateUser creates a portal account bound to a company or a contractor
// @Summary      Create portal user
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateExternalUserRequest  true  "User"
// @Success      201      {object}  response.Response{data=service.PortalUserResponse}
// @Failure      409      {object}  response.Response
// @Router       /clients/users [post]
func (h *ClientHandler) CreateUser(c *gin.Context) {
	var req service.CreateExternalUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, user)
}

// UpdateUser edits a portal account; deactivating it ends its sessions
// @Summary      Update portal user
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                             true  "User ID"
// @Param        payload  body      service.UpdateExternalUserRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.PortalUserResponse}
// @Router       /clients/users/{id} [put]
func (h *ClientHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateExternalUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, user)
}

// DeleteUser removes a portal account
// @Summary      Delete portal user
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Router       /clients/users/{id} [delete]
func (h *ClientHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "User deleted successfully"})
}
