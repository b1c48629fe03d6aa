package handler

import (
	"zyllen/internal/middleware"
	"zyllen/internal/service"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	accessService service.AccessService
	gate          *middleware.Gate
}

func NewRoleHandler(accessService service.AccessService, gate *middleware.Gate) *RoleHandler {
	return &RoleHandler{accessService: accessService, gate: gate}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	access := router.Group("/access")
	access.Use(h.gate.Authenticate(), h.gate.RequirePermission("access.manage"))
	{
		access.GET("/roles", h.ListRoles)
		access.GET("/roles/:id", h.GetRole)
		access.POST("/roles", h.CreateRole)
		access.PUT("/roles/:id", h.UpdateRole)
		access.DELETE("/roles/:id", h.DeleteRole)
		access.GET("/roles/:id/permissions", h.GetRolePermissions)
		access.PUT("/roles/:id/permissions", h.ReplaceRolePermissions)
		access.GET("/permissions", h.ListPermissions)
	}
}

// ListRoles returns all roles with their permission codes
// @Summary      List roles
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RoleResponse}
// @Router       /access/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	roles, err := h.accessService.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, roles)
}

// GetRole returns a single role by ID
// @Summary      Get role
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /access/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.accessService.GetRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, role)
}

// CreateRole creates a new custom role
// @Summary      Create role
// @Tags         access
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRoleRequest  true  "Role"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      409      {object}  response.Response
// @Router       /access/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	var req service.CreateRoleRequest
	if !bind(c, &req) {
		return
	}

	role, err := h.accessService.CreateRole(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, role)
}

// UpdateRole updates a role's name and description
// @Summary      Update role
// @Tags         access
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Router       /access/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	var req service.UpdateRoleRequest
	if !bind(c, &req) {
		return
	}

	role, err := h.accessService.UpdateRole(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, role)
}

// DeleteRole deletes a non-system role without users
// @Summary      Delete role
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /access/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	if err := h.accessService.DeleteRole(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Role deleted successfully"})
}

// ListPermissions returns the permission catalog
// @Summary      List permissions
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Router       /access/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.accessService.ListPermissions(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, perms)
}

// GetRolePermissions returns the permission ids currently granted to a role
// @Summary      Role permission ids
// @Tags         access
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RolePermissionsResponse}
// @Router       /access/roles/{id}/permissions [get]
func (h *RoleHandler) GetRolePermissions(c *gin.Context) {
	perms, err := h.accessService.GetRolePermissionIDs(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, perms)
}

// ReplaceRolePermissions overwrites a role's permission set with the submitted one
// @Summary      Replace role permissions
// @Tags         access
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                             true  "Role ID"
// @Param        payload  body      service.ReplacePermissionsRequest  true  "Desired permission ids"
// @Success      200      {object}  response.Response{data=service.RolePermissionsResponse}
// @Failure      400      {object}  response.Response
// @Router       /access/roles/{id}/permissions [put]
func (h *RoleHandler) ReplaceRolePermissions(c *gin.Context) {
	var req service.ReplacePermissionsRequest
	if !bind(c, &req) {
		return
	}

	perms, err := h.accessService.ReplaceRolePermissions(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, perms)
}
