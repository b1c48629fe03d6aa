package handler

import (
	"zyllen/internal/middleware"
	"zyllen/internal/repository"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// CRUDPermissions names the permission code guarding each operation
type CRUDPermissions struct {
	View, Create, Edit, Delete string
}

// ScreenPermissions is the usual <screen>.view/create/edit/delete set
func ScreenPermissions(screen string) CRUDPermissions {
	return CRUDPermissions{
		View:   screen + ".view",
		Create: screen + ".create",
		Edit:   screen + ".edit",
		Delete: screen + ".delete",
	}
}

// ReferenceHandler serves CRUD for one lookup table under path
type ReferenceHandler[T repository.Reference, R any] struct {
	svc   service.ReferenceService[T, R]
	gate  *middleware.Gate
	path  string
	perms CRUDPermissions
}

func NewReferenceHandler[T repository.Reference, R any](svc service.ReferenceService[T, R], gate *middleware.Gate, path string, perms CRUDPermissions) *ReferenceHandler[T, R] {
	return &ReferenceHandler[T, R]{svc: svc, gate: gate, path: path, perms: perms}
}

func (h *ReferenceHandler[T, R]) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group(h.path, h.gate.Authenticate())
	{
		group.GET("", h.gate.RequirePermission(h.perms.View), h.List)
		group.GET("/:id", h.gate.RequirePermission(h.perms.View), h.Get)
		group.POST("", h.gate.RequirePermission(h.perms.Create), h.Create)
		group.PUT("/:id", h.gate.RequirePermission(h.perms.Edit), h.Update)
		group.DELETE("/:id", h.gate.RequirePermission(h.perms.Delete), h.Delete)
	}
}

func (h *ReferenceHandler[T, R]) List(c *gin.Context) {
	p := pagination.Parse(c)
	items, total, err := h.svc.List(c.Request.Context(), p.Page, p.Limit, p.Search)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, items, p, total)
}

func (h *ReferenceHandler[T, R]) Get(c *gin.Context) {
	item, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, item)
}

func (h *ReferenceHandler[T, R]) Create(c *gin.Context) {
	var req R
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, item)
}

func (h *ReferenceHandler[T, R]) Update(c *gin.Context) {
	var req R
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.Update(c.Request.Context(), actor(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, item)
}

func (h *ReferenceHandler[T, R]) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Deleted successfully"})
}
