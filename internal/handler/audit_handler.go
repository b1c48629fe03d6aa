package handler

import (
	"net/http"

	"zyllen/internal/middleware"
	"zyllen/internal/service"
	"zyllen/pkg/pagination"
	"zyllen/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	gate         *middleware.Gate
}

func NewAuditHandler(auditService service.AuditService, gate *middleware.Gate) *AuditHandler {
	return &AuditHandler{auditService: auditService, gate: gate}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/audit-logs", h.gate.Authenticate(), h.gate.RequirePermission("audit.view"))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the actor's name resolved
// @Summary      Get audit logs
// @Description  Lists the audit trail, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        entity_type  query     string  false  "Entity type, e.g. role, ticket"
// @Param        entity_id    query     string  false  "Entity ID"
// @Param        action       query     string  false  "CREATE, UPDATE, DELETE, STATUS, ..."
// @Param        user_id      query     string  false  "Actor ID"
// @Param        from         query     string  false  "RFC3339 or YYYY-MM-DD"
// @Param        to           query     string  false  "RFC3339 or YYYY-MM-DD (inclusive)"
// @Success      200          {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	var query service.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid query: "+err.Error()))
		return
	}
	p := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), query, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	page(c, logs, p, total)
}
