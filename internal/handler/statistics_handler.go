package handler

import (
	"net/http"
	"time"

	"zyllen/internal/middleware"
	"zyllen/internal/service"
	"zyllen/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	gate              *middleware.Gate
}

func NewStatisticsHandler(statisticsService service.StatisticsService, gate *middleware.Gate) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, gate: gate}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	statsGroup := router.Group("/dashboard", h.gate.Authenticate())
	{
		statsGroup.GET("/statistics", h.gate.RequirePermission("dashboard.view"), h.GetStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Backlog counters (pending movements, open tickets and OS, SKUs below minimum) plus activity bounded by time
// @Tags         dashboard
// @Produce      json
// @Param        start_date query string false "Start Date (RFC3339, default first day of the month)"
// @Param        end_date   query string false "End Date (RFC3339, default now)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /dashboard/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), startDate, endDate)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, stats)
}
