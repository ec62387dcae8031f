package handler

import (
	"net/http"
	"time"

	"schoolhub/internal/middleware"
	"schoolhub/internal/model"
	"schoolhub/internal/service"
	"schoolhub/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard", middleware.RequireRole(model.RoleGroupAdmin, model.RoleSchoolAdmin), h.GetDashboard)
}

// GetDashboard returns the aggregated procurement view for the caller's group
// @Summary      Dashboard statistics
// @Description  Status breakdown, approved spend, top schools and recent requests for a date range
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query     string  false  "Range start (YYYY-MM-DD), defaults to 30 days ago"
// @Param        end_date    query     string  false  "Range end (YYYY-MM-DD), defaults to today"
// @Success      200         {object}  response.Response{data=model.DashboardResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/dashboard [get]
func (h *StatisticsHandler) GetDashboard(c *gin.Context) {
	actor, _ := c.MustGet("actor").(model.Actor)

	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -30)

	if v := c.Query("start_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD"))
			return
		}
		startDate = parsed
	}
	if v := c.Query("end_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid end_date, expected YYYY-MM-DD"))
			return
		}
		// Include the whole end day
		endDate = parsed.AddDate(0, 0, 1).Add(-time.Second)
	}

	dashboard, err := h.statisticsService.GetDashboard(c.Request.Context(), actor.SchoolGroupID.String(), startDate, endDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, dashboard))
}
