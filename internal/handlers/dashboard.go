package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/pkg/response"
)

// DashboardHandler exposes aggregate expiry statistics.
type DashboardHandler struct {
	service *services.DashboardService
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
