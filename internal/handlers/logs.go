package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/pkg/response"
)

// LogHandler exposes the notification history.
type LogHandler struct {
	service *services.LogService
}

// NewLogHandler constructs a LogHandler.
func NewLogHandler(service *services.LogService) *LogHandler {
	return &LogHandler{service: service}
}

// GET /api/notification-logs
func (h *LogHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	logs, total, err := h.service.List(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), services.ListLogsOptions{
		ServiceID: c.Query("service_id"),
		Page:      page,
		PageSize:  perPage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   int(total),
	})
}
