package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/pkg/response"
)

// ReportHandler streams inventory exports.
type ReportHandler struct {
	service *services.ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// GET /api/reports/export?format=csv|excel&category_id=...
func (h *ReportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", services.ReportFormatCSV)

	report, err := h.service.Export(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), format, c.Query("category_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}
