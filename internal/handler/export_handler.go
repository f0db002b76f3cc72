package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-adp/timetable-api/internal/models"
	"github.com/campus-adp/timetable-api/internal/service"
	"github.com/campus-adp/timetable-api/pkg/response"
)

type exportService interface {
	Timetable(ctx context.Context, filter models.SessionFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler streams rendered timetable files.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Timetable godoc
// @Summary Export the filtered timetable as CSV or PDF
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string true "csv or pdf"
// @Param instructorId query string false "Filter by instructor"
// @Param roomId query string false "Filter by room"
// @Param subjectId query string false "Filter by subject"
// @Param dateFrom query string false "Earliest date"
// @Param dateTo query string false "Latest date"
// @Success 200 {file} file
// @Router /export/timetable [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	file, err := h.service.Timetable(c.Request.Context(), sessionFilterFromQuery(c), service.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
