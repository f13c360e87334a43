package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/dto"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, req service.ReportRequest) (*service.ReportFile, error)
}

// ReportHandler renders laporan downloads.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Generate godoc
// @Summary Download a laporan
// @Tags Laporan
// @Produce octet-stream
// @Param type path string true "permohonan|layanan|pengguna"
// @Param format query string false "csv|pdf|xlsx"
// @Param start_date query string true "YYYY-MM-DD"
// @Param end_date query string true "YYYY-MM-DD"
// @Param status query string false "Stage, permohonan only"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/laporan/{type} [get]
func (h *ReportHandler) Generate(c *gin.Context) {
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	file, err := h.service.Generate(c.Request.Context(), service.ReportRequest{
		Type:      service.ReportType(c.Param("type")),
		Format:    service.ReportFormat(q.Format),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Status:    models.Stage(q.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Body)
}
