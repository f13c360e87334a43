package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type dashboardService interface {
	Stats(ctx context.Context, days int) (*models.DashboardStats, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Stats godoc
// @Summary Staff dashboard
// @Tags Dashboard
// @Produce json
// @Param days query int false "Trend window in days (default 7)"
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	start := time.Now()
	stats, err := h.service.Stats(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, response.Meta{"processing_time_ms": time.Since(start).Milliseconds()})
}
