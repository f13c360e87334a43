package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/dto"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type trackingService interface {
	Check(ctx context.Context, nomor string) (*models.TrackingView, error)
}

// TrackingHandler serves the public status page.
type TrackingHandler struct {
	service trackingService
}

// NewTrackingHandler constructs the handler.
func NewTrackingHandler(service trackingService) *TrackingHandler {
	return &TrackingHandler{service: service}
}

// Check godoc
// @Summary Check request status
// @Description An unknown number is a regular result with found=false
// @Tags Permohonan
// @Accept json
// @Produce json
// @Param payload body dto.StatusCheckRequest true "Tracking number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /status/check [post]
func (h *TrackingHandler) Check(c *gin.Context) {
	var req dto.StatusCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	view, err := h.service.Check(c.Request.Context(), req.NomorRegistrasi)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !view.Found {
		response.JSON(c, http.StatusOK, view, nil, response.WithNotice(models.NewNotice(models.NoticeError, view.Message)))
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
