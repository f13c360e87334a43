package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/dto"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type contactService interface {
	Send(ctx context.Context, in models.KontakInput) (*models.Kontak, error)
	List(ctx context.Context, q service.KontakQuery) ([]models.Kontak, error)
	Get(ctx context.Context, id int64) (*models.Kontak, error)
	SetStatus(ctx context.Context, id int64, status models.KontakStatus) error
	Reply(ctx context.Context, id int64, balasan string) error
	Delete(ctx context.Context, id int64) error
}

// ContactHandler serves the public contact form and the staff inbox.
type ContactHandler struct {
	service contactService
}

// NewContactHandler constructs the handler.
func NewContactHandler(service contactService) *ContactHandler {
	return &ContactHandler{service: service}
}

// Send godoc
// @Summary Send a contact message
// @Tags Kontak
// @Accept json
// @Produce json
// @Param payload body models.KontakInput true "Message"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /kontak [post]
func (h *ContactHandler) Send(c *gin.Context) {
	var in models.KontakInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	msg, err := h.service.Send(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg, response.WithNotice(models.NewNotice(models.NoticeSuccess, service.MsgKontakSent)))
}

// List godoc
// @Summary Staff inbox
// @Tags Kontak
// @Produce json
// @Param search query string false "Matches nama, email or subjek"
// @Param status query string false "baru|dibaca|dibalas"
// @Success 200 {object} response.Envelope
// @Router /admin/kontak [get]
func (h *ContactHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), service.KontakQuery{
		Search: c.Query("search"),
		Status: models.KontakStatus(c.Query("status")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Open a message
// @Description Opening a new message marks it as read
// @Tags Kontak
// @Produce json
// @Param id path int true "Kontak ID"
// @Success 200 {object} response.Envelope
// @Router /admin/kontak/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	msg, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, msg, nil)
}

// SetStatus godoc
// @Summary Change a message status
// @Tags Kontak
// @Accept json
// @Produce json
// @Param id path int true "Kontak ID"
// @Param payload body dto.KontakStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /admin/kontak/{id} [put]
func (h *ContactHandler) SetStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.KontakStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	if err := h.service.SetStatus(c.Request.Context(), id, models.KontakStatus(req.Status)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id, "status": req.Status}, nil,
		response.WithNotice(models.NewNotice(models.NoticeSuccess, service.MsgKontakUpdated)))
}

// Reply godoc
// @Summary Reply to a message
// @Tags Kontak
// @Accept json
// @Produce json
// @Param id path int true "Kontak ID"
// @Param payload body models.KontakReply true "Reply"
// @Success 200 {object} response.Envelope
// @Router /admin/kontak/{id}/reply [post]
func (h *ContactHandler) Reply(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.KontakReply
	if err := c.ShouldBindJSON(&req); err != nil {
		// an empty or malformed body falls through to the blank reply check
		req = models.KontakReply{}
	}
	if err := h.service.Reply(c.Request.Context(), id, req.Balasan); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id}, nil,
		response.WithNotice(models.NewNotice(models.NoticeSuccess, service.MsgReplySent)))
}

// Delete godoc
// @Summary Delete a message
// @Tags Kontak
// @Produce json
// @Param id path int true "Kontak ID"
// @Success 200 {object} response.Envelope
// @Router /admin/kontak/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id}, nil,
		response.WithNotice(models.NewNotice(models.NoticeSuccess, "Pesan berhasil dihapus")))
}
