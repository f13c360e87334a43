package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, kategori models.Kategori, includeInactive bool) ([]models.Layanan, error)
	Get(ctx context.Context, id int64) (*models.Layanan, error)
	Create(ctx context.Context, in models.LayananInput) (*models.Layanan, error)
	Update(ctx context.Context, id int64, in models.LayananInput) (*models.Layanan, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogHandler serves the service catalogue.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// List godoc
// @Summary List active services
// @Tags Layanan
// @Produce json
// @Param kategori query string false "surat|kependudukan|keamanan|perizinan"
// @Success 200 {object} response.Envelope
// @Router /layanan [get]
func (h *CatalogHandler) List(c *gin.Context) {
	h.list(c, false)
}

// AdminList godoc
// @Summary List every service including inactive ones
// @Tags Layanan
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/layanan [get]
func (h *CatalogHandler) AdminList(c *gin.Context) {
	h.list(c, true)
}

func (h *CatalogHandler) list(c *gin.Context, includeInactive bool) {
	kategori := models.Kategori(strings.TrimSpace(c.Query("kategori")))
	items, err := h.service.List(c.Request.Context(), kategori, includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Service detail
// @Tags Layanan
// @Produce json
// @Param id path int true "Layanan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /layanan/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create a service
// @Tags Layanan
// @Accept json
// @Produce json
// @Param payload body models.LayananInput true "Layanan payload"
// @Success 201 {object} response.Envelope
// @Router /admin/layanan [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var in models.LayananInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	item, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item, response.WithNotice(models.NewNotice(models.NoticeSuccess, "Layanan berhasil ditambahkan")))
}

// Update godoc
// @Summary Update a service
// @Tags Layanan
// @Accept json
// @Produce json
// @Param id path int true "Layanan ID"
// @Param payload body models.LayananInput true "Layanan payload"
// @Success 200 {object} response.Envelope
// @Router /admin/layanan/{id} [put]
func (h *CatalogHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var in models.LayananInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	item, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil, response.WithNotice(models.NewNotice(models.NoticeSuccess, "Layanan berhasil diperbarui")))
}

// Delete godoc
// @Summary Delete a service
// @Tags Layanan
// @Produce json
// @Param id path int true "Layanan ID"
// @Success 200 {object} response.Envelope
// @Router /admin/layanan/{id} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"id": id}, nil, response.WithNotice(models.NewNotice(models.NoticeSuccess, "Layanan berhasil dihapus")))
}
