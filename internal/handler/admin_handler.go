package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/dto"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
	"github.com/noah-isme/kelurahan-portal/pkg/storage"
)

const linkKindBerkas = "berkas"

type adminService interface {
	List(ctx context.Context, q service.PermohonanQuery) (*service.PermohonanList, error)
	Detail(ctx context.Context, id int64) (*models.Permohonan, error)
	Transition(ctx context.Context, id int64, in service.TransitionInput) (*service.PermohonanList, *models.Notice, error)
	BulkTransition(ctx context.Context, ids []int64, target models.Stage, note string, confirmed bool) (*service.BulkOutcome, error)
	BulkDelete(ctx context.Context, ids []int64, confirmed bool) (*service.BulkOutcome, error)
	Export(ctx context.Context, format string, q models.PermohonanExportQuery) (*portalapi.File, error)
}

type berkasDownloader interface {
	DownloadBerkas(ctx context.Context, id int64) (*portalapi.File, error)
}

type sessionLookup interface {
	Lookup(ctx context.Context, id string) (*models.Session, error)
}

type linkSigner interface {
	Generate(kind, ref string) (string, time.Time, error)
	Parse(token string) (storage.LinkClaims, error)
}

// AdminHandler serves the staff request console.
type AdminHandler struct {
	service    adminService
	berkas     berkasDownloader
	sessions   sessionLookup
	signer     linkSigner
	linkPrefix string
}

// NewAdminHandler constructs the handler. linkPrefix is the public path signed download links
// point at.
func NewAdminHandler(svc adminService, berkas berkasDownloader, sessions sessionLookup, signer linkSigner, linkPrefix string) *AdminHandler {
	return &AdminHandler{service: svc, berkas: berkas, sessions: sessions, signer: signer, linkPrefix: linkPrefix}
}

// List godoc
// @Summary List requests
// @Description Fetches one upstream page and filters it locally
// @Tags Admin Permohonan
// @Produce json
// @Param page query int false "Page"
// @Param per_page query int false "Page size"
// @Param search query string false "Nama, nomor registrasi or NIK"
// @Param status query string false "baru|proses|selesai|ditolak"
// @Param layanan query string false "Exact service name"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /admin/permohonan [get]
func (h *AdminHandler) List(c *gin.Context) {
	var q dto.PermohonanListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	list, err := h.service.List(c.Request.Context(), toPermohonanQuery(q))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list.Items, list.Pagination, response.Meta{"fetched": list.Fetched})
}

// Detail godoc
// @Summary Request detail
// @Tags Admin Permohonan
// @Produce json
// @Param id path int true "Permohonan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/permohonan/{id} [get]
func (h *AdminHandler) Detail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	p, err := h.service.Detail(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, p, nil)
}

// Transition godoc
// @Summary Change a request stage
// @Description Returns the refreshed list page selected by the query filters
// @Tags Admin Permohonan
// @Accept json
// @Produce json
// @Param id path int true "Permohonan ID"
// @Param payload body dto.TransitionRequest true "Target stage"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/permohonan/{id}/status [put]
func (h *AdminHandler) Transition(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	var q dto.PermohonanListQuery
	_ = c.ShouldBindQuery(&q)

	list, notice, err := h.service.Transition(c.Request.Context(), id, service.TransitionInput{
		Target:  models.Stage(req.Status),
		Note:    req.Catatan,
		Current: models.Stage(req.Current),
		Refresh: toPermohonanQuery(q),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	res := dto.TransitionResponse{}
	if list != nil {
		res.Items = list.Items
		res.Pagination = list.Pagination
	}
	response.JSON(c, http.StatusOK, res, nil, response.WithNotice(notice))
}

// BulkStatus godoc
// @Summary Change the stage of several requests
// @Description Without confirm the call fails with 412 and the prompt to show
// @Tags Admin Permohonan
// @Accept json
// @Produce json
// @Param payload body dto.BulkStatusRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/permohonan/bulk-status [post]
func (h *AdminHandler) BulkStatus(c *gin.Context) {
	var req dto.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	outcome, err := h.service.BulkTransition(c.Request.Context(), req.IDs, models.Stage(req.Status), req.Catatan, req.Confirm)
	h.respondBulk(c, outcome, err)
}

// BulkDelete godoc
// @Summary Delete several requests
// @Tags Admin Permohonan
// @Accept json
// @Produce json
// @Param payload body dto.BulkDeleteRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /admin/permohonan/bulk-delete [post]
func (h *AdminHandler) BulkDelete(c *gin.Context) {
	var req dto.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	outcome, err := h.service.BulkDelete(c.Request.Context(), req.IDs, req.Confirm)
	h.respondBulk(c, outcome, err)
}

func (h *AdminHandler) respondBulk(c *gin.Context, outcome *service.BulkOutcome, err error) {
	if err != nil {
		var confirm *service.ConfirmationError
		if errors.As(err, &confirm) {
			response.Error(c, err, response.Meta{"confirm_prompt": confirm.Prompt})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil, response.WithNotice(outcome.Notice))
}

// Export godoc
// @Summary Export requests
// @Description Proxies the upstream Excel or PDF export
// @Tags Admin Permohonan
// @Produce octet-stream
// @Param format path string true "excel|pdf"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param status query string false "Stage"
// @Success 200 {file} binary
// @Router /admin/permohonan/export/{format} [get]
func (h *AdminHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("format"), models.PermohonanExportQuery{
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

// BerkasLink godoc
// @Summary Signed download link for an attachment
// @Tags Admin Permohonan
// @Produce json
// @Param id path int true "Berkas ID"
// @Success 200 {object} response.Envelope
// @Router /admin/berkas/{id}/link [get]
func (h *AdminHandler) BerkasLink(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	session := sessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token, expiresAt, err := h.signer.Generate(linkKindBerkas, fmt.Sprintf("%d:%s", id, session.ID))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign link"))
		return
	}
	response.JSON(c, http.StatusOK, dto.BerkasLinkResponse{
		URL:       h.linkPrefix + "?token=" + url.QueryEscape(token),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil)
}

// DownloadBerkas godoc
// @Summary Download an attachment through a signed link
// @Tags Permohonan
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /berkas/download [get]
func (h *AdminHandler) DownloadBerkas(c *gin.Context) {
	claims, err := h.signer.Parse(c.Query("token"))
	if err != nil || claims.Kind != linkKindBerkas {
		msg := "Tautan unduhan tidak valid"
		if errors.Is(err, storage.ErrLinkExpired) {
			msg = "Tautan unduhan sudah kedaluwarsa"
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, msg))
		return
	}
	rawID, sessionID, ok := strings.Cut(claims.Ref, ":")
	id, perr := strconv.ParseInt(rawID, 10, 64)
	if !ok || perr != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Tautan unduhan tidak valid"))
		return
	}
	session, err := h.sessions.Lookup(c.Request.Context(), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.berkas.DownloadBerkas(portalapi.WithToken(c.Request.Context(), session.Token), id)
	if err != nil {
		response.Error(c, portalapi.AsAppError(err))
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Body)
}

func toPermohonanQuery(q dto.PermohonanListQuery) service.PermohonanQuery {
	return service.PermohonanQuery{
		Page:    q.Page,
		PerPage: q.PerPage,
		Search:  q.Search,
		Status:  models.Stage(q.Status),
		Layanan: q.Layanan,
		From:    q.From,
		To:      q.To,
	}
}
