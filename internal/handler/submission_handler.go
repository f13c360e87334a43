package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/dto"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type stagingService interface {
	CreateDraft(ctx context.Context) (*models.Draft, error)
	Draft(ctx context.Context, draftID string) (*models.Draft, error)
	Stage(ctx context.Context, draftID, slot, filename string, size int64, content io.Reader) (*models.StagedFile, error)
	Unstage(ctx context.Context, draftID, slot string) (*models.Draft, error)
}

type submissionService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*models.SubmissionResult, error)
	AttachRemaining(ctx context.Context, permohonanID int64) (*models.SubmissionResult, error)
}

// SubmissionHandler serves the public request form: live validation, the draft staging area and
// the create-then-attach submit.
type SubmissionHandler struct {
	staging     stagingService
	submissions submissionService
	now         func() time.Time
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(staging stagingService, submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{staging: staging, submissions: submissions, now: time.Now}
}

// Validate godoc
// @Summary Validate form fields
// @Description Runs the field rules over the submitted values; unknown fields are accepted
// @Tags Permohonan
// @Accept json
// @Produce json
// @Param payload body dto.ValidateFieldsRequest true "Field values"
// @Success 200 {object} response.Envelope
// @Router /validate [post]
func (h *SubmissionHandler) Validate(c *gin.Context) {
	var req dto.ValidateFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	errs := fieldcheck.ValidateValues(req.Values, h.now())
	res := dto.ValidateFieldsResponse{Valid: !errs.HasErrors(), Errors: map[string]string{}}
	for field, msg := range errs {
		if msg != "" {
			res.Errors[string(field)] = msg
		}
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// CreateDraft godoc
// @Summary Open a file staging area
// @Tags Permohonan
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /drafts [post]
func (h *SubmissionHandler) CreateDraft(c *gin.Context) {
	draft, err := h.staging.CreateDraft(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, draft)
}

// GetDraft godoc
// @Summary Show staged files
// @Tags Permohonan
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /drafts/{id} [get]
func (h *SubmissionHandler) GetDraft(c *gin.Context) {
	draft, err := h.staging.Draft(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// StageFile godoc
// @Summary Stage one attachment
// @Description PDF, JPG or PNG up to 5MB, one file per slot; a new file replaces the old one
// @Tags Permohonan
// @Accept mpfd
// @Produce json
// @Param id path string true "Draft ID"
// @Param slot path string true "Attachment slot, e.g. ktp"
// @Param file formData file true "Attachment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /drafts/{id}/files/{slot} [put]
func (h *SubmissionHandler) StageFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithFields(appErrors.ErrValidation, "", []appErrors.FieldError{
			{Field: "file", Message: "Pilih file terlebih dahulu"},
		}))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	draftID := c.Param("id")
	staged, err := h.staging.Stage(c.Request.Context(), draftID, c.Param("slot"), header.Filename, header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.StagedFileResponse{DraftID: draftID, File: *staged}, nil)
}

// UnstageFile godoc
// @Summary Remove a staged attachment
// @Tags Permohonan
// @Produce json
// @Param id path string true "Draft ID"
// @Param slot path string true "Attachment slot"
// @Success 200 {object} response.Envelope
// @Router /drafts/{id}/files/{slot} [delete]
func (h *SubmissionHandler) UnstageFile(c *gin.Context) {
	draft, err := h.staging.Unstage(c.Request.Context(), c.Param("id"), c.Param("slot"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// Submit godoc
// @Summary Submit a request
// @Description Creates the request upstream, then forwards every staged file. When some uploads
// @Description fail the tracking number is still returned with a warning.
// @Tags Permohonan
// @Accept json
// @Produce json
// @Param payload body dto.SubmitPermohonanRequest true "Request form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /permohonan [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req dto.SubmitPermohonanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}
	result, err := h.submissions.Submit(c.Request.Context(), service.SubmitInput{
		Applicant: req.Applicant,
		LayananID: req.LayananID,
		DraftID:   req.DraftID,
	})
	h.respondResult(c, http.StatusCreated, result, err,
		"Permohonan berhasil dikirim! Nomor registrasi: "+nomorOf(result))
}

// ResumeAttachments godoc
// @Summary Retry outstanding attachments
// @Tags Permohonan
// @Produce json
// @Param id path int true "Permohonan ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /permohonan/{id}/attachments/resume [post]
func (h *SubmissionHandler) ResumeAttachments(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.submissions.AttachRemaining(c.Request.Context(), id)
	h.respondResult(c, http.StatusOK, result, err, "Semua berkas berhasil diunggah")
}

func (h *SubmissionHandler) respondResult(c *gin.Context, status int, result *models.SubmissionResult, err error, success string) {
	var partial *service.PartialUploadError
	switch {
	case errors.As(err, &partial):
		msg := "Permohonan tersimpan dengan nomor " + partial.Result.NomorRegistrasi +
			", tetapi sebagian berkas gagal diunggah. Silakan unggah ulang."
		response.JSON(c, status, partial.Result, nil, response.WithNotice(models.NewNotice(models.NoticeWarning, msg).Extended()))
	case err != nil:
		response.Error(c, err)
	default:
		response.JSON(c, status, result, nil, response.WithNotice(models.NewNotice(models.NoticeSuccess, success)))
	}
}

func nomorOf(result *models.SubmissionResult) string {
	if result == nil {
		return ""
	}
	return result.NomorRegistrasi
}
