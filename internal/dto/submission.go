package dto

import "github.com/noah-isme/kelurahan-portal/internal/models"

// SubmitPermohonanRequest is the public request form. Binding reports every failing field at once;
// the service repeats the same rules for callers that do not come through the gateway.
type SubmitPermohonanRequest struct {
	models.Applicant
	LayananID int64  `json:"layanan_id" form:"layanan_id" binding:"required"`
	DraftID   string `json:"draft_id" form:"draft_id"`
}

// ValidateFieldsRequest carries raw form values for live validation.
type ValidateFieldsRequest struct {
	Values map[string]string `json:"values" binding:"required"`
}

// ValidateFieldsResponse maps each failing field to its message; valid is true when none failed.
type ValidateFieldsResponse struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors"`
}

// StatusCheckRequest looks a request up by its tracking number.
type StatusCheckRequest struct {
	NomorRegistrasi string `json:"nomor_registrasi"`
}

// StagedFileResponse echoes one staged attachment back to the form.
type StagedFileResponse struct {
	DraftID string            `json:"draft_id"`
	File    models.StagedFile `json:"file"`
}
