package dto

import "github.com/noah-isme/kelurahan-portal/internal/models"

// PermohonanListQuery binds the console list filters.
type PermohonanListQuery struct {
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
	Search  string `form:"search"`
	Status  string `form:"status" binding:"omitempty,oneof=baru proses selesai ditolak"`
	Layanan string `form:"layanan"`
	From    string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To      string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// TransitionRequest moves one request to a new stage. Current is the stage the console showed.
type TransitionRequest struct {
	Status  string `json:"status" binding:"required,oneof=baru proses selesai ditolak"`
	Catatan string `json:"catatan" binding:"max=1000"`
	Current string `json:"current" binding:"omitempty,oneof=baru proses selesai ditolak"`
}

// BulkStatusRequest changes the stage of every selected request.
type BulkStatusRequest struct {
	IDs     []int64 `json:"ids"`
	Status  string  `json:"status" binding:"required,oneof=baru proses selesai ditolak"`
	Catatan string  `json:"catatan" binding:"max=1000"`
	Confirm bool    `json:"confirm"`
}

// BulkDeleteRequest removes every selected request.
type BulkDeleteRequest struct {
	IDs     []int64 `json:"ids"`
	Confirm bool    `json:"confirm"`
}

// ExportQuery filters the upstream permohonan export.
type ExportQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
	Status    string `form:"status" binding:"omitempty,oneof=baru proses selesai ditolak"`
}

// ReportQuery selects the rendered laporan format and range.
type ReportQuery struct {
	Format    string `form:"format" binding:"omitempty,oneof=csv pdf xlsx"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Status    string `form:"status" binding:"omitempty,oneof=baru proses selesai ditolak"`
}

// BerkasLinkResponse is a short-lived download link for one attachment.
type BerkasLinkResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

// TransitionResponse is the refreshed console page after a stage change.
type TransitionResponse struct {
	Items      []models.Permohonan `json:"items"`
	Pagination *models.Pagination  `json:"pagination"`
}
