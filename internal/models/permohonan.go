package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage is the lifecycle stage of a request. The set is closed: decoding any other value fails.
type Stage string

const (
	StageBaru    Stage = "baru"
	StageProses  Stage = "proses"
	StageSelesai Stage = "selesai"
	StageDitolak Stage = "ditolak"
)

// Stages returns every stage in canonical display order.
func Stages() []Stage {
	return []Stage{StageBaru, StageProses, StageSelesai, StageDitolak}
}

// ParseStage validates raw against the closed stage set.
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageBaru, StageProses, StageSelesai, StageDitolak:
		return true
	}
	return false
}

// Label is the step title shown on the tracking page. The upstream records the same label in
// each StatusEvent.
func (s Stage) Label() string {
	switch s {
	case StageBaru:
		return "Pengajuan Diterima"
	case StageProses:
		return "Verifikasi Dokumen"
	case StageSelesai:
		return "Selesai - Siap Diambil"
	case StageDitolak:
		return "Ditolak"
	default:
		panic(fmt.Sprintf("models: unhandled stage %q", string(s)))
	}
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	switch s {
	case StageSelesai, StageDitolak:
		return true
	case StageBaru, StageProses:
		return false
	default:
		panic(fmt.Sprintf("models: unhandled stage %q", string(s)))
	}
}

func (s Stage) rank() int {
	switch s {
	case StageBaru:
		return 0
	case StageProses:
		return 1
	case StageSelesai, StageDitolak:
		return 2
	default:
		panic(fmt.Sprintf("models: unhandled stage %q", string(s)))
	}
}

// CanTransitionTo reports whether moving from s to target keeps the event history a subsequence
// of baru → proses → selesai or baru → proses → ditolak.
func (s Stage) CanTransitionTo(target Stage) bool {
	if !s.Valid() || !target.Valid() || s.Terminal() {
		return false
	}
	return target.rank() > s.rank()
}

// UnmarshalJSON rejects values outside the closed stage set.
func (s *Stage) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode stage: %w", err)
	}
	parsed, err := ParseStage(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Gender values accepted by the upstream.
type Gender string

const (
	GenderLakiLaki  Gender = "Laki-laki"
	GenderPerempuan Gender = "Perempuan"
)

// Applicant holds the identity fields a citizen fills in on the request form. The binding tags are
// the field rules registered by fieldcheck.Register.
type Applicant struct {
	Nama         string `json:"nama" form:"nama" binding:"required,nama_id"`
	NIK          string `json:"nik" form:"nik" binding:"required,nik"`
	TempatLahir  string `json:"tempat_lahir" form:"tempat_lahir" binding:"required,tempat_lahir_id"`
	TanggalLahir string `json:"tanggal_lahir" form:"tanggal_lahir" binding:"required,tanggal_lahir"`
	JenisKelamin Gender `json:"jenis_kelamin" form:"jenis_kelamin" binding:"required,jenis_kelamin"`
	Alamat       string `json:"alamat" form:"alamat" binding:"required"`
	RT           string `json:"rt,omitempty" form:"rt" binding:"omitempty,rtrw"`
	RW           string `json:"rw,omitempty" form:"rw" binding:"omitempty,rtrw"`
	NoHP         string `json:"no_hp" form:"no_hp" binding:"required,no_hp_id"`
	Email        string `json:"email,omitempty" form:"email" binding:"omitempty,email_id"`
	Keperluan    string `json:"keperluan" form:"keperluan" binding:"required"`
	Keterangan   string `json:"keterangan,omitempty" form:"keterangan"`
}

// Permohonan is one citizen request as returned by the upstream.
type Permohonan struct {
	ID              int64  `json:"id"`
	NomorRegistrasi string `json:"nomor_registrasi"`
	Applicant
	LayananID       int64           `json:"layanan_id"`
	Layanan         *LayananSummary `json:"layanan,omitempty"`
	Status          Stage           `json:"status"`
	CatatanAdmin    string          `json:"catatan_admin,omitempty"`
	CreatedAt       Timestamp       `json:"created_at"`
	EstimasiSelesai Timestamp       `json:"estimasi_selesai"`
	Berkas          []Berkas        `json:"berkas,omitempty"`
	StatusTracking  []StatusEvent   `json:"status_tracking,omitempty"`
}

// LayananName returns the embedded service name or an empty string.
func (p Permohonan) LayananName() string {
	if p.Layanan == nil {
		return ""
	}
	return p.Layanan.Nama
}

// CreatePermohonanInput is the body of POST /permohonan upstream.
type CreatePermohonanInput struct {
	Applicant
	LayananID int64 `json:"layanan_id"`
}

// CreatedPermohonan is the upstream reply to a successful create.
type CreatedPermohonan struct {
	Permohonan      Permohonan `json:"permohonan"`
	NomorRegistrasi string     `json:"nomor_registrasi"`
}

// StatusEvent is one recorded stage transition. Events are append-only and owned by the upstream.
type StatusEvent struct {
	Step       string    `json:"step"`
	Tanggal    Timestamp `json:"tanggal"`
	Keterangan string    `json:"keterangan,omitempty"`
}

// Matches reports whether the event records the given stage. Upstream writes the step label, some
// older rows carry the stage key instead.
func (e StatusEvent) Matches(stage Stage) bool {
	return e.Step == stage.Label() || Stage(e.Step) == stage
}

// PermohonanPage is the paginated list shape of GET /permohonan.
type PermohonanPage struct {
	Data        []Permohonan `json:"data"`
	CurrentPage int          `json:"current_page"`
	LastPage    int          `json:"last_page"`
	PerPage     int          `json:"per_page"`
	Total       int          `json:"total"`
}

// Pagination converts the upstream page metadata into the gateway's pagination block.
func (p PermohonanPage) Pagination() *Pagination {
	return &Pagination{CurrentPage: p.CurrentPage, LastPage: p.LastPage, PerPage: p.PerPage, Total: p.Total}
}

// StatusUpdate is the body of PUT /permohonan/{id}/status.
type StatusUpdate struct {
	Status  Stage  `json:"status"`
	Catatan string `json:"catatan"`
}

// BulkStatusUpdate is the body of POST /permohonan/bulk-update-status.
type BulkStatusUpdate struct {
	IDs     []int64 `json:"ids"`
	Status  Stage   `json:"status"`
	Catatan string  `json:"catatan"`
}

// BulkItemResult is the optional per-item outcome some upstream versions return for bulk calls.
type BulkItemResult struct {
	ID      int64  `json:"id"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BulkResult summarises a bulk call.
type BulkResult struct {
	Affected int              `json:"affected"`
	Results  []BulkItemResult `json:"results,omitempty"`
}

// Failed counts per-item failures when the upstream reported them.
func (r BulkResult) Failed() int {
	failed := 0
	for _, item := range r.Results {
		if !item.Success {
			failed++
		}
	}
	return failed
}

// PermohonanExportQuery filters the upstream Excel/PDF exports.
type PermohonanExportQuery struct {
	StartDate string
	EndDate   string
	Status    Stage
}
