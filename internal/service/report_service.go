package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/export"
)

// ReportType names a laporan dataset.
type ReportType string

const (
	ReportPermohonan ReportType = "permohonan"
	ReportLayanan    ReportType = "layanan"
	ReportPengguna   ReportType = "pengguna"
)

// ReportFormat is the rendered file type.
type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatPDF  ReportFormat = "pdf"
	FormatXLSX ReportFormat = "xlsx"
)

const (
	MsgDateRangeRequired = "Pilih rentang tanggal terlebih dahulu"
	reportPageSize       = 100
	reportMaxPages       = 50
)

// ReportRequest selects a dataset, a format and, for requests, the date range and stage.
type ReportRequest struct {
	Type      ReportType
	Format    ReportFormat
	StartDate string
	EndDate   string
	Status    models.Stage
}

// ReportFile is a rendered laporan ready to download.
type ReportFile struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

type reportAPI interface {
	ListPermohonan(ctx context.Context, page, perPage int) (*models.PermohonanPage, error)
	ListLayanan(ctx context.Context, kategori models.Kategori) ([]models.Layanan, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ReportService builds the laporan datasets from upstream data and renders them.
type ReportService struct {
	api    reportAPI
	csv    csvRenderer
	pdf    pdfRenderer
	xlsx   xlsxRenderer
	now    func() time.Time
	logger *zap.Logger
}

// NewReportService constructs a ReportService. Nil renderers get the defaults.
func NewReportService(api reportAPI, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer, logger *zap.Logger) *ReportService {
	if csv == nil {
		csv = export.NewCSVExporter(true)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("Kantor Kelurahan")
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{api: api, csv: csv, pdf: pdf, xlsx: xlsx, now: time.Now, logger: logger}
}

// Generate fetches and renders one laporan.
func (s *ReportService) Generate(ctx context.Context, req ReportRequest) (*ReportFile, error) {
	if req.Format == "" {
		req.Format = FormatCSV
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Status tidak valid")
	}

	var (
		data  export.Dataset
		title string
	)
	switch req.Type {
	case ReportPermohonan:
		data, err = s.permohonanDataset(ctx, start, end, req.Status)
		title = "Laporan Permohonan"
	case ReportLayanan:
		data, err = s.layananDataset(ctx)
		title = "Laporan Layanan"
	case ReportPengguna:
		data, err = s.penggunaDataset(ctx)
		title = "Laporan Pengguna"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "Jenis laporan tidak dikenal")
	}
	if err != nil {
		return nil, err
	}

	subtitle := fmt.Sprintf("Periode %s s/d %s", start.Format("02/01/2006"), end.Format("02/01/2006"))
	base := strings.ReplaceAll(title, " ", "_") + "_" + s.now().Format(dateOnlyLayout)

	out := &ReportFile{Rows: len(data.Rows)}
	switch req.Format {
	case FormatCSV:
		out.Body, err = s.csv.Render(data)
		out.ContentType = "text/csv; charset=utf-8"
	case FormatPDF:
		out.Body, err = s.pdf.Render(data, title, subtitle)
		out.ContentType = "application/pdf"
	case FormatXLSX:
		out.Body, err = s.xlsx.Render(data, strings.TrimPrefix(title, "Laporan "))
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "Format laporan harus csv, pdf atau xlsx")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	out.Filename = base + "." + string(req.Format)
	s.logger.Info("report generated", zap.String("type", string(req.Type)), zap.String("format", string(req.Format)), zap.Int("rows", out.Rows))
	return out, nil
}

func parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	if strings.TrimSpace(startRaw) == "" || strings.TrimSpace(endRaw) == "" {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, MsgDateRangeRequired)
	}
	start, err := time.Parse(dateOnlyLayout, strings.TrimSpace(startRaw))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "Format tanggal harus YYYY-MM-DD")
	}
	end, err := time.Parse(dateOnlyLayout, strings.TrimSpace(endRaw))
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "Format tanggal harus YYYY-MM-DD")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "Tanggal akhir harus setelah tanggal awal")
	}
	return start, end, nil
}

// allPermohonan walks every upstream page.
func (s *ReportService) allPermohonan(ctx context.Context) ([]models.Permohonan, error) {
	var all []models.Permohonan
	for page := 1; page <= reportMaxPages; page++ {
		res, err := s.api.ListPermohonan(ctx, page, reportPageSize)
		if err != nil {
			return nil, portalapi.AsAppError(err)
		}
		all = append(all, res.Data...)
		if res.LastPage <= page || len(res.Data) == 0 {
			return all, nil
		}
	}
	s.logger.Warn("report truncated", zap.Int("pages", reportMaxPages))
	return all, nil
}

func (s *ReportService) permohonanDataset(ctx context.Context, start, end time.Time, status models.Stage) (export.Dataset, error) {
	items, err := s.allPermohonan(ctx)
	if err != nil {
		return export.Dataset{}, err
	}
	items = FilterPermohonan(items, PermohonanQuery{
		Status: status,
		From:   start.Format(dateOnlyLayout),
		To:     end.Format(dateOnlyLayout),
	})
	data := export.Dataset{Headers: []string{"No. Registrasi", "Nama", "NIK", "Layanan", "Status", "Tanggal"}}
	for _, p := range items {
		data.Rows = append(data.Rows, datasetRow(data.Headers,
			orDash(p.NomorRegistrasi),
			p.Nama,
			p.NIK,
			orDash(p.LayananName()),
			string(p.Status),
			p.CreatedAt.Format("02/01/2006"),
		))
	}
	return data, nil
}

func (s *ReportService) layananDataset(ctx context.Context) (export.Dataset, error) {
	items, err := s.api.ListLayanan(ctx, "")
	if err != nil {
		return export.Dataset{}, portalapi.AsAppError(err)
	}
	data := export.Dataset{Headers: []string{"Nama Layanan", "Kategori", "Waktu Proses", "Biaya", "Status"}}
	for _, l := range items {
		data.Rows = append(data.Rows, datasetRow(data.Headers, l.Nama, string(l.Kategori), string(l.WaktuProses), string(l.Biaya), string(l.Status)))
	}
	return data, nil
}

func (s *ReportService) penggunaDataset(ctx context.Context) (export.Dataset, error) {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return export.Dataset{}, portalapi.AsAppError(err)
	}
	data := export.Dataset{Headers: []string{"Nama", "Username", "Email", "Role", "Status"}}
	for _, u := range users {
		data.Rows = append(data.Rows, datasetRow(data.Headers, u.Name, u.Username, u.Email, string(u.Role), string(u.Status)))
	}
	return data, nil
}

func datasetRow(headers []string, values ...string) map[string]string {
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(values) {
			row[h] = values[i]
		}
	}
	return row
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
