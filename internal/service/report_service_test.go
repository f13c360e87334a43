package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

type fakeReportAPI struct {
	pages     map[int][]models.Permohonan
	lastPage  int
	pageCalls []int
}

func (f *fakeReportAPI) ListPermohonan(ctx context.Context, page, perPage int) (*models.PermohonanPage, error) {
	f.pageCalls = append(f.pageCalls, page)
	return &models.PermohonanPage{Data: f.pages[page], CurrentPage: page, LastPage: f.lastPage, PerPage: perPage}, nil
}

func (f *fakeReportAPI) ListLayanan(ctx context.Context, kategori models.Kategori) ([]models.Layanan, error) {
	return []models.Layanan{{Nama: "Surat Pengantar KTP", Kategori: models.KategoriKependudukan, WaktuProses: "3 hari", Biaya: "Gratis", Status: models.LayananAktif}}, nil
}

func (f *fakeReportAPI) ListUsers(ctx context.Context) ([]models.User, error) {
	return []models.User{{Name: "Admin", Username: "admin", Email: "admin@kelurahan.id", Role: models.RoleAdmin, Status: models.UserAktif}}, nil
}

func newReportFixture() (*ReportService, *fakeReportAPI) {
	items := samplePermohonan()
	api := &fakeReportAPI{pages: map[int][]models.Permohonan{1: items[:2], 2: items[2:]}, lastPage: 2}
	svc := NewReportService(api, nil, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC) }
	return svc, api
}

func TestGenerateRequiresDateRange(t *testing.T) {
	svc, api := newReportFixture()

	for _, typ := range []ReportType{ReportPermohonan, ReportLayanan, ReportPengguna} {
		_, err := svc.Generate(context.Background(), ReportRequest{Type: typ, StartDate: "2025-01-01"})
		require.Error(t, err)
		assert.Equal(t, MsgDateRangeRequired, appErrors.FromError(err).Message)
	}
	assert.Empty(t, api.pageCalls)

	_, err := svc.Generate(context.Background(), ReportRequest{Type: ReportPermohonan, StartDate: "2025-01-31", EndDate: "2025-01-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestGeneratePermohonanCSV(t *testing.T) {
	svc, api := newReportFixture()

	file, err := svc.Generate(context.Background(), ReportRequest{Type: ReportPermohonan, StartDate: "2025-01-05", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, api.pageCalls)
	assert.Equal(t, "Laporan_Permohonan_2025-02-01.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)
	assert.Equal(t, 2, file.Rows)
	require.True(t, bytes.HasPrefix(file.Body, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(file.Body[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"No. Registrasi", "Nama", "NIK", "Layanan", "Status", "Tanggal"}, records[0])
	assert.Equal(t, []string{"REQ202501002", "Siti Aminah", "3201010101010002", "Surat Keterangan Domisili", "proses", "10/01/2025"}, records[1])
}

func TestGenerateOtherFormats(t *testing.T) {
	svc, _ := newReportFixture()

	pdf, err := svc.Generate(context.Background(), ReportRequest{Type: ReportLayanan, Format: FormatPDF, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "Laporan_Layanan_2025-02-01.pdf", pdf.Filename)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	xlsx, err := svc.Generate(context.Background(), ReportRequest{Type: ReportPengguna, Format: FormatXLSX, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "Laporan_Pengguna_2025-02-01.xlsx", xlsx.Filename)
	assert.True(t, bytes.HasPrefix(xlsx.Body, []byte("PK")))
	assert.Equal(t, 1, xlsx.Rows)

	_, err = svc.Generate(context.Background(), ReportRequest{Type: ReportPengguna, Format: "docx", StartDate: "2025-01-01", EndDate: "2025-01-31"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
