package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
)

type fakeAdminAPI struct {
	page        *models.PermohonanPage
	listCalls   int
	statusCalls []models.StatusUpdate
	statusErr   error
	bulkCalls   []models.BulkStatusUpdate
	bulkResult  *models.BulkResult
	deleteCalls [][]int64
}

func (f *fakeAdminAPI) ListPermohonan(ctx context.Context, page, perPage int) (*models.PermohonanPage, error) {
	f.listCalls++
	if f.page == nil {
		return &models.PermohonanPage{CurrentPage: page, LastPage: 1, PerPage: perPage}, nil
	}
	return f.page, nil
}

func (f *fakeAdminAPI) GetPermohonan(ctx context.Context, id int64) (*models.Permohonan, error) {
	return nil, &portalapi.APIError{Kind: portalapi.KindNotFound, Status: http.StatusNotFound, Message: "Permohonan tidak ditemukan"}
}

func (f *fakeAdminAPI) UpdateStatus(ctx context.Context, id int64, in models.StatusUpdate) error {
	f.statusCalls = append(f.statusCalls, in)
	return f.statusErr
}

func (f *fakeAdminAPI) BulkUpdateStatus(ctx context.Context, in models.BulkStatusUpdate) (*models.BulkResult, error) {
	f.bulkCalls = append(f.bulkCalls, in)
	return f.bulkResult, nil
}

func (f *fakeAdminAPI) BulkDelete(ctx context.Context, ids []int64) (*models.BulkResult, error) {
	f.deleteCalls = append(f.deleteCalls, ids)
	return f.bulkResult, nil
}

func (f *fakeAdminAPI) ExportPermohonan(ctx context.Context, format string, q models.PermohonanExportQuery) (*portalapi.File, error) {
	return &portalapi.File{ContentType: "application/pdf", Filename: "permohonan.pdf"}, nil
}

func samplePermohonan() []models.Permohonan {
	at := func(d int) models.Timestamp { return models.NewTimestamp(time.Date(2025, 1, d, 10, 0, 0, 0, time.UTC)) }
	return []models.Permohonan{
		{ID: 1, NomorRegistrasi: "REQ202501001", Applicant: models.Applicant{Nama: "Budi Santoso", NIK: "3201010101010001"},
			Layanan: &models.LayananSummary{Nama: "Surat Pengantar KTP"}, Status: models.StageBaru, CreatedAt: at(3)},
		{ID: 2, NomorRegistrasi: "REQ202501002", Applicant: models.Applicant{Nama: "Siti Aminah", NIK: "3201010101010002"},
			Layanan: &models.LayananSummary{Nama: "Surat Keterangan Domisili"}, Status: models.StageProses, CreatedAt: at(10)},
		{ID: 3, NomorRegistrasi: "REQ202501003", Applicant: models.Applicant{Nama: "Ahmad Budiman", NIK: "3201010101019999"},
			Layanan: &models.LayananSummary{Nama: "Surat Pengantar KTP"}, Status: models.StageSelesai, CreatedAt: at(20)},
	}
}

func permohonanIDs(items []models.Permohonan) []int64 {
	out := make([]int64, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}

func TestFilterPermohonan(t *testing.T) {
	items := samplePermohonan()

	cases := []struct {
		name string
		q    PermohonanQuery
		want []int64
	}{
		{"no filters", PermohonanQuery{}, []int64{1, 2, 3}},
		{"name case-insensitive", PermohonanQuery{Search: "BUDI"}, []int64{1, 3}},
		{"nik substring", PermohonanQuery{Search: "9999"}, []int64{3}},
		{"registration number", PermohonanQuery{Search: "req202501002"}, []int64{2}},
		{"status", PermohonanQuery{Status: models.StageProses}, []int64{2}},
		{"layanan exact", PermohonanQuery{Layanan: "Surat Pengantar KTP"}, []int64{1, 3}},
		{"date range inclusive", PermohonanQuery{From: "2025-01-03", To: "2025-01-10"}, []int64{1, 2}},
		{"combined", PermohonanQuery{Search: "budi", Status: models.StageSelesai}, []int64{3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, permohonanIDs(FilterPermohonan(items, tc.q)))
		})
	}
}

func TestFilterPermohonanMatchesNumericID(t *testing.T) {
	items := []models.Permohonan{
		{ID: 1047, NomorRegistrasi: "REQ202503001", Applicant: models.Applicant{Nama: "Dewi Lestari", NIK: "3201010101010005"}},
		{ID: 58, NomorRegistrasi: "REQ202503002", Applicant: models.Applicant{Nama: "Rudi Hartono", NIK: "3201010101010006"}},
	}

	assert.Equal(t, []int64{1047}, permohonanIDs(FilterPermohonan(items, PermohonanQuery{Search: "104"})))
	assert.Equal(t, []int64{58}, permohonanIDs(FilterPermohonan(items, PermohonanQuery{Search: " 58 "})))
}

func TestListFiltersFetchedPage(t *testing.T) {
	api := &fakeAdminAPI{page: &models.PermohonanPage{Data: samplePermohonan(), CurrentPage: 1, LastPage: 4, PerPage: 15, Total: 52}}
	svc := NewAdminService(api, nil, nil)

	list, err := svc.List(context.Background(), PermohonanQuery{Status: models.StageBaru})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, permohonanIDs(list.Items))
	assert.Equal(t, 3, list.Fetched)
	assert.Equal(t, 52, list.Pagination.Total)

	_, err = svc.List(context.Background(), PermohonanQuery{From: "03/01/2025"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTransitionRejectsInvalidMoveWithoutCalling(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := NewAdminService(api, nil, nil)

	_, _, err := svc.Transition(context.Background(), 3, TransitionInput{Target: models.StageProses, Current: models.StageSelesai})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, api.statusCalls)
}

func TestTransitionRefreshesList(t *testing.T) {
	api := &fakeAdminAPI{page: &models.PermohonanPage{Data: samplePermohonan(), LastPage: 1}}
	svc := NewAdminService(api, nil, nil)

	list, notice, err := svc.Transition(context.Background(), 1, TransitionInput{Target: models.StageProses, Current: models.StageBaru, Note: " cek berkas "})
	require.NoError(t, err)
	assert.Equal(t, MsgStatusUpdated, notice.Message)
	assert.Equal(t, models.NoticeSuccess, notice.Level)
	require.Len(t, api.statusCalls, 1)
	assert.Equal(t, models.StatusUpdate{Status: models.StageProses, Catatan: "cek berkas"}, api.statusCalls[0])
	assert.Len(t, list.Items, 3)
	assert.Equal(t, 1, api.listCalls)
}

func TestTransitionUpstreamRefusalChangesNothing(t *testing.T) {
	api := &fakeAdminAPI{statusErr: &portalapi.APIError{Kind: portalapi.KindForbidden, Status: http.StatusForbidden, Message: "Akses ditolak"}}
	svc := NewAdminService(api, nil, nil)

	list, notice, err := svc.Transition(context.Background(), 1, TransitionInput{Target: models.StageProses})
	require.Error(t, err)
	assert.Nil(t, list)
	assert.Nil(t, notice)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
	assert.Zero(t, api.listCalls)
}

func TestBulkEmptySelectionMakesNoCalls(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := NewAdminService(api, nil, nil)

	_, err := svc.BulkTransition(context.Background(), nil, models.StageProses, "", true)
	require.Error(t, err)
	assert.Equal(t, MsgEmptySelection, appErrors.FromError(err).Message)

	_, err = svc.BulkDelete(context.Background(), []int64{0, -4}, true)
	require.Error(t, err)
	assert.Equal(t, MsgEmptySelection, appErrors.FromError(err).Message)

	assert.Empty(t, api.bulkCalls)
	assert.Empty(t, api.deleteCalls)
}

func TestBulkRequiresConfirmation(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := NewAdminService(api, nil, nil)

	_, err := svc.BulkTransition(context.Background(), []int64{1, 2, 2}, models.StageSelesai, "", false)
	require.Error(t, err)
	var confirm *ConfirmationError
	require.True(t, errors.As(err, &confirm))
	assert.Equal(t, `Update 2 permohonan ke status "selesai"?`, confirm.Prompt)
	assert.Equal(t, http.StatusPreconditionFailed, appErrors.FromError(err).Status)

	_, err = svc.BulkDelete(context.Background(), []int64{1, 2, 3}, false)
	require.True(t, errors.As(err, &confirm))
	assert.Equal(t, "Hapus 3 permohonan? Data tidak bisa dikembalikan.", confirm.Prompt)
	assert.True(t, errors.Is(err, ErrConfirmationRequired))

	assert.Empty(t, api.bulkCalls)
	assert.Empty(t, api.deleteCalls)
}

func TestBulkTransitionConfirmed(t *testing.T) {
	api := &fakeAdminAPI{}
	svc := NewAdminService(api, nil, nil)

	outcome, err := svc.BulkTransition(context.Background(), []int64{4, 5, 4}, models.StageProses, "", true)
	require.NoError(t, err)
	require.Len(t, api.bulkCalls, 1)
	assert.Equal(t, models.BulkStatusUpdate{IDs: []int64{4, 5}, Status: models.StageProses, Catatan: DefaultBulkNote}, api.bulkCalls[0])
	assert.Equal(t, 2, outcome.Affected)
	assert.Equal(t, "Berhasil update 2 permohonan", outcome.Notice.Message)
}

func TestBulkDeleteReportsPerItemFailures(t *testing.T) {
	api := &fakeAdminAPI{bulkResult: &models.BulkResult{Results: []models.BulkItemResult{
		{ID: 1, Success: true},
		{ID: 2, Success: false, Message: "sudah selesai"},
		{ID: 3, Success: true},
	}}}
	svc := NewAdminService(api, nil, nil)

	outcome, err := svc.BulkDelete(context.Background(), []int64{1, 2, 3}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Affected)
	assert.Equal(t, models.NoticeWarning, outcome.Notice.Level)
	assert.Equal(t, "Berhasil menghapus 2 permohonan, 1 gagal", outcome.Notice.Message)
	assert.Len(t, outcome.Results, 3)
}

func TestSingleDeleteNotice(t *testing.T) {
	svc := NewAdminService(&fakeAdminAPI{}, nil, nil)

	outcome, err := svc.BulkDelete(context.Background(), []int64{9}, true)
	require.NoError(t, err)
	assert.Equal(t, MsgPermohonanGone, outcome.Notice.Message)
}

func TestExportValidatesFormat(t *testing.T) {
	svc := NewAdminService(&fakeAdminAPI{}, nil, nil)

	_, err := svc.Export(context.Background(), "docx", models.PermohonanExportQuery{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	file, err := svc.Export(context.Background(), "pdf", models.PermohonanExportQuery{Status: models.StageSelesai})
	require.NoError(t, err)
	assert.Equal(t, "permohonan.pdf", file.Filename)
}
