package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/storage"
)

type fakeAdminSrv struct {
	lastQuery service.PermohonanQuery
	lastIn    service.TransitionInput
	bulkCalls int
}

func (f *fakeAdminSrv) List(_ context.Context, q service.PermohonanQuery) (*service.PermohonanList, error) {
	f.lastQuery = q
	return &service.PermohonanList{
		Items:      []models.Permohonan{{ID: 1, NomorRegistrasi: "REQ202501001", Status: models.StageBaru}},
		Pagination: &models.Pagination{CurrentPage: q.Page, LastPage: 3, PerPage: 10, Total: 25},
		Fetched:    10,
	}, nil
}

func (f *fakeAdminSrv) Detail(_ context.Context, id int64) (*models.Permohonan, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "Permohonan tidak ditemukan")
}

func (f *fakeAdminSrv) Transition(_ context.Context, id int64, in service.TransitionInput) (*service.PermohonanList, *models.Notice, error) {
	f.lastIn = in
	return &service.PermohonanList{Items: []models.Permohonan{{ID: id, Status: in.Target}}}, models.NewNotice(models.NoticeSuccess, service.MsgStatusUpdated), nil
}

func (f *fakeAdminSrv) BulkTransition(_ context.Context, ids []int64, target models.Stage, note string, confirmed bool) (*service.BulkOutcome, error) {
	if !confirmed {
		prompt := "Update 2 permohonan ke status \"proses\"?"
		return nil, appErrors.Wrap(&service.ConfirmationError{Prompt: prompt}, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, prompt)
	}
	f.bulkCalls++
	return &service.BulkOutcome{Requested: len(ids), Affected: len(ids), Notice: models.NewNotice(models.NoticeSuccess, "Berhasil update 2 permohonan")}, nil
}

func (f *fakeAdminSrv) BulkDelete(_ context.Context, ids []int64, confirmed bool) (*service.BulkOutcome, error) {
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, service.MsgEmptySelection)
	}
	return &service.BulkOutcome{Requested: len(ids), Affected: len(ids), Notice: models.NewNotice(models.NoticeSuccess, "ok")}, nil
}

func (f *fakeAdminSrv) Export(_ context.Context, format string, q models.PermohonanExportQuery) (*portalapi.File, error) {
	return &portalapi.File{ContentType: "application/pdf", Filename: "permohonan.pdf", Body: []byte("%PDF")}, nil
}

type fakeDownloader struct {
	token string
	id    int64
}

func (f *fakeDownloader) DownloadBerkas(ctx context.Context, id int64) (*portalapi.File, error) {
	f.token = portalapi.TokenFrom(ctx)
	f.id = id
	return &portalapi.File{ContentType: "image/png", Filename: "ktp.png", Body: []byte("png")}, nil
}

type fakeLookup struct{}

func (fakeLookup) Lookup(_ context.Context, id string) (*models.Session, error) {
	if id != "sess-1" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.Session{ID: id, Token: "upstream-token"}, nil
}

func newAdminHandler(srv *fakeAdminSrv, dl *fakeDownloader) *AdminHandler {
	return NewAdminHandler(srv, dl, fakeLookup{}, storage.NewSignedURLSigner("secret", time.Minute), "/api/berkas/download")
}

func TestAdminHandlerListBindsFilters(t *testing.T) {
	srv := &fakeAdminSrv{}
	h := newAdminHandler(srv, &fakeDownloader{})

	c, rec := newTestContext(http.MethodGet, "/admin/permohonan?page=2&status=baru&search=budi&from=2025-01-01", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, srv.lastQuery.Page)
	assert.Equal(t, models.StageBaru, srv.lastQuery.Status)
	assert.Equal(t, "budi", srv.lastQuery.Search)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 25, env.Pagination.Total)
}

func TestAdminHandlerListRejectsUnknownStatus(t *testing.T) {
	h := newAdminHandler(&fakeAdminSrv{}, &fakeDownloader{})

	c, rec := newTestContext(http.MethodGet, "/admin/permohonan?status=arsip", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandlerDetailNotFound(t *testing.T) {
	h := newAdminHandler(&fakeAdminSrv{}, &fakeDownloader{})

	c, rec := newTestContext(http.MethodGet, "/admin/permohonan/9", nil)
	c.Params = append(c.Params, ginParam("id", "9"))
	h.Detail(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHandlerTransition(t *testing.T) {
	srv := &fakeAdminSrv{}
	h := newAdminHandler(srv, &fakeDownloader{})

	c, rec := newTestContext(http.MethodPut, "/admin/permohonan/5/status?page=1", map[string]string{
		"status": "proses", "catatan": "Berkas lengkap", "current": "baru",
	})
	c.Params = append(c.Params, ginParam("id", "5"))
	h.Transition(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StageProses, srv.lastIn.Target)
	assert.Equal(t, models.StageBaru, srv.lastIn.Current)
	assert.Equal(t, 1, srv.lastIn.Refresh.Page)
	assert.Equal(t, service.MsgStatusUpdated, decodeEnvelope(t, rec).notice()["message"])
}

func TestAdminHandlerBulkStatusNeedsConfirmation(t *testing.T) {
	srv := &fakeAdminSrv{}
	h := newAdminHandler(srv, &fakeDownloader{})

	c, rec := newTestContext(http.MethodPost, "/admin/permohonan/bulk-status", map[string]interface{}{
		"ids": []int64{1, 2}, "status": "proses",
	})
	h.BulkStatus(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "Update 2 permohonan ke status \"proses\"?", decodeEnvelope(t, rec).Meta["confirm_prompt"])
	assert.Zero(t, srv.bulkCalls)

	c, rec = newTestContext(http.MethodPost, "/admin/permohonan/bulk-status", map[string]interface{}{
		"ids": []int64{1, 2}, "status": "proses", "confirm": true,
	})
	h.BulkStatus(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, srv.bulkCalls)
}

func TestAdminHandlerBulkDeleteEmptySelection(t *testing.T) {
	h := newAdminHandler(&fakeAdminSrv{}, &fakeDownloader{})

	c, rec := newTestContext(http.MethodPost, "/admin/permohonan/bulk-delete", map[string]interface{}{"ids": []int64{}, "confirm": true})
	h.BulkDelete(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgEmptySelection, decodeEnvelope(t, rec).notice()["message"])
}

func TestAdminHandlerExportStreamsFile(t *testing.T) {
	h := newAdminHandler(&fakeAdminSrv{}, &fakeDownloader{})

	c, rec := newTestContext(http.MethodGet, "/admin/permohonan/export/pdf", nil)
	c.Params = append(c.Params, ginParam("format", "pdf"))
	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "permohonan.pdf")
}

func TestAdminHandlerBerkasLinkRoundTrip(t *testing.T) {
	dl := &fakeDownloader{}
	h := newAdminHandler(&fakeAdminSrv{}, dl)

	c, rec := newTestContext(http.MethodGet, "/admin/berkas/12/link", nil)
	c.Params = append(c.Params, ginParam("id", "12"))
	withSession(c, models.User{ID: 1, Role: models.RolePetugas})
	h.BerkasLink(c)
	require.Equal(t, http.StatusOK, rec.Code)

	var link struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	require.True(t, strings.HasPrefix(link.Data.URL, "/api/berkas/download?token="))
	parsed, err := url.Parse(link.Data.URL)
	require.NoError(t, err)

	c, rec = newTestContext(http.MethodGet, "/api/berkas/download?token="+url.QueryEscape(parsed.Query().Get("token")), nil)
	h.DownloadBerkas(c)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "upstream-token", dl.token)
	assert.EqualValues(t, 12, dl.id)
	assert.Equal(t, "png", rec.Body.String())
}

func TestAdminHandlerDownloadRejectsTamperedToken(t *testing.T) {
	h := newAdminHandler(&fakeAdminSrv{}, &fakeDownloader{})

	c, rec := newTestContext(http.MethodGet, "/api/berkas/download?token=berkas.1.MTI6c2Vzcy0x.deadbeef", nil)
	h.DownloadBerkas(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
