package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
)

type fakeTrackingSrv struct{}

func (fakeTrackingSrv) Check(_ context.Context, nomor string) (*models.TrackingView, error) {
	if nomor == "REQ202501001" {
		return &models.TrackingView{Found: true, Stage: models.StageProses}, nil
	}
	return &models.TrackingView{Found: false, Message: service.MsgNomorNotFound}, nil
}

func TestTrackingHandlerNotFoundIsRegularResult(t *testing.T) {
	h := NewTrackingHandler(fakeTrackingSrv{})

	c, rec := newTestContext(http.MethodPost, "/status/check", map[string]string{"nomor_registrasi": "REQ_NOT_EXIST"})
	h.Check(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.JSONEq(t, `{"found":false,"message":"Nomor registrasi tidak ditemukan"}`, string(env.Data))
	assert.Equal(t, "error", env.notice()["level"])

	c, rec = newTestContext(http.MethodPost, "/status/check", map[string]string{"nomor_registrasi": "REQ202501001"})
	h.Check(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeEnvelope(t, rec).notice())
}

type fakeCatalogSrv struct {
	includeInactive bool
	created         models.LayananInput
}

func (f *fakeCatalogSrv) List(_ context.Context, kategori models.Kategori, includeInactive bool) ([]models.Layanan, error) {
	f.includeInactive = includeInactive
	if kategori != "" && !kategori.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Kategori tidak valid")
	}
	return []models.Layanan{{ID: 1, Nama: "Surat Keterangan Domisili", Kategori: models.KategoriSurat}}, nil
}

func (f *fakeCatalogSrv) Get(_ context.Context, id int64) (*models.Layanan, error) {
	return &models.Layanan{ID: id}, nil
}

func (f *fakeCatalogSrv) Create(_ context.Context, in models.LayananInput) (*models.Layanan, error) {
	f.created = in
	return &models.Layanan{ID: 9, Nama: in.Nama, Kategori: in.Kategori}, nil
}

func (f *fakeCatalogSrv) Update(_ context.Context, id int64, in models.LayananInput) (*models.Layanan, error) {
	return &models.Layanan{ID: id, Nama: in.Nama}, nil
}

func (f *fakeCatalogSrv) Delete(context.Context, int64) error { return nil }

func TestCatalogHandlerPublicAndAdminLists(t *testing.T) {
	srv := &fakeCatalogSrv{}
	h := NewCatalogHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/layanan?kategori=surat", nil)
	h.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, srv.includeInactive)

	c, rec = newTestContext(http.MethodGet, "/admin/layanan", nil)
	h.AdminList(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.includeInactive)

	c, rec = newTestContext(http.MethodGet, "/layanan?kategori=pajak", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandlerCreateBindsInput(t *testing.T) {
	srv := &fakeCatalogSrv{}
	h := NewCatalogHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/admin/layanan", map[string]string{
		"nama": "Surat Pengantar SKCK", "kategori": "keamanan", "persyaratan": "KTP\nKK",
	})
	h.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "KTP\nKK", srv.created.Persyaratan)

	c, rec = newTestContext(http.MethodPost, "/admin/layanan", map[string]string{"nama": "X", "kategori": "pajak"})
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeContactSrv struct {
	reply string
	query service.KontakQuery
}

func (f *fakeContactSrv) Send(_ context.Context, in models.KontakInput) (*models.Kontak, error) {
	return &models.Kontak{ID: 1, Nama: in.Nama}, nil
}

func (f *fakeContactSrv) List(_ context.Context, q service.KontakQuery) ([]models.Kontak, error) {
	f.query = q
	return []models.Kontak{}, nil
}

func (f *fakeContactSrv) Get(_ context.Context, id int64) (*models.Kontak, error) {
	return &models.Kontak{ID: id, Status: models.KontakDibaca}, nil
}

func (f *fakeContactSrv) SetStatus(context.Context, int64, models.KontakStatus) error { return nil }

func (f *fakeContactSrv) Reply(_ context.Context, id int64, balasan string) error {
	f.reply = balasan
	if balasan == "" {
		return appErrors.Clone(appErrors.ErrValidation, service.MsgReplyEmpty)
	}
	return nil
}

func (f *fakeContactSrv) Delete(context.Context, int64) error { return nil }

func TestContactHandlerListAndReply(t *testing.T) {
	srv := &fakeContactSrv{}
	h := NewContactHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/admin/kontak?search=jalan&status=baru", nil)
	h.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.KontakQuery{Search: "jalan", Status: models.KontakBaru}, srv.query)

	c, rec = newTestContext(http.MethodPost, "/admin/kontak/3/reply", map[string]string{})
	c.Params = append(c.Params, ginParam("id", "3"))
	h.Reply(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgReplyEmpty, decodeEnvelope(t, rec).notice()["message"])

	c, rec = newTestContext(http.MethodPost, "/admin/kontak/3/reply", map[string]string{"balasan": "Sudah kami tindak lanjuti"})
	c.Params = append(c.Params, ginParam("id", "3"))
	h.Reply(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sudah kami tindak lanjuti", srv.reply)
}

func TestContactHandlerSendBindsFieldRules(t *testing.T) {
	h := NewContactHandler(&fakeContactSrv{})

	c, rec := newTestContext(http.MethodPost, "/kontak", map[string]string{
		"nama": "Siti", "email": "siti@", "subjek": "Hai", "pesan": "Jalan rusak di RT 03 belum diperbaiki",
	})
	h.Send(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Fields, 2)
	assert.Equal(t, "email", env.Error.Fields[0].Field)
	assert.Equal(t, fieldcheck.MsgEmail, env.Error.Fields[0].Message)
	assert.Equal(t, "subjek", env.Error.Fields[1].Field)
	assert.Equal(t, fieldcheck.MsgSubjek, env.Error.Fields[1].Message)

	c, rec = newTestContext(http.MethodPost, "/kontak", map[string]string{
		"nama": "Siti", "email": "siti@example.com", "subjek": "Jalan rusak", "pesan": "Jalan rusak di RT 03 belum diperbaiki",
	})
	h.Send(c)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

type fakeUserSrv struct {
	actor int64
}

func (f *fakeUserSrv) List(context.Context) ([]models.User, error) { return nil, nil }

func (f *fakeUserSrv) Create(_ context.Context, in models.UserInput) (*models.User, error) {
	return &models.User{ID: 2, Username: in.Username}, nil
}

func (f *fakeUserSrv) Update(_ context.Context, id int64, in models.UserInput) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (f *fakeUserSrv) Delete(_ context.Context, id, actorID int64) error {
	f.actor = actorID
	if id == actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "Tidak dapat menghapus akun sendiri")
	}
	return nil
}

func TestUserHandlerDeletePassesActor(t *testing.T) {
	srv := &fakeUserSrv{}
	h := NewUserHandler(srv)

	c, rec := newTestContext(http.MethodDelete, "/admin/users/4", nil)
	c.Params = append(c.Params, ginParam("id", "4"))
	h.Delete(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodDelete, "/admin/users/4", nil)
	c.Params = append(c.Params, ginParam("id", "4"))
	withSession(c, models.User{ID: 4, Role: models.RoleAdmin})
	h.Delete(c)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.EqualValues(t, 4, srv.actor)
}
