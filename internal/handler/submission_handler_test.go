package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
)

type fakeStagingSrv struct {
	gotSlot     string
	gotFilename string
	gotSize     int64
	gotBody     []byte
}

func (f *fakeStagingSrv) CreateDraft(context.Context) (*models.Draft, error) {
	return &models.Draft{ID: "draft-1", Files: map[string]models.StagedFile{}}, nil
}

func (f *fakeStagingSrv) Draft(_ context.Context, id string) (*models.Draft, error) {
	if id != "draft-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, service.MsgDraftNotFound)
	}
	return &models.Draft{ID: id}, nil
}

func (f *fakeStagingSrv) Stage(_ context.Context, draftID, slot, filename string, size int64, content io.Reader) (*models.StagedFile, error) {
	f.gotSlot, f.gotFilename, f.gotSize = slot, filename, size
	f.gotBody, _ = io.ReadAll(content)
	return &models.StagedFile{Slot: slot, Filename: filename, MimeType: "application/pdf", Size: size}, nil
}

func (f *fakeStagingSrv) Unstage(_ context.Context, draftID, slot string) (*models.Draft, error) {
	return &models.Draft{ID: draftID, Files: map[string]models.StagedFile{}}, nil
}

type fakeSubmitSrv struct {
	in      service.SubmitInput
	result  *models.SubmissionResult
	err     error
	resumed int64
}

func (f *fakeSubmitSrv) Submit(_ context.Context, in service.SubmitInput) (*models.SubmissionResult, error) {
	f.in = in
	return f.result, f.err
}

func (f *fakeSubmitSrv) AttachRemaining(_ context.Context, id int64) (*models.SubmissionResult, error) {
	f.resumed = id
	return f.result, f.err
}

func TestSubmissionHandlerValidateReportsFieldErrors(t *testing.T) {
	h := NewSubmissionHandler(&fakeStagingSrv{}, &fakeSubmitSrv{})
	h.now = func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }

	c, rec := newTestContext(http.MethodPost, "/validate", map[string]interface{}{
		"values": map[string]string{"nik": "123", "email": "budi@example.com"},
	})
	h.Validate(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false,"errors":{"nik":"NIK harus 16 digit angka"}}`, string(decodeEnvelope(t, rec).Data))
}

func TestSubmissionHandlerStageFileForwardsMultipart(t *testing.T) {
	staging := &fakeStagingSrv{}
	h := NewSubmissionHandler(staging, &fakeSubmitSrv{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "ktp.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4 content"))
	require.NoError(t, mw.Close())

	c, rec := newTestContext(http.MethodPut, "/drafts/draft-1/files/ktp", nil)
	c.Request, _ = http.NewRequest(http.MethodPut, "/drafts/draft-1/files/ktp", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	c.Params = append(c.Params, ginParam("id", "draft-1"), ginParam("slot", "ktp"))

	h.StageFile(c)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ktp", staging.gotSlot)
	assert.Equal(t, "ktp.pdf", staging.gotFilename)
	assert.EqualValues(t, len("%PDF-1.4 content"), staging.gotSize)
	assert.Equal(t, "%PDF-1.4 content", string(staging.gotBody))
}

func TestSubmissionHandlerStageFileRequiresFile(t *testing.T) {
	h := NewSubmissionHandler(&fakeStagingSrv{}, &fakeSubmitSrv{})

	c, rec := newTestContext(http.MethodPut, "/drafts/draft-1/files/ktp", nil)
	c.Params = append(c.Params, ginParam("id", "draft-1"), ginParam("slot", "ktp"))
	h.StageFile(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmissionHandlerSubmitComplete(t *testing.T) {
	submit := &fakeSubmitSrv{result: &models.SubmissionResult{
		PermohonanID: 42, NomorRegistrasi: "REQ202501042", Complete: true, RedirectAfter: 5, RedirectTo: "/status",
	}}
	h := NewSubmissionHandler(&fakeStagingSrv{}, submit)

	c, rec := newTestContext(http.MethodPost, "/permohonan", applicantBody(map[string]interface{}{"draft_id": "draft-1"}))
	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Budi Santoso", submit.in.Applicant.Nama)
	assert.EqualValues(t, 3, submit.in.LayananID)
	assert.Equal(t, "draft-1", submit.in.DraftID)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "success", env.notice()["level"])
	assert.Contains(t, env.notice()["message"], "REQ202501042")
}

func TestSubmissionHandlerSubmitPartialKeepsTrackingNumber(t *testing.T) {
	result := &models.SubmissionResult{
		PermohonanID:    42,
		NomorRegistrasi: "REQ202501042",
		Uploads: []models.UploadOutcome{
			{Slot: "ktp", Status: models.FileUploaded},
			{Slot: "kk", Status: models.FileFailed, Error: "Gagal mengunggah berkas"},
		},
	}
	h := NewSubmissionHandler(&fakeStagingSrv{}, &fakeSubmitSrv{result: result, err: &service.PartialUploadError{Result: result}})

	c, rec := newTestContext(http.MethodPost, "/permohonan", applicantBody(nil))
	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "warning", env.notice()["level"])
	assert.Contains(t, string(env.Data), `"nomor_registrasi":"REQ202501042"`)
}

func TestSubmissionHandlerSubmitValidationError(t *testing.T) {
	h := NewSubmissionHandler(&fakeStagingSrv{}, &fakeSubmitSrv{err: appErrors.WithFields(appErrors.ErrValidation, "Mohon perbaiki data", []appErrors.FieldError{{Field: "nik", Message: "NIK harus 16 digit angka"}})})

	c, rec := newTestContext(http.MethodPost, "/permohonan", applicantBody(nil))
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Fields, 1)
	assert.Equal(t, "nik", env.Error.Fields[0].Field)
}

func TestSubmissionHandlerResumeParsesID(t *testing.T) {
	submit := &fakeSubmitSrv{result: &models.SubmissionResult{PermohonanID: 7, Complete: true}}
	h := NewSubmissionHandler(&fakeStagingSrv{}, submit)

	c, rec := newTestContext(http.MethodPost, "/permohonan/x/attachments/resume", nil)
	c.Params = append(c.Params, ginParam("id", "x"))
	h.ResumeAttachments(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/permohonan/7/attachments/resume", nil)
	c.Params = append(c.Params, ginParam("id", "7"))
	h.ResumeAttachments(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, submit.resumed)
}

func TestSubmissionHandlerSubmitBindsFieldRules(t *testing.T) {
	submit := &fakeSubmitSrv{}
	h := NewSubmissionHandler(&fakeStagingSrv{}, submit)

	body := applicantBody(map[string]interface{}{"nik": "123", "rt": "1234"})
	delete(body, "alamat")
	c, rec := newTestContext(http.MethodPost, "/permohonan", body)
	h.Submit(c)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	got := map[string]string{}
	for _, f := range env.Error.Fields {
		got[f.Field] = f.Message
	}
	assert.Equal(t, map[string]string{
		"nik":    fieldcheck.MsgNIK,
		"alamat": "Alamat wajib diisi",
		"rt":     fieldcheck.MsgRTRW,
	}, got)
	assert.Empty(t, submit.in.Applicant.Nama, "service not reached")
}
