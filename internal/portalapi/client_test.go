package portalapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/middleware/requestid"
)

type recordedObserver struct {
	routes []string
}

func (o *recordedObserver) ObserveUpstream(route string, status int, _ time.Duration) {
	o.routes = append(o.routes, route)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordedObserver) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	obs := &recordedObserver{}
	client, err := New(Config{BaseURL: srv.URL + "/api", Observer: obs})
	require.NoError(t, err)
	return client, obs
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestCreatePermohonanForwardsTokenAndRequestID(t *testing.T) {
	client, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/permohonan", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "req-9", r.Header.Get("X-Request-ID"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Budi Santoso", body["nama"])
		assert.EqualValues(t, 3, body["layanan_id"])

		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"permohonan":{"id":41,"status":"baru"},"nomor_registrasi":"REQ202501041"}}`)
	})

	ctx := requestid.NewContext(WithToken(context.Background(), "tok-1"), "req-9")
	out, err := client.CreatePermohonan(ctx, models.CreatePermohonanInput{
		Applicant: models.Applicant{Nama: "Budi Santoso", NIK: "1234567890123456"},
		LayananID: 3,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 41, out.Permohonan.ID)
	assert.Equal(t, "REQ202501041", out.NomorRegistrasi)
	assert.Equal(t, []string{"POST /permohonan"}, obs.routes)
}

func TestValidationErrorKeepsFieldOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message":"The given data was invalid.","errors":{"nik":["NIK sudah terdaftar","NIK lain"],"email":["Email tidak valid"],"alamat":"Alamat wajib diisi"}}`)
	})

	_, err := client.CreatePermohonan(context.Background(), models.CreatePermohonanInput{LayananID: 3})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, "NIK sudah terdaftar", apiErr.Headline())
	assert.Equal(t, []appErrors.FieldError{
		{Field: "nik", Message: "NIK sudah terdaftar"},
		{Field: "email", Message: "Email tidak valid"},
		{Field: "alamat", Message: "Alamat wajib diisi"},
	}, apiErr.Fields)

	appErr := apiErr.AppError()
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "NIK sudah terdaftar", appErr.Message)
	assert.True(t, errors.Is(appErr, appErrors.ErrValidation))
}

func TestRateLimitRetryAfter(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"message":"Terlalu banyak percobaan. Silakan coba lagi dalam 2 menit."}`)
	})

	_, err := client.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "x"})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 2*time.Minute, apiErr.RetryAfter)
	assert.Equal(t, 120, apiErr.RetryAfterSeconds())
}

func TestRetryAfterSources(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Second, retryAfter("30", "Terlalu banyak", now))
	assert.Equal(t, 5*time.Minute, retryAfter("", "coba lagi dalam 5 menit", now))
	assert.Equal(t, DefaultRetryAfter, retryAfter("", "Terlalu banyak percobaan", now))
	assert.Equal(t, 90*time.Second, retryAfter(now.Add(90*time.Second).Format(http.TimeFormat), "", now))
}

func TestRateLimitDetectedFromMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"message":"Terlalu banyak permohonan dari IP ini"}`)
	})
	_, err := client.CreatePermohonan(context.Background(), models.CreatePermohonanInput{})
	assert.True(t, IsKind(err, KindRateLimited))
}

func TestNonJSONResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := client.ListLayanan(context.Background(), "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindBadResponse, apiErr.Kind)
	assert.Equal(t, "Server error: 502 Bad Gateway", apiErr.Message)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client, err := New(Config{BaseURL: base, Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Equal(t, MsgTransport, AsAppError(err).(*appErrors.Error).Message)
}

func TestCheckStatusShapes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			NomorRegistrasi string `json:"nomor_registrasi"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		switch in.NomorRegistrasi {
		case "REQ202501001":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":1,"nomor_registrasi":"REQ202501001","nama":"Budi Santoso","status":"proses","status_tracking":[{"step":"Pengajuan Diterima","tanggal":"2025-01-02 08:00:00"}]}}`)
		case "REQ_EMPTY":
			writeJSON(w, http.StatusOK, `{"success":true,"data":null}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"message":"Nomor registrasi tidak ditemukan"}`)
		}
	})

	p, err := client.CheckStatus(context.Background(), "REQ202501001")
	require.NoError(t, err)
	assert.Equal(t, models.StageProses, p.Status)
	require.Len(t, p.StatusTracking, 1)

	p, err = client.CheckStatus(context.Background(), "REQ_EMPTY")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = client.CheckStatus(context.Background(), "REQ_NOT_EXIST")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestListPermohonanPaginatedAndBare(t *testing.T) {
	bare := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if bare {
			writeJSON(w, http.StatusOK, `{"data":[{"id":1,"status":"baru"},{"id":2,"status":"selesai"}]}`)
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "15", r.URL.Query().Get("per_page"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"data":[{"id":16,"status":"baru"}],"current_page":2,"last_page":3,"per_page":15,"total":31}}`)
	})

	page, err := client.ListPermohonan(context.Background(), 2, 15)
	require.NoError(t, err)
	assert.Equal(t, 31, page.Total)
	assert.Equal(t, 3, page.LastPage)
	require.Len(t, page.Data, 1)

	bare = true
	page, err = client.ListPermohonan(context.Background(), 1, 15)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.LastPage)
}

func TestBulkResultPassthrough(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"ids":[4,5]}`, string(body))
		writeJSON(w, http.StatusOK, `{"success":true,"message":"ok","data":{"affected":1,"results":[{"id":4,"success":true},{"id":5,"success":false,"message":"sudah dihapus"}]}}`)
	})

	res, err := client.BulkDelete(context.Background(), []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Affected)
	assert.Equal(t, 1, res.Failed())
}

func TestUploadBerkasMultipart(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "41", r.FormValue("permohonan_id"))
		assert.Equal(t, "KTP", r.FormValue("jenis_berkas"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "ktp.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":7,"permohonan_id":41,"jenis_berkas":"KTP","nama_file":"ktp.pdf","ukuran":8}}`)
	})

	b, err := client.UploadBerkas(context.Background(), Upload{
		PermohonanID: 41,
		JenisBerkas:  "KTP",
		Filename:     "ktp.pdf",
		MimeType:     "application/pdf",
		Content:      strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, b.ID)
	assert.Equal(t, models.BerkasDocument, b.Kind)
}

func TestDownloadReadsFilename(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2025-01-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "selesai", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="permohonan.pdf"`)
		_, _ = io.WriteString(w, "%PDF-1.4")
	})

	file, err := client.ExportPermohonan(context.Background(), "pdf", models.PermohonanExportQuery{StartDate: "2025-01-01", Status: models.StageSelesai})
	require.NoError(t, err)
	assert.Equal(t, "permohonan.pdf", file.Filename)
	assert.Equal(t, "%PDF-1.4", string(file.Body))
}

func TestLayananPayloadSplitsRequirements(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []interface{}{"KTP", "KK"}, body["persyaratan"])
		writeJSON(w, http.StatusCreated, `{"success":true,"data":{"id":9,"nama":"Surat Domisili","kategori":"surat","persyaratan":"[\"KTP\",\"KK\"]","biaya":0}}`)
	})

	l, err := client.CreateLayanan(context.Background(), models.LayananInput{Nama: "Surat Domisili", Kategori: models.KategoriSurat, Persyaratan: "KTP\n\nKK\n"})
	require.NoError(t, err)
	assert.Equal(t, models.Requirements{"KTP", "KK"}, l.Persyaratan)
	assert.Equal(t, "0", l.Biaya.String())
}
