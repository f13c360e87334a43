package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// CreatePermohonan submits applicant data. The reply carries the request id and tracking number.
func (c *Client) CreatePermohonan(ctx context.Context, in models.CreatePermohonanInput) (*models.CreatedPermohonan, error) {
	var out models.CreatedPermohonan
	if err := c.call(ctx, http.MethodPost, "POST /permohonan", "/permohonan", nil, in, &out); err != nil {
		return nil, err
	}
	if out.NomorRegistrasi == "" {
		out.NomorRegistrasi = out.Permohonan.NomorRegistrasi
	}
	if out.Permohonan.ID == 0 {
		return nil, &APIError{Kind: KindBadResponse, Message: "Respons server tidak memuat id permohonan"}
	}
	return &out, nil
}

// ListPermohonan fetches one page. Upstreams that return a bare array get a single synthetic page.
func (c *Client) ListPermohonan(ctx context.Context, page, perPage int) (*models.PermohonanPage, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}
	env, err := c.callEnvelope(ctx, http.MethodGet, "GET /permohonan", "/permohonan", query, nil)
	if err != nil {
		return nil, err
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '[' {
		var items []models.Permohonan
		if err := decodeData("GET /permohonan", env, &items); err != nil {
			return nil, err
		}
		return &models.PermohonanPage{Data: items, CurrentPage: 1, LastPage: 1, PerPage: len(items), Total: len(items)}, nil
	}
	var out models.PermohonanPage
	if err := decodeData("GET /permohonan", env, &out); err != nil {
		return nil, err
	}
	if out.CurrentPage == 0 {
		out.CurrentPage = 1
	}
	if out.LastPage == 0 {
		out.LastPage = 1
	}
	return &out, nil
}

// GetPermohonan returns a request with attachments and status events.
func (c *Client) GetPermohonan(ctx context.Context, id int64) (*models.Permohonan, error) {
	var out models.Permohonan
	if err := c.call(ctx, http.MethodGet, "GET /permohonan/{id}", idPath("/permohonan", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves one request to a new stage. The upstream appends the status event.
func (c *Client) UpdateStatus(ctx context.Context, id int64, in models.StatusUpdate) error {
	return c.call(ctx, http.MethodPut, "PUT /permohonan/{id}/status", idPath("/permohonan", id)+"/status", nil, in, nil)
}

// BulkUpdateStatus moves every id in one call.
func (c *Client) BulkUpdateStatus(ctx context.Context, in models.BulkStatusUpdate) (*models.BulkResult, error) {
	return c.bulk(ctx, http.MethodPost, "POST /permohonan/bulk-update-status", "/permohonan/bulk-update-status", in)
}

// BulkDelete removes every id in one call.
func (c *Client) BulkDelete(ctx context.Context, ids []int64) (*models.BulkResult, error) {
	return c.bulk(ctx, http.MethodDelete, "DELETE /permohonan/bulk-delete", "/permohonan/bulk-delete", struct {
		IDs []int64 `json:"ids"`
	}{IDs: ids})
}

func (c *Client) bulk(ctx context.Context, method, route, path string, in interface{}) (*models.BulkResult, error) {
	env, err := c.callEnvelope(ctx, method, route, path, nil, in)
	if err != nil {
		return nil, err
	}
	out := &models.BulkResult{}
	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '{' {
		// Per-item results are optional; anything unexpected is ignored rather than failing a call
		// the upstream already applied.
		_ = json.Unmarshal(data, out)
	}
	return out, nil
}

// CheckStatus looks a request up by tracking number. A nil request with a nil error means the
// upstream answered without data.
func (c *Client) CheckStatus(ctx context.Context, nomorRegistrasi string) (*models.Permohonan, error) {
	var out *models.Permohonan
	in := struct {
		NomorRegistrasi string `json:"nomor_registrasi"`
	}{NomorRegistrasi: nomorRegistrasi}
	if err := c.call(ctx, http.MethodPost, "POST /status/check", "/status/check", nil, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportPermohonan downloads the upstream-rendered Excel or PDF export.
func (c *Client) ExportPermohonan(ctx context.Context, format string, q models.PermohonanExportQuery) (*File, error) {
	query := url.Values{}
	if q.StartDate != "" {
		query.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		query.Set("end_date", q.EndDate)
	}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	return c.download(ctx, "GET /permohonan/export/"+format, "/permohonan/export/"+url.PathEscape(format), query)
}

// DashboardStats returns the aggregate numbers for the last days days.
func (c *Client) DashboardStats(ctx context.Context, days int) (*models.DashboardStats, error) {
	query := url.Values{}
	if days > 0 {
		query.Set("days", strconv.Itoa(days))
	}
	var out models.DashboardStats
	if err := c.call(ctx, http.MethodGet, "GET /dashboard/stats", "/dashboard/stats", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
