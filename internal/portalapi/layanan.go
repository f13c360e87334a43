package portalapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// layananPayload is what the upstream expects on create/update: requirements as an array.
type layananPayload struct {
	Nama        string               `json:"nama"`
	Kategori    models.Kategori      `json:"kategori"`
	Deskripsi   string               `json:"deskripsi"`
	WaktuProses string               `json:"waktu_proses"`
	Biaya       string               `json:"biaya"`
	Persyaratan []string             `json:"persyaratan"`
	Status      models.LayananStatus `json:"status,omitempty"`
}

func newLayananPayload(in models.LayananInput) layananPayload {
	return layananPayload{
		Nama:        in.Nama,
		Kategori:    in.Kategori,
		Deskripsi:   in.Deskripsi,
		WaktuProses: in.WaktuProses,
		Biaya:       in.Biaya,
		Persyaratan: []string(models.SplitRequirements(in.Persyaratan)),
		Status:      in.Status,
	}
}

// ListLayanan returns the catalogue, optionally narrowed to one category.
func (c *Client) ListLayanan(ctx context.Context, kategori models.Kategori) ([]models.Layanan, error) {
	query := url.Values{}
	if kategori != "" {
		query.Set("kategori", string(kategori))
	}
	var out []models.Layanan
	if err := c.call(ctx, http.MethodGet, "GET /layanan", "/layanan", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetLayanan returns one service.
func (c *Client) GetLayanan(ctx context.Context, id int64) (*models.Layanan, error) {
	var out models.Layanan
	if err := c.call(ctx, http.MethodGet, "GET /layanan/{id}", idPath("/layanan", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLayanan adds a service.
func (c *Client) CreateLayanan(ctx context.Context, in models.LayananInput) (*models.Layanan, error) {
	var out models.Layanan
	if err := c.call(ctx, http.MethodPost, "POST /layanan", "/layanan", nil, newLayananPayload(in), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateLayanan replaces a service definition.
func (c *Client) UpdateLayanan(ctx context.Context, id int64, in models.LayananInput) (*models.Layanan, error) {
	var out models.Layanan
	if err := c.call(ctx, http.MethodPut, "PUT /layanan/{id}", idPath("/layanan", id), nil, newLayananPayload(in), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteLayanan removes a service.
func (c *Client) DeleteLayanan(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "DELETE /layanan/{id}", idPath("/layanan", id), nil, nil, nil)
}
