package portalapi

import (
	"context"
	"net/http"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// SendKontak posts a public contact message.
func (c *Client) SendKontak(ctx context.Context, in models.KontakInput) (*models.Kontak, error) {
	var out models.Kontak
	if err := c.call(ctx, http.MethodPost, "POST /kontak", "/kontak", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListKontak returns the inbox.
func (c *Client) ListKontak(ctx context.Context) ([]models.Kontak, error) {
	var out []models.Kontak
	if err := c.call(ctx, http.MethodGet, "GET /kontak", "/kontak", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetKontak returns one message.
func (c *Client) GetKontak(ctx context.Context, id int64) (*models.Kontak, error) {
	var out models.Kontak
	if err := c.call(ctx, http.MethodGet, "GET /kontak/{id}", idPath("/kontak", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateKontakStatus sets the status of one message.
func (c *Client) UpdateKontakStatus(ctx context.Context, id int64, status models.KontakStatus) error {
	in := struct {
		Status models.KontakStatus `json:"status"`
	}{Status: status}
	return c.call(ctx, http.MethodPut, "PUT /kontak/{id}", idPath("/kontak", id), nil, in, nil)
}

// ReplyKontak sends a reply email through the upstream, which marks the message replied.
func (c *Client) ReplyKontak(ctx context.Context, id int64, reply models.KontakReply) error {
	return c.call(ctx, http.MethodPost, "POST /kontak/{id}/reply", idPath("/kontak", id)+"/reply", nil, reply, nil)
}

// DeleteKontak removes one message.
func (c *Client) DeleteKontak(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "DELETE /kontak/{id}", idPath("/kontak", id), nil, nil, nil)
}
