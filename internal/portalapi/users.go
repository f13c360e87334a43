package portalapi

import (
	"context"
	"net/http"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// ListUsers returns every staff account.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.call(ctx, http.MethodGet, "GET /users", "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser adds a staff account.
func (c *Client) CreateUser(ctx context.Context, in models.UserInput) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, http.MethodPost, "POST /users", "/users", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser edits a staff account. An empty password is omitted and left unchanged upstream.
func (c *Client) UpdateUser(ctx context.Context, id int64, in models.UserInput) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, http.MethodPut, "PUT /users/{id}", idPath("/users", id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUser removes a staff account.
func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, "DELETE /users/{id}", idPath("/users", id), nil, nil, nil)
}
