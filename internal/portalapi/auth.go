package portalapi

import (
	"context"
	"net/http"

	"github.com/noah-isme/kelurahan-portal/internal/models"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	var out models.LoginResult
	if err := c.call(ctx, http.MethodPost, "POST /login", "/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the token carried by ctx.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "POST /logout", "/logout", nil, nil, nil)
}

// Me returns the user owning the token carried by ctx.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.call(ctx, http.MethodGet, "GET /me", "/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
