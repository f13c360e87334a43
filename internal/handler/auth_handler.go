package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/dto"
	"github.com/noah-isme/kelurahan-portal/internal/middleware"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/pkg/fieldcheck"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type sessionService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.Session, error)
	Logout(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (*models.Session, error)
}

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
	Path   string
}

// AuthHandler wires HTTP endpoints to the session service.
type AuthHandler struct {
	service sessionService
	cookie  CookieConfig
	now     func() time.Time
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc sessionService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "portal_session"
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	return &AuthHandler{service: svc, cookie: cookie, now: time.Now}
}

// Login godoc
// @Summary Sign in as staff
// @Description Exchanges credentials for an upstream token kept server-side; returns a session id
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, fieldcheck.BindError(err))
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, session.ID, int(session.ExpiresAt.Sub(h.now()).Seconds()))
	res := dto.LoginResponse{SessionID: session.ID, ExpiresAt: session.ExpiresAt, User: session.User}
	response.JSON(c, http.StatusOK, res, nil,
		response.WithNotice(models.NewNotice(models.NoticeSuccess, "Login berhasil")))
}

// Logout godoc
// @Summary Sign out
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if id := middleware.SessionID(c, h.cookie.Name); id != "" {
		if err := h.service.Logout(c.Request.Context(), id); err != nil {
			response.Error(c, err)
			return
		}
	}
	h.setCookie(c, "", -1)
	response.JSON(c, http.StatusOK, gin.H{"logged_out": true}, nil,
		response.WithNotice(models.NewNotice(models.NoticeSuccess, "Anda telah keluar")))
}

// Me godoc
// @Summary Current staff session
// @Description Re-validates the stored token against the upstream
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session, err := h.service.Restore(c.Request.Context(), middleware.SessionID(c, h.cookie.Name))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session.View(), nil)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, h.cookie.Path, "", h.cookie.Secure, true)
}
