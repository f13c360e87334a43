package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/repository"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/ratelimit"
)

type stubAuth struct{}

func (stubAuth) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResult, error) {
	role := models.RolePetugas
	if req.Username == "admin" {
		role = models.RoleAdmin
	}
	return &models.LoginResult{Token: "tok-" + req.Username, User: models.User{ID: 1, Username: req.Username, Role: role}}, nil
}

func (stubAuth) Logout(ctx context.Context) error { return nil }

func (stubAuth) Me(ctx context.Context) (*models.User, error) { return &models.User{}, nil }

func newSessions(t *testing.T) *service.SessionService {
	t.Helper()
	return service.NewSessionService(stubAuth{}, repository.NewMemorySessionRepository(nil), service.SessionConfig{TTL: time.Hour}, nil)
}

func login(t *testing.T, sessions *service.SessionService, username string) string {
	t.Helper()
	session, err := sessions.Login(context.Background(), models.LoginRequest{Username: username, Password: "x"})
	require.NoError(t, err)
	return session.ID
}

func newRouter(sessions *service.SessionService, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequireSession(sessions, "portal_session")}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": portalapi.TokenFrom(c.Request.Context()), "user": CurrentSession(c).User.Username})
	})
	r.GET("/private", handlers...)
	return r
}

func TestRequireSessionAcceptsCookieAndBearer(t *testing.T) {
	sessions := newSessions(t)
	id := login(t, sessions, "petugas")
	r := newRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: id})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"tok-petugas","user":"petugas"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+id)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSessionRejectsMissingOrUnknown(t *testing.T) {
	r := newRouter(newSessions(t))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body struct {
		Meta struct {
			Notice models.Notice `json:"notice"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 5000, body.Meta.Notice.TTLMs)
}

func TestRequireRoles(t *testing.T) {
	sessions := newSessions(t)
	r := newRouter(sessions, RequireRoles(models.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+login(t, sessions, "petugas"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+login(t, sessions, "admin"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/kontak", RateLimit(ratelimit.NewMemory(ratelimit.MemoryConfig{}), "contact", 2, time.Minute, nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/kontak", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/kontak", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}
