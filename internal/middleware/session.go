package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/portalapi"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved *models.Session.
const ContextSessionKey = "portalSession"

// SessionID reads the session id from the cookie, falling back to a bearer header for
// non-browser clients.
func SessionID(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if id, err := c.Cookie(cookieName); err == nil && id != "" {
			return id
		}
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireSession resolves the caller's session and forwards its upstream token on the request
// context.
func RequireSession(sessions *service.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := SessionID(c, cookieName)
		if id == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Silakan login terlebih dahulu"))
			c.Abort()
			return
		}
		session, err := sessions.Lookup(c.Request.Context(), id)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, session)
		c.Request = c.Request.WithContext(portalapi.WithToken(c.Request.Context(), session.Token))
		c.Next()
	}
}

// CurrentSession returns the session placed by RequireSession.
func CurrentSession(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}
