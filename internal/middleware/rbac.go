package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kelurahan-portal/internal/models"
	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

// RequireRoles lets the request through only when the session user holds one of roles. It must
// run after RequireSession.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		session := CurrentSession(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[session.User.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Anda tidak memiliki akses ke halaman ini"))
		c.Abort()
	}
}
