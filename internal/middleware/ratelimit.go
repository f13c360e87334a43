package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/kelurahan-portal/pkg/errors"
	"github.com/noah-isme/kelurahan-portal/pkg/ratelimit"
	"github.com/noah-isme/kelurahan-portal/pkg/response"
)

type limitExceeded struct {
	wait time.Duration
}

func (e *limitExceeded) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.wait)
}

func (e *limitExceeded) RetryAfterSeconds() int {
	return int((e.wait + time.Second - 1) / time.Second)
}

// RateLimit throttles a route group per client IP. Limiter failures let the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := scope + ":" + c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			wait := decision.RetryAfter(time.Now())
			if wait <= 0 {
				wait = time.Second
			}
			exceeded := &limitExceeded{wait: wait}
			msg := fmt.Sprintf("Terlalu banyak permintaan. Coba lagi dalam %d detik.", exceeded.RetryAfterSeconds())
			response.Error(c, appErrors.Wrap(exceeded, appErrors.ErrRateLimited.Code, appErrors.ErrRateLimited.Status, msg))
			c.Abort()
			return
		}
		c.Next()
	}
}
