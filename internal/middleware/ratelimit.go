package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brightline-health/intake-api/internal/service"
	appErrors "github.com/brightline-health/intake-api/pkg/errors"
	"github.com/brightline-health/intake-api/pkg/ratelimit"
	"github.com/brightline-health/intake-api/pkg/response"
)

// RateLimit rejects requests once the client IP exhausts its fixed-window
// quota. A limiter backend failure fails open: the request proceeds.
func RateLimit(limiter ratelimit.Limiter, metrics *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter backend failed, allowing request",
				zap.String("ip", c.ClientIP()), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.RecordRateLimited()
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
