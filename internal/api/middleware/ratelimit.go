package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/ratelimit"
)

// RateLimitMiddleware applies a sliding-window limit per client IP and
// endpoint. Redis errors fail open.
func RateLimitMiddleware(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		cfg := limitFor(c.FullPath())
		key := fmt.Sprintf("ratelimit:%s:%s", clientIP, c.FullPath())

		info, err := limiter.Check(c.Request.Context(), key, cfg)
		if err != nil {
			logger.Error("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", info.Reset.Unix()))

		if !info.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
			logger.Warn("rate limit exceeded",
				zap.String("ip", clientIP),
				zap.String("path", c.FullPath()),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": fmt.Sprintf("%d seconds", int(info.RetryAfter.Seconds())),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func limitFor(path string) ratelimit.Config {
	switch path {
	case "/api/v1/auth/login", "/api/v1/auth/register":
		return ratelimit.AuthLimit
	case "/api/v1/events", "/api/v1/accounts/:id/deposit", "/api/v1/accounts/:id/transfer":
		return ratelimit.EventLimit
	default:
		return ratelimit.GeneralLimit
	}
}
