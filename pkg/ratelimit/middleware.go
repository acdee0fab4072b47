package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"seatchart/internal/shared/utils/response"
	"seatchart/pkg/logger"
)

// Middleware enforces the per-route limits. The client address comes from gin's ClientIP, so
// forwarded headers only count when the engine trusts the proxy that set them. A redis failure
// lets the request through.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limitType := getRateLimitType(c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			logger.GetDefault().WarnContext(c.Request.Context(), "Rate limit check failed, allowing request",
				"ip", clientIP, "type", limitType, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			logger.GetDefault().LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			c.Header("Retry-After", strconv.FormatInt(retryAfter(result.ResetTime, time.Now()), 10))
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded", map[string]interface{}{
				"limit":      result.Limit,
				"reset_time": result.ResetTime,
			})
			return
		}

		c.Next()
	}
}

// retryAfter is the whole seconds until reset, at least one.
func retryAfter(reset int64, now time.Time) int64 {
	if d := reset - now.Unix(); d > 0 {
		return d
	}
	return 1
}

// getRateLimitType maps a route pattern to its limit class. Unmatched routes (404s) use the
// default class.
func getRateLimitType(path string) RateLimitType {
	switch {
	case path == "/health", path == "/ping", path == "/status":
		return RateLimitTypeHealth

	case strings.Contains(path, "/admin/"),
		strings.HasSuffix(path, "/charts/deltas"):
		return RateLimitTypeAdmin

	// seat locks
	case strings.Contains(path, "/holds"),
		strings.HasSuffix(path, "/checkout"):
		return RateLimitTypeHold

	// pointer and touch input arrives many times a second
	case strings.HasSuffix(path, "/gestures"),
		strings.HasSuffix(path, "/tap"),
		strings.HasSuffix(path, "/frame"):
		return RateLimitTypeGesture

	case strings.Contains(path, "/layouts"),
		strings.HasPrefix(path, "/swagger"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}
