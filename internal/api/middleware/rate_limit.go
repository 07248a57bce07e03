package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"task-service/pkg/response"
)

// RateLimiter reports whether another request under key fits the window
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimitMiddleware struct {
	limiter RateLimiter
}

// NewRateLimitMiddleware returns a middleware factory. A nil limiter lets
// every request through.
func NewRateLimitMiddleware(limiter RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
	}
}

// RateLimit limits authenticated requests per user and endpoint
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			Abort(c, response.ErrCodeInvalidCredential)
			return
		}

		rm.check(c, fmt.Sprintf("rate_limit:%s:%s", userID, c.FullPath()), requests, window)
	}
}

// RateLimitIP limits requests per client IP, used before authentication
func (rm *RateLimitMiddleware) RateLimitIP(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		rm.check(c, fmt.Sprintf("rate_limit_ip:%s:%s", c.ClientIP(), c.FullPath()), requests, window)
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, requests int, window time.Duration) {
	if rm.limiter == nil {
		c.Next()
		return
	}

	allowed, err := rm.limiter.CheckRateLimit(c.Request.Context(), key, requests, window)
	if err != nil {
		// Redis outages should not take the API down with them
		slog.Error("Rate limit check failed", "key", key, "error", err)
		c.Next()
		return
	}
	if !allowed {
		Abort(c, response.ErrCodeRateLimited)
		return
	}

	c.Next()
}
