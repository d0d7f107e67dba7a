package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wegift/auth-service/internal/dto"
	"github.com/wegift/auth-service/internal/service"
	"go.uber.org/zap"
)

// RateLimitRule is the budget of one endpoint
type RateLimitRule struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimitMiddleware creates a rate limiting middleware. When Redis is
// unavailable the request is let through and the failure logged.
func RateLimitMiddleware(rateLimiter *service.RateLimiter, rule RateLimitRule, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", rule.Scope, keyFunc(c))

		result, err := rateLimiter.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("scope", rule.Scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: fmt.Sprintf("rate limit exceeded, try again in %ds", retryAfter),
			})
			return
		}

		c.Next()
	}
}

// IPBasedKey keys the limit on the client IP as resolved by gin's trusted proxy settings
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}
