package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"herald/pkg/metrics"
)

// Middleware limits API callers by client IP.
func Middleware(limiter *Keyed) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(int(limiter.config.RPS)))

		if !limiter.Allow(clientIP) {
			metrics.RateLimitRequestsTotal.WithLabelValues("api", "limited").Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"error_code": "RATE_LIMIT_EXCEEDED",
			})
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("api", "allowed").Inc()
		c.Next()
	}
}
