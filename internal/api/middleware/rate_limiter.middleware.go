package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vigilops/vigil-core/pkg/cache"
)

// Anonymous caller ID for requests without identification
const AnonymousCallerID = "anonymous"

// RateLimiter implements per-caller API rate limiting backed by Valkey
func RateLimiter(valkeyCache cache.Valkey, maxRequests int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.Request.Header.Get("X-Caller-ID")
		if callerID == "" {
			callerID = AnonymousCallerID
		}

		window := time.Now().Unix() / 60 // 1-minute windows
		key := fmt.Sprintf("api_rate_limit:%s:%d", callerID, window)

		countBytes, err := valkeyCache.Get(c.Request.Context(), key)
		var currentCount int64 = 0
		if err == nil {
			if count, err := strconv.ParseInt(string(countBytes), 10, 64); err == nil {
				currentCount = count
			}
		}

		if currentCount >= maxRequests {
			c.Header("X-Rate-Limit-Limit", strconv.FormatInt(maxRequests, 10))
			c.Header("X-Rate-Limit-Remaining", "0")
			c.Header("X-Rate-Limit-Reset", strconv.FormatInt((window+1)*60, 10))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"error":       "Rate limit exceeded",
				"retry_after": 60,
			})
			c.Abort()
			return
		}

		newCount := currentCount + 1
		valkeyCache.Set(c.Request.Context(), key, newCount, 2*time.Minute)

		c.Header("X-Rate-Limit-Limit", strconv.FormatInt(maxRequests, 10))
		c.Header("X-Rate-Limit-Remaining", strconv.FormatInt(maxRequests-newCount, 10))
		c.Header("X-Rate-Limit-Reset", strconv.FormatInt((window+1)*60, 10))

		c.Next()
	}
}
