package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mem "oglasnik/pkg/memcache"
	"oglasnik/pkg/utils"
)

// RateLimitMiddleware throttles per authenticated user, falling back to
// the client IP for anonymous calls.
func RateLimitMiddleware(store mem.RateWindowStore, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		if !store.Allow(key, limit, window) {
			utils.RespondError(c, http.StatusTooManyRequests, "Too many requests, slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
