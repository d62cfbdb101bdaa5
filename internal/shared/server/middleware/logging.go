package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"career-curve/internal/shared/telemetry"
)

// Logging emits a structured log per request. Handlers may set role,
// rankPercent and total on the context to have them included.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for ctxKey, logKey := range map[string]string{
			"role":        "role",
			"rankPercent": "rank_percent",
			"total":       "total",
		} {
			if v, ok := c.Get(ctxKey); ok {
				fields[logKey] = v
			}
		}
		telemetry.Info("request.complete", fields)
	}
}
