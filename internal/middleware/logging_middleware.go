// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"sqm-service/internal/utils"
)

// LoggingMiddleware logs every request except those for skipPaths, which are
// meant for high-frequency probes
func LoggingMiddleware(logger *utils.ServiceLogger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if _, ok := skip[path]; ok && c.Writer.Status() < 400 {
			return
		}

		logger.LogAPIRequest(
			c.Request.Method,
			path,
			c.Request.UserAgent(),
			c.ClientIP(),
			c.GetString("request_id"),
			c.Writer.Status(),
			time.Since(startTime),
		)
	}
}
