// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"terminal-bridge/internal/utils"
)

// LoggingMiddleware logs every served request with its request id. Health
// probes and unmatched routes stay at debug unless they fail.
func LoggingMiddleware(logger *utils.ServiceLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger.LogAPIRequest(utils.APIRequest{
			RequestID:  utils.GetRequestID(c),
			Method:     c.Request.Method,
			Route:      c.FullPath(),
			Path:       c.Request.URL.Path,
			ClientIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			StatusCode: c.Writer.Status(),
			Duration:   time.Since(started),
		})
	}
}
