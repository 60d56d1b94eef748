// internal/middleware/recovery_middleware.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"terminal-bridge/internal/utils"
)

// PanicErrorCode is the error code reported for recovered panics
const PanicErrorCode = "stripeTerminal#unexpectedError"

// RecoveryMiddleware turns a handler panic into a 500 envelope. The request
// id ties the response to the logged stack.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		requestID := utils.GetRequestID(c)

		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", requestID),
			zap.String("route", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Stack("stacktrace"),
		)

		utils.CodedErrorResponse(c, http.StatusInternalServerError, &utils.APIError{
			Code:    PanicErrorCode,
			Message: "Internal server error",
		})
		c.Abort()
	})
}
