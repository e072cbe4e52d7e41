package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/goldbooks/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
)

// RequestIDHeader is the header the request ID is read from and echoed to
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID, honoring one supplied by the caller.
// The ID is stored in the gin context, propagated into the request context for
// lower layers, and echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(
			logger.WithRequestID(c.Request.Context(), requestID))
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID stored by the RequestID middleware
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}
