package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger logs each request on arrival and on completion, tagged with
// a request id that is echoed back in X-Request-ID.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		method, url := c.Request.Method, c.Request.URL.String()
		logger.Info(fmt.Sprintf("%s %s - %s", method, url, c.ClientIP()), "request_id", requestID)

		c.Next()

		logger.Info(fmt.Sprintf("%s %s - %d - %s", method, url, c.Writer.Status(), time.Since(start)),
			"request_id", requestID)
	}
}
