package middleware

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"postboard/apperrors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorHandler renders the last error attached with c.Error as the standard
// envelope, unless the handler already wrote a response. The stack is only
// exposed in development.
func ErrorHandler(logger *slog.Logger, development bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ginErr := c.Errors.Last()
		if ginErr == nil || c.Writer.Written() {
			return
		}

		err := ginErr.Err
		stack := apperrors.StackOf(err)
		logger.Error("request failed",
			"method", c.Request.Method,
			"url", c.Request.URL.String(),
			"ip", c.ClientIP(),
			"error", err,
			"stack", stack,
		)

		status, message := classify(err)
		c.JSON(status, envelope(message, stack, development))
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(logger *slog.Logger, development bool) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		stack := string(debug.Stack())
		logger.Error("panic recovered",
			"method", c.Request.Method,
			"url", c.Request.URL.String(),
			"ip", c.ClientIP(),
			"error", fmt.Sprint(recovered),
			"stack", stack,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope("Internal Server Error", stack, development))
	})
}

// NotFound answers any unmatched route.
func NotFound(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.Warn(fmt.Sprintf("404 - Route not found: %s %s", c.Request.Method, c.Request.URL.String()))
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	}
}

func classify(err error) (int, string) {
	switch {
	case apperrors.IsValidation(err):
		return http.StatusBadRequest, "Validation Error"
	case errors.Is(err, apperrors.ErrMissingToken):
		return http.StatusUnauthorized, "Access token required"
	case errors.Is(err, apperrors.ErrInvalidID):
		return http.StatusBadRequest, "Invalid ID format"
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, apperrors.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token"
	case mongo.IsDuplicateKeyError(err):
		return http.StatusBadRequest, "Duplicate field value"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func envelope(message, stack string, development bool) gin.H {
	body := gin.H{"success": false, "message": message}
	if development && stack != "" {
		body["stack"] = stack
	}
	return body
}
