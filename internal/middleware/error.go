package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/caresync/portal-api/internal/handler"
	apperrors "github.com/caresync/portal-api/pkg/errors"
)

// ErrorHandler logs any errors attached to the context and, when no
// response has been written yet, renders the last one with its stable
// error code. Raw error detail never reaches the response body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		appErr, ok := apperrors.As(lastErr)
		if !ok {
			appErr = apperrors.Storage(lastErr)
		}
		if appErr.Code == apperrors.CodeRateLimited {
			c.Header("Retry-After", "1")
		}
		c.JSON(appErr.StatusCode(), handler.NewErrorResponse(appErr.Code, appErr.Message))
	}
}

// NotFound is the fallback for unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(apperrors.CodeNotFound, "resource not found"))
	}
}
