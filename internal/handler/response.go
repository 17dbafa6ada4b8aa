package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/caresync/portal-api/pkg/errors"
)

type Response struct {
	Status  string         `json:"status"`
	Code    apperrors.Code `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    interface{}    `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(code apperrors.Code, message string) *Response {
	return &Response{
		Status:  "error",
		Code:    code,
		Message: message,
	}
}

// Error writes err as a JSON error response. Unknown error types render
// as a generic 500; the raw error is attached to the gin context so the
// logging middleware records it server-side.
func Error(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Storage(err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.StatusCode(), NewErrorResponse(appErr.Code, appErr.Message))
}
