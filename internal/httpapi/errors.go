package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"inspection-platform/internal/calls"
	"inspection-platform/pkg/logger"
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// StatusFor maps a lifecycle error kind to an HTTP status.
func StatusFor(err error) int {
	switch calls.KindOf(err) {
	case calls.KindNotFound:
		return http.StatusNotFound
	case calls.KindInvalidTransition, calls.KindConflict:
		return http.StatusConflict
	case calls.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case calls.KindForbidden:
		return http.StatusForbidden
	case calls.KindPersistenceFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	body := errorBody{Error: string(calls.KindOf(err)), Message: err.Error()}
	if ce, ok := asCallsError(err); ok {
		body.Code, body.Field, body.Message = ce.Code, ce.Field, ce.Message
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromGin(c).Error("request failed", "kind", body.Error, "err", err)
		if status == http.StatusInternalServerError {
			body.Error, body.Message = "internal", "internal error"
		} else {
			body.Message = "the change could not be saved; nothing was modified, please retry"
		}
	}
	c.AbortWithStatusJSON(status, body)
}

func asCallsError(err error) (*calls.Error, bool) {
	var ce *calls.Error
	ok := errors.As(err, &ce)
	return ce, ok
}
