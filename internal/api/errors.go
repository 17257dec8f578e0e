package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiaopang/insight/internal/client"
	"github.com/xiaopang/insight/internal/core"
	"github.com/xiaopang/insight/internal/model"
)

func abortError(c *gin.Context, status int, msg, typ, code string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{
		Error: model.ErrorDetail{Message: msg, Type: typ, Code: code},
	})
}

func badRequest(c *gin.Context, msg, code string) {
	abortError(c, http.StatusBadRequest, msg, "invalid_request_error", code)
}

// classify maps an error onto an HTTP status and envelope type/code.
func classify(err error) (status int, typ, code string) {
	var httpErr *client.HTTPError
	var decodeErr *client.DecodeError
	switch {
	case errors.Is(err, client.ErrEmptyQuery):
		return http.StatusBadRequest, "invalid_request_error", "empty_query"
	case errors.Is(err, core.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_request_error", "invalid_range"
	case errors.Is(err, core.ErrQueryPending), errors.Is(err, core.ErrUploadNotIdle):
		return http.StatusConflict, "conflict_error", "in_progress"
	case errors.Is(err, core.ErrUploadNotFound):
		return http.StatusNotFound, "not_found_error", "upload_not_found"
	case errors.As(err, &httpErr):
		return http.StatusBadGateway, "upstream_error", "backend_error"
	case errors.As(err, &decodeErr):
		return http.StatusBadGateway, "upstream_error", "bad_backend_response"
	case client.IsTransport(err):
		return http.StatusServiceUnavailable, "upstream_error", "backend_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream_error", "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, core.ErrSuperseded), errors.Is(err, core.ErrQueueClosed):
		return http.StatusServiceUnavailable, "internal_error", "canceled"
	default:
		return http.StatusInternalServerError, "internal_error", "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	status, typ, code := classify(err)
	abortError(c, status, err.Error(), typ, code)
}
