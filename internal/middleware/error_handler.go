package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/coachhub/scheduler/internal/dto"
	"github.com/coachhub/scheduler/internal/schedule"
	"github.com/coachhub/scheduler/internal/service"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler maps domain error kinds onto HTTP codes in one place so
// handlers can return service errors untouched.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := err.Error()

		var he *echo.HTTPError
		var conflict *schedule.ConflictError
		switch {
		case errors.As(err, &he):
			code = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		case errors.Is(err, service.ErrValidation):
			code = http.StatusBadRequest
		case errors.Is(err, service.ErrNotFound):
			code = http.StatusNotFound
		case errors.Is(err, service.ErrConflict), errors.As(err, &conflict):
			code = http.StatusConflict
		case errors.Is(err, service.ErrInvalidTransition):
			code = http.StatusUnprocessableEntity
		case errors.Is(err, service.ErrDataIntegrity):
			code = http.StatusInternalServerError
		case errors.Is(err, context.DeadlineExceeded):
			code = http.StatusServiceUnavailable
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		_ = c.JSON(code, dto.ErrorResponse{Message: msg})
	}
}
