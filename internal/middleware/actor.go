package middleware

import (
	"github.com/coachhub/scheduler/internal/audit"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Actor copies the X-Actor-ID header into the request context so services
// can stamp audit events. A missing or malformed header leaves the actor
// unset; identity is established upstream of this service.
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := c.Request().Header.Get("X-Actor-ID"); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					ctx := audit.WithActor(c.Request().Context(), id)
					c.SetRequest(c.Request().WithContext(ctx))
				}
			}
			return next(c)
		}
	}
}
