package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"shelfScout/business/recommend"
	"shelfScout/domain"
)

// Identity extracts the acting identity from the X-User-ID / X-Session-ID
// headers. Authentication lives upstream; by the time a request reaches
// this service the gateway has already verified the user header. Handlers
// that require an identity reject requests where both headers are empty.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := domain.Identity{
				UserID:    c.Request().Header.Get("X-User-ID"),
				SessionID: c.Request().Header.Get("X-Session-ID"),
			}
			c.Set("identity", id)
			return next(c)
		}
	}
}

// Trace stamps every request with a trace id (client-provided X-Trace-ID or
// a fresh UUID) and threads it through the request context for log
// correlation.
func Trace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tid := c.Request().Header.Get("X-Trace-ID")
			if tid == "" {
				tid = uuid.NewString()
			}
			req := c.Request()
			c.SetRequest(req.WithContext(recommend.WithTraceID(req.Context(), tid)))
			c.Response().Header().Set("X-Trace-ID", tid)
			return next(c)
		}
	}
}
