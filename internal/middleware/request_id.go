package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = echo.HeaderXRequestID

// RequestID keeps the caller's X-Request-Id or assigns a new UUID, and
// echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(requestIDHeader)
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}
			c.Set(requestIDHeader, requestID)
			c.Response().Header().Set(requestIDHeader, requestID)
			return next(c)
		}
	}
}
