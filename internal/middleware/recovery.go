package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
)

// Recovery turns a panic outside the response guard (page routes, static
// files) into a 500 envelope through the error handler.
func Recovery(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("error", r).
						Str("request_id", c.Response().Header().Get(requestIDHeader)).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")
					err = apperr.Internal(fmt.Errorf("panic: %v", r))
				}
			}()
			return next(c)
		}
	}
}
