package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger emits one event per request, at warn for 4xx and error for 5xx.
func Logger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final.
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status

			event := log.Info()
			if status >= 500 {
				event = log.Error()
			} else if status >= 400 {
				event = log.Warn()
			}

			event.
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Str("client_ip", c.RealIP()).
				Int("status", status).
				Dur("latency", latency).
				Str("request_id", c.Response().Header().Get(requestIDHeader)).
				Msg("http request")
			return nil
		}
	}
}
