package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler replaces echo's default HTTPErrorHandler so errors outside
// guarded routes (unknown paths, page routes) still use the envelope.
func ErrorHandler(dev bool, log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, env := envelopeFor(err, dev)
		if code >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if werr := writeJSON(c, code, env); werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}
