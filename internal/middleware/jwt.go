package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/security"
)

// ctxOpsSubject holds the subject of a verified ops token.
const ctxOpsSubject = "ops_subject"

// OpsSubject returns the subject of the verified ops token, if any.
func OpsSubject(c echo.Context) (string, bool) {
	sub, ok := c.Get(ctxOpsSubject).(string)
	return sub, ok && sub != ""
}

// OpsTokenOr lets monitoring tools reach read-only routes with a Bearer ops
// token.  Requests without an Authorization header fall through to
// fallback, usually the admin role gate.  A header that is present but
// invalid is rejected outright and never falls back to the session.
func OpsTokenOr(secret string, fallback echo.MiddlewareFunc, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		gated := fallback(next)
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return gated(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return apperr.Unauthenticated("missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			claims, err := security.ParseOpsToken(secret, raw)
			if err != nil {
				log.Warn().Err(err).Str("path", c.Request().URL.Path).Msg("ops token rejected")
				return apperr.Unauthenticated("invalid token")
			}
			c.Set(ctxOpsSubject, claims.Subject)
			return next(c)
		}
	}
}
