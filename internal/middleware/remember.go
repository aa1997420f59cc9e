package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// RememberResumer re-establishes a session from a remember-me cookie.
type RememberResumer interface {
	ResumeFromRememberToken(ctx context.Context, sess *session.Session, raw string) (session.User, error)
}

// RememberOptions configures RememberMe.
type RememberOptions struct {
	CookieName string
	Secure     bool
}

// RememberMe logs a visitor back in from the remember-me cookie when the
// session has no user.  It runs before the gate.  Tokens that no longer
// resolve clear the cookie; datastore failures leave it for the next
// request.
func RememberMe(auth RememberResumer, opts RememberOptions, log zerolog.Logger) echo.MiddlewareFunc {
	if opts.CookieName == "" {
		opts.CookieName = "remember_token"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := session.FromContext(c)
			if _, ok := sess.User(); ok {
				return next(c)
			}
			ck, err := c.Cookie(opts.CookieName)
			if err != nil || ck.Value == "" {
				return next(c)
			}

			u, err := auth.ResumeFromRememberToken(c.Request().Context(), sess, ck.Value)
			switch {
			case err == nil:
				log.Info().Int64("user_id", u.ID).Msg("session resumed from remember token")
			case errors.Is(err, service.ErrInvalidRememberToken):
				ClearRememberCookie(c, opts)
			default:
				log.Warn().Err(err).Msg("remember token lookup failed")
			}
			return next(c)
		}
	}
}

// SetRememberCookie writes the remember-me cookie.
func SetRememberCookie(c echo.Context, opts RememberOptions, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     opts.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearRememberCookie expires the remember-me cookie.
func ClearRememberCookie(c echo.Context, opts RememberOptions) {
	SetRememberCookie(c, opts, "", -1)
}
