package middleware

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// RequireRole authenticates first, then requires the session role to be
// one of roles (case-sensitive).
func (g *Gate) RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			proceed, err := g.authenticate(c)
			if !proceed {
				return err
			}
			role := sessionRole(session.FromContext(c))
			if role == "" {
				return g.forbidden(c, g.isLoginPath(c.Request().URL.Path))
			}
			if !allowed[role] {
				return g.forbidden(c, false)
			}
			return next(c)
		}
	}
}

// forbidden refuses the request.  direct serves the 403 body in place
// instead of redirecting, which is required on the login page.
func (g *Gate) forbidden(c echo.Context, direct bool) error {
	if apiLike(c) {
		return apperr.Forbidden(msgForbiddenAPI)
	}
	if !direct && c.Request().URL.Path != g.opts.ForbiddenPage && g.forbiddenPageExists() {
		return c.Redirect(http.StatusFound, g.opts.ForbiddenPage)
	}
	return c.HTML(http.StatusForbidden, "<!doctype html><title>403 Forbidden</title><h1>"+msgForbiddenPage+"</h1>")
}

func (g *Gate) forbiddenPageExists() bool {
	if g.opts.ForbiddenPage == "" {
		return false
	}
	name := filepath.Join(g.opts.StaticDir, filepath.FromSlash(filepath.Clean("/"+g.opts.ForbiddenPage)))
	fi, err := os.Stat(name)
	return err == nil && !fi.IsDir()
}

// sessionRole reads the stored role without the customer default that
// session.User applies, so a missing role stays missing.
func sessionRole(s *session.Session) string {
	if m, ok := s.Map(session.KeyUser); ok {
		if r, ok := m["role"].(string); ok {
			return r
		}
		return ""
	}
	return s.String(session.KeyRole)
}
