package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

const (
	msgLoopDetected     = "Too many redirects or invalid session. Please authenticate using the login endpoint."
	msgUnauthorized     = "Access denied. Please login using the login page."
	msgForbiddenAPI     = "403 Forbidden - insufficient permissions."
	msgForbiddenPage    = "403 Forbidden - You do not have permission to access this page."
	defaultLoginPath    = "/auth/login"
	defaultMaxRedirects = 5
)

// GateOptions configures a Gate.
type GateOptions struct {
	LoginPath     string // where unauthenticated page requests are sent
	ForbiddenPage string // static page for role mismatches, relative to StaticDir
	StaticDir     string
	MaxRedirects  int // redirect_count above this is a loop
}

// Gate decides, per request, between letting it through, sending the
// client to the login page and refusing it.  The only state it keeps is the
// redirect_count session counter, which is what breaks redirect loops: the
// login path itself is never redirected, and a client bounced more than
// MaxRedirects times gets a 403 instead of another 302.
type Gate struct {
	opts GateOptions
	log  zerolog.Logger
}

func NewGate(opts GateOptions, log zerolog.Logger) *Gate {
	if opts.LoginPath == "" {
		opts.LoginPath = defaultLoginPath
	}
	if opts.MaxRedirects < 1 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	return &Gate{opts: opts, log: log}
}

// RequireAuthenticated lets requests with a session user through.
func (g *Gate) RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			proceed, err := g.authenticate(c)
			if !proceed {
				return err
			}
			return next(c)
		}
	}
}

// authenticate reports whether the request may continue.  When it may not,
// the response has been written or the returned error describes it.
func (g *Gate) authenticate(c echo.Context) (bool, error) {
	sess := session.FromContext(c)
	if _, ok := sess.User(); ok {
		sess.Delete(session.KeyRedirectCount)
		return true, nil
	}

	path := c.Request().URL.Path
	if g.isLoginPath(path) {
		return true, nil
	}

	count, _ := sess.Int(session.KeyRedirectCount)
	count++
	if count > int64(g.opts.MaxRedirects) {
		sess.Delete(session.KeyRedirectCount)
		g.log.Warn().
			Str("path", path).
			Int64("redirect_count", count).
			Str("request_id", c.Response().Header().Get(requestIDHeader)).
			Msg("redirect loop detected")
		if apiLike(c) {
			return false, apperr.LoopDetected(msgLoopDetected)
		}
		return false, c.String(http.StatusForbidden, "403 Forbidden - "+msgLoopDetected)
	}
	sess.Set(session.KeyRedirectCount, count)

	if apiLike(c) {
		return false, apperr.Unauthenticated(msgUnauthorized)
	}
	return false, c.Redirect(http.StatusFound, g.loginURL(c.Request().RequestURI))
}

func (g *Gate) loginURL(requestURI string) string {
	sep := "?"
	if strings.Contains(g.opts.LoginPath, "?") {
		sep = "&"
	}
	return g.opts.LoginPath + sep + "return_to=" + url.QueryEscape(requestURI)
}

func (g *Gate) isLoginPath(p string) bool {
	p = strings.TrimSuffix(p, "/")
	loginPath := g.opts.LoginPath
	if i := strings.IndexByte(loginPath, '?'); i >= 0 {
		loginPath = loginPath[:i]
	}
	return p == strings.TrimSuffix(loginPath, "/") || p == defaultLoginPath || strings.HasSuffix(p, "/login")
}
