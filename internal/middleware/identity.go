package middleware

// identity.go defines helpers shared across middleware files.  Identity
// comes from the request session; an ops bearer token, when verified,
// stands in for it on diagnostics routes.

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// currentUserID returns the session user id as a string, or "anon" when
// nobody is logged in.
func currentUserID(c echo.Context) string {
	if u, ok := session.FromContext(c).User(); ok {
		if u.ID != 0 {
			return strconv.FormatInt(u.ID, 10)
		}
		return strings.ToLower(u.Email)
	}
	if sub, ok := c.Get(ctxOpsSubject).(string); ok && sub != "" {
		return "ops:" + sub
	}
	return "anon"
}

// apiLike reports whether the caller expects JSON: an Accept header naming
// application/json, an /api/ path segment or the versioned API prefix.
func apiLike(c echo.Context) bool {
	r := c.Request()
	if strings.Contains(strings.ToLower(r.Header.Get(echo.HeaderAccept)), echo.MIMEApplicationJSON) {
		return true
	}
	p := r.URL.Path
	return strings.Contains(p, "/api/") || strings.HasPrefix(p, "/v1/")
}
