package handler

import (
	"html"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// Page renders a minimal gated page for the session user.  The real
// dashboards are static assets that call the /v1 API.
func Page(title string) echo.HandlerFunc {
	return func(c echo.Context) error {
		u, err := currentUser(c)
		if err != nil {
			return err
		}
		name := u.Name
		if name == "" {
			name = u.Email
		}
		csrf := session.FromContext(c).String(session.KeyCSRFToken)
		body := `<!doctype html><html><head><meta charset="utf-8"><title>` + html.EscapeString(title) + `</title></head><body>` +
			`<h1>` + html.EscapeString(title) + `</h1><p>Signed in as ` + html.EscapeString(name) + ` (` + html.EscapeString(u.Role) + `)</p>` +
			`<form method="post" action="/auth/logout">` +
			`<input type="hidden" name="csrf_token" value="` + html.EscapeString(csrf) + `"><button type="submit">Logout</button></form></body></html>`
		return c.HTML(http.StatusOK, body)
	}
}
