package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/handler"
	"github.com/iliyamo/carwash-dashboard/internal/middleware"
	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// RegisterCarwash registers the business profile endpoints of carwash
// owners.  Admins may use them too.
func RegisterCarwash(api *echo.Group, d Deps) {
	owner := d.Gate.RequireRole(model.RoleCarwash, model.RoleAdmin)
	api.GET("/business", d.Business.Get, owner)
	api.POST("/business", d.Business.Save, owner)
}

// RegisterAdmin registers the read-only diagnostics.  They accept either an
// admin session or an ops bearer token, so they live outside the session
// gated /v1 group.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group("/v1/admin/diag",
		d.Guard,
		middleware.OpsTokenOr(d.OpsSecret, d.Gate.RequireRole(model.RoleAdmin), d.Log),
	)
	g.GET("/schema", d.Diag.Schema)
	g.GET("/timing", d.Diag.Timing)
	g.GET("/session", d.Diag.Session)
}

// RegisterPages registers the gated dashboard pages.
func RegisterPages(e *echo.Echo, d Deps) {
	e.GET("/dashboard", handler.Page("Dashboard"), d.Gate.RequireRole(model.RoleCustomer))
	e.GET("/carwash/dashboard", handler.Page("Carwash dashboard"), d.Gate.RequireRole(model.RoleCarwash))
	e.GET("/admin", handler.Page("Admin"), d.Gate.RequireRole(model.RoleAdmin))
}
