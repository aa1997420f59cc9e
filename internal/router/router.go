package router // package router defines how HTTP routes are registered for the dashboard

import (
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/handler"
	"github.com/iliyamo/carwash-dashboard/internal/middleware"
)

// Deps are the handlers and shared middleware the routes are built from.
// Guard, CSRF, RateLimit and Cache are constructed once in main so every
// group shares the same instances.
type Deps struct {
	Auth      *handler.AuthHandler
	Vehicles  *handler.VehicleHandler
	Bookings  *handler.BookingHandler
	Business  *handler.BusinessHandler
	Profile   *handler.ProfileHandler
	Carwashes *handler.CarwashHandler
	Diag      *handler.DiagHandler
	DB        handler.Pinger

	Gate      *middleware.Gate
	Guard     echo.MiddlewareFunc
	CSRF      echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc

	OpsSecret     string
	StaticDir     string
	ForbiddenPage string
	Log           zerolog.Logger
}

// Register wires every route group on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterPublic(e, d)

	// Protected JSON API.  The guard is outermost so CSRF and gate
	// failures leave as envelopes.
	api := e.Group("/v1",
		d.Guard,
		middleware.JSONForm(),
		d.CSRF,
		d.Gate.RequireAuthenticated(),
	)
	api.GET("/me", d.Auth.Me)
	RegisterCustomer(api, d)
	RegisterCarwash(api, d)
	RegisterAdmin(e, d)
	RegisterPages(e, d)
}

// RegisterRoutes registers the probes and the static forbidden page.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness never touches dependencies; readiness pings MySQL.
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}
	if d.ForbiddenPage != "" && d.StaticDir != "" {
		e.File(d.ForbiddenPage, filepath.Join(d.StaticDir, filepath.Clean("/"+d.ForbiddenPage)))
	}
}

// RegisterAuth registers login, logout and registration.  The login page is
// HTML for browsers so it sits outside the guard; the POST endpoints are
// rate limited and CSRF checked.
func RegisterAuth(e *echo.Echo, d Deps) {
	e.GET("/auth/login", d.Auth.LoginPage)

	g := e.Group("/auth", d.RateLimit, d.Guard, middleware.JSONForm(), d.CSRF)
	g.POST("/login", d.Auth.Login)
	g.POST("/register", d.Auth.Register)
	g.POST("/logout", d.Auth.Logout)

	// Token bootstrap for API clients that never load the login page.
	e.GET("/v1/auth/csrf", d.Auth.CSRF, d.Guard)
}

// RegisterPublic registers unauthenticated browse endpoints.  The response
// cache wraps the guard so it stores the normalized body.
func RegisterPublic(e *echo.Echo, d Deps) {
	e.GET("/v1/carwashes", d.Carwashes.List, d.Cache, d.Guard)
	e.GET("/v1/carwashes/:id/services", d.Carwashes.Services, d.Cache, d.Guard)
}
