package router

import (
	"github.com/labstack/echo/v4"
)

// RegisterCustomer registers profile, vehicle and booking endpoints.  Any signed-in
// user may manage their own rows; ownership is enforced in the queries.
func RegisterCustomer(api *echo.Group, d Deps) {
	// ---- Profile ----
	api.GET("/profile", d.Profile.Get)
	api.POST("/profile", d.Profile.Update)

	// ---- Vehicles ----
	api.GET("/vehicles", d.Vehicles.List)
	api.POST("/vehicles", d.Vehicles.Create)
	api.GET("/vehicles/check_images", d.Vehicles.CheckImages)
	api.POST("/vehicles/:id", d.Vehicles.Update) // multipart clients cannot PUT
	api.PUT("/vehicles/:id", d.Vehicles.Update)
	api.DELETE("/vehicles/:id", d.Vehicles.Delete)
	// Single endpoint form used by the dashboard scripts.
	api.Any("/vehicle_api", d.Vehicles.API)

	// ---- Bookings ----
	api.GET("/bookings", d.Bookings.List)
	api.POST("/bookings", d.Bookings.Create)
	api.POST("/bookings/:id/cancel", d.Bookings.Cancel)
}
