package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/service"
)

// Bookings is the booking service used by BookingHandler.
type Bookings interface {
	List(ctx context.Context, userID int64) ([]model.Booking, error)
	Create(ctx context.Context, userID int64, in service.BookingInput) (model.Booking, error)
	Cancel(ctx context.Context, userID, id int64) (bool, error)
}

type BookingHandler struct {
	svc Bookings
}

func NewBookingHandler(svc Bookings) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// List handles GET /v1/bookings.
func (h *BookingHandler) List(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	bs, err := h.svc.List(ctx, u.ID)
	if err != nil {
		return serviceError(err)
	}
	if bs == nil {
		bs = []model.Booking{}
	}
	return response.Success(c, http.StatusOK, "Bookings retrieved", echo.Map{"bookings": bs})
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	in, err := bookingInput(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.svc.Create(ctx, u.ID, in)
	if err != nil {
		return serviceError(err)
	}
	return response.Success(c, http.StatusCreated, "Booking created", echo.Map{"booking": b})
}

// Cancel handles POST /v1/bookings/:id/cancel.  Missing, foreign and no
// longer cancellable bookings all answer 200 with cancelled false.
func (h *BookingHandler) Cancel(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "booking_id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	ok, err := h.svc.Cancel(ctx, u.ID, id)
	if err != nil {
		return serviceError(err)
	}
	msg := "Booking cancelled"
	if !ok {
		msg = "Booking could not be cancelled"
	}
	return response.Success(c, http.StatusOK, msg, echo.Map{"cancelled": ok})
}

func bookingInput(c echo.Context) (service.BookingInput, error) {
	fields := map[string]string{}
	carwashID := parseInt64(formValue(c, "carwash_id"), "carwash_id", fields)
	serviceID := parseInt64(formValue(c, "service_id"), "service_id", fields)
	var vehicleID *int64
	if raw := formValue(c, "vehicle_id"); raw != "" {
		id := parseInt64(raw, "vehicle_id", fields)
		vehicleID = &id
	}
	if len(fields) > 0 {
		return service.BookingInput{}, apperr.Validation(fields)
	}
	return service.BookingInput{
		CarwashID:     carwashID,
		ServiceID:     serviceID,
		VehicleID:     vehicleID,
		Date:          formValue(c, "booking_date", "date"),
		Time:          formValue(c, "booking_time", "time"),
		CustomerName:  formValue(c, "customer_name"),
		CustomerPhone: formValue(c, "customer_phone"),
		Notes:         formValue(c, "notes"),
	}, nil
}

// parseInt64 records a message in fields when raw is present but not a
// number.  Empty input yields 0 and is left to service validation.
func parseInt64(raw, field string, fields map[string]string) int64 {
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fields[field] = "Must be a number"
		return 0
	}
	return n
}
