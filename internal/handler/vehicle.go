package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/service"
)

// Vehicles is the vehicle service used by VehicleHandler.
type Vehicles interface {
	List(ctx context.Context, userID int64) ([]model.Vehicle, error)
	Create(ctx context.Context, userID int64, in service.VehicleInput, image *multipart.FileHeader) (service.CreateResult, error)
	Update(ctx context.Context, userID, id int64, in service.VehicleInput, image *multipart.FileHeader) (service.UpdateResult, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
	CheckImages(ctx context.Context, userID int64) ([]service.VehicleImageReport, error)
}

// VehicleHandler manages the caller's own vehicles.  Every operation is
// scoped to the session user; ids of other users behave like missing ids.
type VehicleHandler struct {
	svc Vehicles
}

func NewVehicleHandler(svc Vehicles) *VehicleHandler {
	return &VehicleHandler{svc: svc}
}

// vehicleInput reads the vehicle fields.  The older dashboard posts them
// with a car_ prefix; both spellings are accepted.
func vehicleInput(c echo.Context) (service.VehicleInput, error) {
	year, err := optionalInt(c, "year", "year", "car_year")
	if err != nil {
		return service.VehicleInput{}, err
	}
	return service.VehicleInput{
		Brand:        formValue(c, "brand", "car_brand"),
		Model:        formValue(c, "model", "car_model"),
		LicensePlate: formValue(c, "license_plate", "car_license_plate", "plate"),
		Year:         year,
		Color:        formValue(c, "color", "car_color"),
	}, nil
}

func vehicleImage(c echo.Context) *multipart.FileHeader {
	return formFile(c, "image", "vehicle_image", "car_image")
}

// List handles GET /v1/vehicles.
func (h *VehicleHandler) List(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	vs, err := h.svc.List(ctx, u.ID)
	if err != nil {
		return serviceError(err)
	}
	if vs == nil {
		vs = []model.Vehicle{}
	}
	return response.Success(c, http.StatusOK, "Vehicles retrieved", echo.Map{"vehicles": vs})
}

// Create handles POST /v1/vehicles.  The vehicle is created even when its
// image cannot be stored; image_url is then left out of the response.
func (h *VehicleHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	in, err := vehicleInput(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.svc.Create(ctx, u.ID, in, vehicleImage(c))
	if err != nil {
		return serviceError(err)
	}
	data := echo.Map{"vehicle_id": res.VehicleID}
	if res.ImageURL != "" {
		data["image_url"] = res.ImageURL
	}
	return response.Success(c, http.StatusCreated, "Vehicle created", data)
}

// Update handles POST and PUT /v1/vehicles/:id.
func (h *VehicleHandler) Update(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "id", "vehicle_id")
	if err != nil {
		return err
	}
	in, err := vehicleInput(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.svc.Update(ctx, u.ID, id, in, vehicleImage(c))
	if err != nil {
		return serviceError(err)
	}
	data := echo.Map{"updated": res.Updated}
	if res.ImageURL != "" {
		data["image_url"] = res.ImageURL
	}
	return response.Success(c, http.StatusOK, "Vehicle updated", data)
}

// Delete handles DELETE /v1/vehicles/:id.
func (h *VehicleHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "id", "vehicle_id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	deleted, err := h.svc.Delete(ctx, u.ID, id)
	if err != nil {
		return serviceError(err)
	}
	return response.Success(c, http.StatusOK, "Vehicle deleted", echo.Map{"deleted": deleted})
}

// CheckImages handles GET /v1/vehicles/images.
func (h *VehicleHandler) CheckImages(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	reports, err := h.svc.CheckImages(ctx, u.ID)
	if err != nil {
		return serviceError(err)
	}
	missing := 0
	for _, r := range reports {
		if !r.Exists {
			missing++
		}
	}
	if reports == nil {
		reports = []service.VehicleImageReport{}
	}
	return response.Success(c, http.StatusOK, "Image check complete", echo.Map{
		"images":  reports,
		"checked": len(reports),
		"missing": missing,
	})
}

// API is the single-endpoint form used by the legacy dashboard:
// GET ?action=list|check_images and POST action=create|update|delete.
// A missing action means list on GET and create on POST.
func (h *VehicleHandler) API(c echo.Context) error {
	action := strings.ToLower(formValue(c, "action"))
	switch c.Request().Method {
	case http.MethodGet:
		switch action {
		case "", "list":
			return h.List(c)
		case "check_images":
			return h.CheckImages(c)
		}
	case http.MethodPost:
		switch action {
		case "", "create":
			return h.Create(c)
		case "update":
			return h.Update(c)
		case "delete":
			return h.Delete(c)
		}
	default:
		return methodNotAllowed(c, http.MethodGet, http.MethodPost)
	}
	return apperr.BadRequest("Invalid action")
}
