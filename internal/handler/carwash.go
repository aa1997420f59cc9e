package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/response"
)

// Carwashes is the public catalogue.
type Carwashes interface {
	ListActive(ctx context.Context) ([]model.Carwash, error)
	ListServices(ctx context.Context, carwashID int64) ([]model.Service, error)
}

type CarwashHandler struct {
	repo Carwashes
}

func NewCarwashHandler(repo Carwashes) *CarwashHandler {
	return &CarwashHandler{repo: repo}
}

// List handles GET /v1/carwashes.  No authentication; responses are cached.
func (h *CarwashHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	cws, err := h.repo.ListActive(ctx)
	if err != nil {
		return serviceError(err)
	}
	if cws == nil {
		cws = []model.Carwash{}
	}
	return response.Success(c, http.StatusOK, "Carwashes retrieved", echo.Map{"carwashes": cws})
}

// Services handles GET /v1/carwashes/:id/services.
func (h *CarwashHandler) Services(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	svcs, err := h.repo.ListServices(ctx, id)
	if err != nil {
		return serviceError(err)
	}
	if svcs == nil {
		svcs = []model.Service{}
	}
	return response.Success(c, http.StatusOK, "Services retrieved", echo.Map{"services": svcs})
}
