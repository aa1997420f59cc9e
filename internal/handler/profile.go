package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// Accounts is the account profile service used by ProfileHandler.
type Accounts interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
	Update(ctx context.Context, userID int64, in service.ProfileInput, image *multipart.FileHeader) (model.Profile, error)
}

// ProfileHandler serves the caller's own account profile.
type ProfileHandler struct {
	svc Accounts
}

func NewProfileHandler(svc Accounts) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// Get handles GET /v1/profile.
func (h *ProfileHandler) Get(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.svc.Get(ctx, u.ID)
	if err != nil {
		return profileError(err)
	}
	return response.Success(c, http.StatusOK, "Profile retrieved", echo.Map{"user": p})
}

// Update handles POST /v1/profile.  The session projection follows the
// new name and email; the role never changes here.
func (h *ProfileHandler) Update(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	in := service.ProfileInput{
		Name:     formValue(c, "name", "full_name"),
		Email:    formValue(c, "email"),
		Phone:    formValue(c, "phone"),
		Username: formValue(c, "username"),
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.svc.Update(ctx, u.ID, in, formFile(c, "profile_image"))
	if err != nil {
		return profileError(err)
	}
	session.FromContext(c).SetUser(session.User{ID: u.ID, Email: p.Email, Name: p.Name, Role: u.Role})
	return response.Success(c, http.StatusOK, "Profile updated", echo.Map{"user": p})
}

func profileError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	return serviceError(err)
}
