// Package handler contains the HTTP handlers.  Handlers read input from
// the form (JSON bodies are merged into it by middleware.JSONForm), call a
// service and answer through the response envelope.  All returned errors
// are apperr values or plain errors that surface as 500.
package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// currentUser returns the session user.  Routes are gated, so a missing
// user only happens when a route was registered without the gate.
func currentUser(c echo.Context) (session.User, error) {
	u, ok := session.FromContext(c).User()
	if !ok || u.ID == 0 {
		return session.User{}, apperr.Unauthenticated("")
	}
	return u, nil
}

// formValue returns the first non-empty value among names, trimmed.
func formValue(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(c.FormValue(n)); v != "" {
			return v
		}
	}
	return ""
}

// posted reports whether the request carried name at all, even empty.
func posted(c echo.Context, name string) bool {
	r := c.Request()
	if r.Form == nil {
		_ = c.FormValue(name) // parses the form
	}
	_, ok := r.Form[name]
	if !ok && r.MultipartForm != nil {
		_, ok = r.MultipartForm.Value[name]
	}
	return ok
}

// pathID parses a positive integer id from the route or, failing that, the
// given form fields.
func pathID(c echo.Context, param string, fields ...string) (int64, error) {
	raw := c.Param(param)
	if raw == "" {
		raw = formValue(c, fields...)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(map[string]string{param: "Invalid id"})
	}
	return id, nil
}

// optionalInt parses an optional integer field.  The first return is nil
// when the field is empty.
func optionalInt(c echo.Context, field string, names ...string) (*int, error) {
	raw := formValue(c, names...)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation(map[string]string{field: "Must be a number"})
	}
	return &n, nil
}

// formFile returns the first uploaded file among names, or nil.
func formFile(c echo.Context, names ...string) *multipart.FileHeader {
	for _, n := range names {
		fh, err := c.FormFile(n)
		if err == nil && fh != nil && fh.Size > 0 {
			return fh
		}
	}
	return nil
}

// serviceError maps service and repository errors onto the taxonomy.
func serviceError(err error) error {
	var fields service.FieldErrors
	switch {
	case err == nil:
		return nil
	case errors.As(err, &fields):
		return apperr.Validation(fields)
	case errors.Is(err, repository.ErrEmailExists):
		return apperr.Conflict("Email already registered")
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable("", err)
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}

// methodNotAllowed answers requests with a verb the endpoint lacks.
func methodNotAllowed(c echo.Context, allow ...string) error {
	c.Response().Header().Set(echo.HeaderAllow, strings.Join(allow, ", "))
	return apperr.MethodNotAllowed()
}
