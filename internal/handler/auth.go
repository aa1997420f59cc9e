package handler

import (
	"context"
	"errors"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/middleware"
	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/security"
	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// Authenticator is the credential verifier used by AuthHandler.
type Authenticator interface {
	Login(ctx context.Context, sess *session.Session, email, password string) (session.User, error)
	Register(ctx context.Context, in service.RegisterInput) (int64, error)
	IssueRememberToken(ctx context.Context, userID int64) (security.RememberToken, error)
	Logout(ctx context.Context, sess *session.Session) error
}

// AuthHandler serves login, logout, registration and session introspection.
type AuthHandler struct {
	auth     Authenticator
	remember middleware.RememberOptions
	log      zerolog.Logger
}

func NewAuthHandler(auth Authenticator, remember middleware.RememberOptions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, remember: remember, log: log}
}

type loginResp struct {
	User      session.User `json:"user"`
	CSRFToken string       `json:"csrf_token"`
	Redirect  string       `json:"redirect"`
}

// LoginPage answers GET on the login path.  API callers get a CSRF token,
// browsers a minimal form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	sess := session.FromContext(c)
	sess.Start()
	token, err := service.IssueCSRFToken(sess, false)
	if err != nil {
		return apperr.Internal(err)
	}
	returnTo := safeReturnTo(c.QueryParam("return_to"), "")
	if wantsJSON(c) {
		return response.Success(c, http.StatusOK, "Login required", echo.Map{"csrf_token": token, "return_to": returnTo})
	}
	page := `<!doctype html><html><head><meta charset="utf-8"><title>Login</title></head><body>
<form method="post" action="` + html.EscapeString(c.Request().URL.Path) + `">
<input type="hidden" name="csrf_token" value="` + html.EscapeString(token) + `">
<input type="hidden" name="return_to" value="` + html.EscapeString(returnTo) + `">
<label>Email <input type="email" name="email" required></label>
<label>Password <input type="password" name="password" required></label>
<label><input type="checkbox" name="remember_me" value="1"> Remember me</label>
<button type="submit">Login</button>
</form></body></html>`
	return c.HTML(http.StatusOK, page)
}

// Login verifies credentials and establishes the session.
func (h *AuthHandler) Login(c echo.Context) error {
	email := formValue(c, "email")
	password := c.FormValue("password")
	if email == "" || password == "" {
		return apperr.Validation(map[string]string{"credentials": "Email and password are required"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	sess := session.FromContext(c)
	u, err := h.auth.Login(ctx, sess, email, password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperr.BadRequest("Invalid email or password")
	case errors.Is(err, service.ErrAccountNotActive):
		return apperr.Forbidden("Account is not active")
	case errors.Is(err, service.ErrSessionUnavailable):
		return apperr.Unavailable("Session unavailable, please try again", err)
	case errors.Is(err, service.ErrServiceUnavailable):
		return apperr.Unavailable("", err)
	default:
		return apperr.Internal(err)
	}

	if truthy(c.FormValue("remember_me")) {
		tok, err := h.auth.IssueRememberToken(ctx, u.ID)
		if err != nil {
			h.log.Warn().Err(err).Int64("user_id", u.ID).Msg("issue remember token failed")
		} else {
			middleware.SetRememberCookie(c, h.remember, tok.Raw, int(time.Until(tok.Exp)/time.Second))
		}
	}

	return response.Success(c, http.StatusOK, "Login successful", loginResp{
		User:      u,
		CSRFToken: sess.String(session.KeyCSRFToken),
		Redirect:  safeReturnTo(c.FormValue("return_to"), homeFor(u.Role)),
	})
}

// Logout clears the remember token and destroys the session.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.auth.Logout(ctx, session.FromContext(c)); err != nil {
		h.log.Warn().Err(err).Msg("logout cleanup failed")
	}
	middleware.ClearRememberCookie(c, h.remember)
	return response.Success(c, http.StatusOK, "Logged out", nil)
}

// Register creates a customer or carwash account.
func (h *AuthHandler) Register(c echo.Context) error {
	in := service.RegisterInput{
		Name:     formValue(c, "name", "full_name"),
		Email:    formValue(c, "email"),
		Password: c.FormValue("password"),
		Role:     formValue(c, "role"),
	}
	if confirm := c.FormValue("password_confirm"); confirm != "" && confirm != in.Password {
		return apperr.Validation(map[string]string{"password_confirm": "Passwords do not match"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := h.auth.Register(ctx, in)
	if err != nil {
		return serviceError(err)
	}
	return response.Success(c, http.StatusCreated, "Registration successful", echo.Map{"user_id": id})
}

// CSRF returns the session's token, creating one if needed.
func (h *AuthHandler) CSRF(c echo.Context) error {
	sess := session.FromContext(c)
	sess.Start()
	token, err := service.IssueCSRFToken(sess, false)
	if err != nil {
		return apperr.Internal(err)
	}
	return response.Success(c, http.StatusOK, "CSRF token", echo.Map{"csrf_token": token})
}

// Me returns the session user.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Current user", echo.Map{"user": u})
}

func homeFor(role string) string {
	switch role {
	case model.RoleAdmin:
		return "/admin"
	case model.RoleCarwash:
		return "/carwash/dashboard"
	default:
		return "/dashboard"
	}
}

// safeReturnTo accepts only same-site absolute paths.
func safeReturnTo(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return fallback
	}
	return raw
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(strings.ToLower(c.Request().Header.Get(echo.HeaderAccept)), echo.MIMEApplicationJSON)
}
