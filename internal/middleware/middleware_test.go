package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/config"
	"github.com/iliyamo/carwash-dashboard/internal/security"
	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

func TestCSRF(t *testing.T) {
	mw := CSRF(CSRFOptions{Log: zerolog.Nop()})
	seeded := func() *session.Session {
		s := newTestSession()
		s.Set(session.KeyCSRFToken, "tok-123")
		return s
	}

	cases := []struct {
		name    string
		method  string
		header  string
		form    string
		sess    *session.Session
		allowed bool
	}{
		{name: "safe method skipped", method: http.MethodGet, sess: seeded(), allowed: true},
		{name: "header match", method: http.MethodPost, header: "tok-123", sess: seeded(), allowed: true},
		{name: "form field match", method: http.MethodPost, form: "tok-123", sess: seeded(), allowed: true},
		{name: "missing token", method: http.MethodPost, sess: seeded()},
		{name: "mismatch", method: http.MethodDelete, header: "tok-999", sess: seeded()},
		{name: "unseeded session fails closed", method: http.MethodPost, header: "anything", sess: newTestSession()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body *strings.Reader
			if tc.form != "" {
				body = strings.NewReader(url.Values{CSRFFormField: {tc.form}}.Encode())
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, "/v1/vehicles", body)
			if tc.form != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			}
			if tc.header != "" {
				req.Header.Set(CSRFHeader, tc.header)
			}
			c := echo.New().NewContext(req, httptest.NewRecorder())
			session.Attach(c, tc.sess)

			called := false
			err := mw(okHandler(&called))(c)
			assert.Equal(t, tc.allowed, called)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsKind(err, apperr.KindCSRF))
			}
		})
	}
}

func TestCSRFAllowUnseeded(t *testing.T) {
	mw := CSRF(CSRFOptions{AllowUnseeded: true, Log: zerolog.Nop()})
	c, _ := newGateContext(http.MethodPost, "/v1/vehicles", newTestSession(), nil)
	called := false
	require.NoError(t, mw(okHandler(&called))(c))
	assert.True(t, called)
}

func TestJSONFormExposesFields(t *testing.T) {
	body := `{"car_brand":"BMW","year":2020,"working_hours":{"monday_start":"08:00"},"csrf_token":"t","skip":null}`
	req := httptest.NewRequest(http.MethodPost, "/v1/vehicle_api?action=create", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	var seen url.Values
	h := func(c echo.Context) error {
		seen = url.Values{
			"car_brand":     {c.FormValue("car_brand")},
			"year":          {c.FormValue("year")},
			"working_hours": {c.FormValue("working_hours")},
			"action":        {c.FormValue("action")},
			"csrf_token":    {c.FormValue("csrf_token")},
		}
		return nil
	}
	require.NoError(t, JSONForm()(h)(c))
	assert.Equal(t, "BMW", seen.Get("car_brand"))
	assert.Equal(t, "2020", seen.Get("year"))
	assert.JSONEq(t, `{"monday_start":"08:00"}`, seen.Get("working_hours"))
	assert.Equal(t, "create", seen.Get("action"))
	assert.Equal(t, "t", seen.Get("csrf_token"))
}

type resumerFunc func(ctx context.Context, sess *session.Session, raw string) (session.User, error)

func (f resumerFunc) ResumeFromRememberToken(ctx context.Context, sess *session.Session, raw string) (session.User, error) {
	return f(ctx, sess, raw)
}

func TestRememberMe(t *testing.T) {
	opts := RememberOptions{CookieName: "remember_token"}
	token := strings.Repeat("a", 64)

	t.Run("valid token resumes the session", func(t *testing.T) {
		resumer := resumerFunc(func(_ context.Context, sess *session.Session, raw string) (session.User, error) {
			assert.Equal(t, token, raw)
			u := session.User{ID: 5, Email: "r@example.com", Role: "customer"}
			sess.SetUser(u)
			return u, nil
		})
		sess := newTestSession()
		c, rec := newGateContext(http.MethodGet, "/dashboard", sess, nil)
		c.Request().AddCookie(&http.Cookie{Name: "remember_token", Value: token})

		called := false
		require.NoError(t, RememberMe(resumer, opts, zerolog.Nop())(okHandler(&called))(c))
		assert.True(t, called)
		_, ok := sess.User()
		assert.True(t, ok)
		assert.Empty(t, rec.Header().Values("Set-Cookie"))
	})

	t.Run("invalid token clears the cookie", func(t *testing.T) {
		resumer := resumerFunc(func(context.Context, *session.Session, string) (session.User, error) {
			return session.User{}, service.ErrInvalidRememberToken
		})
		c, rec := newGateContext(http.MethodGet, "/dashboard", newTestSession(), nil)
		c.Request().AddCookie(&http.Cookie{Name: "remember_token", Value: "short"})

		called := false
		require.NoError(t, RememberMe(resumer, opts, zerolog.Nop())(okHandler(&called))(c))
		assert.True(t, called)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "remember_token=;")
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	t.Run("datastore failure keeps the cookie", func(t *testing.T) {
		resumer := resumerFunc(func(context.Context, *session.Session, string) (session.User, error) {
			return session.User{}, errors.New("db down")
		})
		c, rec := newGateContext(http.MethodGet, "/dashboard", newTestSession(), nil)
		c.Request().AddCookie(&http.Cookie{Name: "remember_token", Value: token})

		called := false
		require.NoError(t, RememberMe(resumer, opts, zerolog.Nop())(okHandler(&called))(c))
		assert.True(t, called)
		assert.Empty(t, rec.Header().Get("Set-Cookie"))
	})

	t.Run("logged in sessions skip the lookup", func(t *testing.T) {
		resumer := resumerFunc(func(context.Context, *session.Session, string) (session.User, error) {
			t.Fatal("resumer must not be called")
			return session.User{}, nil
		})
		sess := newTestSession()
		sess.SetUser(session.User{ID: 1, Email: "a@example.com"})
		c, _ := newGateContext(http.MethodGet, "/dashboard", sess, nil)
		c.Request().AddCookie(&http.Cookie{Name: "remember_token", Value: token})
		called := false
		require.NoError(t, RememberMe(resumer, opts, zerolog.Nop())(okHandler(&called))(c))
		assert.True(t, called)
	})
}

func TestOpsTokenOr(t *testing.T) {
	const secret = "ops-secret"
	fallbackCalled := false
	fallback := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			fallbackCalled = true
			return apperr.Forbidden("")
		}
	}
	mw := OpsTokenOr(secret, fallback, zerolog.Nop())

	tok, err := security.NewOpsToken(secret, "monitor", time.Minute)
	require.NoError(t, err)

	c, _ := newGateContext(http.MethodGet, "/v1/admin/diag/timing", newTestSession(), map[string]string{"Authorization": "Bearer " + tok.Token})
	called := false
	require.NoError(t, mw(okHandler(&called))(c))
	assert.True(t, called)
	sub, ok := OpsSubject(c)
	assert.True(t, ok)
	assert.Equal(t, "monitor", sub)
	assert.Equal(t, "ops:monitor", currentUserID(c))

	c, _ = newGateContext(http.MethodGet, "/v1/admin/diag/timing", newTestSession(), map[string]string{"Authorization": "Bearer nope"})
	called = false
	err = mw(okHandler(&called))(c)
	assert.False(t, called)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	assert.False(t, fallbackCalled)

	c, _ = newGateContext(http.MethodGet, "/v1/admin/diag/timing", newTestSession(), nil)
	err = mw(okHandler(&called))(c)
	assert.True(t, fallbackCalled)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestRequestID(t *testing.T) {
	c, rec := newGateContext(http.MethodGet, "/healthz", newTestSession(), map[string]string{requestIDHeader: "abc"})
	called := false
	require.NoError(t, RequestID()(okHandler(&called))(c))
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))

	c, rec = newGateContext(http.MethodGet, "/healthz", newTestSession(), nil)
	require.NoError(t, RequestID()(okHandler(&called))(c))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestRecoveryConvertsPanics(t *testing.T) {
	c, _ := newGateContext(http.MethodGet, "/dashboard", newTestSession(), nil)
	err := Recovery(zerolog.Nop())(func(echo.Context) error { panic("boom") })(c)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusOf(err))
}

func TestRedisBackedMiddlewarePassThroughWithoutRedis(t *testing.T) {
	var rdb *redis.Client
	limiter := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, rdb, zerolog.Nop())
	cache := NewRedisCache(config.CacheConfig{Enabled: true}, rdb, zerolog.Nop())

	for i := 0; i < 3; i++ {
		c, rec := newGateContext(http.MethodPost, "/auth/login", newTestSession(), nil)
		called := false
		require.NoError(t, limiter(cache(okHandler(&called)))(c))
		assert.True(t, called)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestDecodePayloadRejectsTruncatedInput(t *testing.T) {
	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(payload[:10])
	assert.False(t, ok)
}

func TestBuildRateKey(t *testing.T) {
	sess := newTestSession()
	sess.SetUser(session.User{ID: 42, Email: "k@example.com"})
	c, _ := newGateContext(http.MethodPost, "/auth/login", sess, map[string]string{"X-Real-IP": "10.0.0.1"})
	c.SetPath("/auth/login")

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:42:route:POST /auth/login", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
}
