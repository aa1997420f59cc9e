package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
)

func run(t *testing.T, dev bool, h echo.HandlerFunc) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/vehicles", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := Guard(GuardOptions{Dev: dev, Log: zerolog.Nop()})(h)(c)
	require.NoError(t, err)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestGuardSuccessEnvelope(t *testing.T) {
	rec, body := run(t, false, func(c echo.Context) error {
		return Success(c, http.StatusCreated, "Vehicle created", map[string]any{"vehicle_id": 12})
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Vehicle created", body["message"])
	assert.Equal(t, float64(12), body["data"].(map[string]any)["vehicle_id"])
	assert.NotContains(t, body, "raw")
}

func TestGuardAttachesStrayOutputAsRaw(t *testing.T) {
	rec, body := run(t, false, func(c echo.Context) error {
		fmt.Fprint(c.Response(), "Notice: undefined index")
		return Success(c, http.StatusOK, "ok", nil)
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Notice: undefined index", body["raw"])
}

func TestGuardTruncatesRaw(t *testing.T) {
	_, body := run(t, false, func(c echo.Context) error {
		fmt.Fprint(c.Response(), strings.Repeat("x", MaxRawBytes+500))
		return Success(c, http.StatusOK, "ok", nil)
	})

	assert.Len(t, body["raw"], MaxRawBytes)
}

func TestGuardPassesThroughValidJSON(t *testing.T) {
	rec, body := run(t, false, func(c echo.Context) error {
		return c.JSON(http.StatusAccepted, map[string]string{"legacy": "shape"})
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "shape", body["legacy"])
}

func TestGuardReplacesNonJSONOutput(t *testing.T) {
	t.Run("production gets a hint", func(t *testing.T) {
		rec, body := run(t, false, func(c echo.Context) error {
			return c.String(http.StatusOK, "<b>Warning</b>: something")
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, unexpectedOutput, body["message"])
		assert.NotContains(t, body, "raw")
		assert.NotEmpty(t, body["hint"])
	})

	t.Run("dev gets the raw output", func(t *testing.T) {
		_, body := run(t, true, func(c echo.Context) error {
			return c.String(http.StatusOK, "<b>Warning</b>: something")
		})
		assert.Equal(t, "<b>Warning</b>: something", body["raw"])
		assert.NotContains(t, body, "hint")
	})
}

func TestGuardMapsErrors(t *testing.T) {
	rec, body := run(t, false, func(c echo.Context) error {
		return apperr.Validation(map[string]string{"license_plate": "License plate is required"})
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Equal(t, "License plate is required", body["errors"].(map[string]any)["license_plate"])
}

func TestGuardTraceOnlyInDev(t *testing.T) {
	failing := func(c echo.Context) error { return errors.New("sql: connection refused") }

	_, prod := run(t, false, failing)
	assert.Equal(t, "Internal server error", prod["message"])
	assert.NotContains(t, prod, "trace")

	_, dev := run(t, true, failing)
	assert.Equal(t, "sql: connection refused", dev["trace"])
}

func TestGuardRecoversPanics(t *testing.T) {
	rec, body := run(t, true, func(c echo.Context) error {
		panic("nil map")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["trace"], "nil map")
}

func TestGuardKeepsRedirects(t *testing.T) {
	rec, _ := run(t, false, func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/auth/login")
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get(echo.HeaderLocation))
}

func TestSendWithoutGuardWritesDirectly(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, Fail(c, http.StatusForbidden, "Forbidden"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Forbidden"}`, rec.Body.String())
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/nope", nil), rec)

	ErrorHandler(false, zerolog.Nop())(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Not Found"}`, rec.Body.String())
}
