package handler

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/middleware"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

// Diagnostics reads schema and latency information.
type Diagnostics interface {
	SchemaReport(ctx context.Context) ([]repository.TableReport, error)
	Timings(ctx context.Context) []repository.QueryTiming
}

// DiagHandler serves read-only diagnostics for admins and ops tokens.
type DiagHandler struct {
	diag Diagnostics
}

func NewDiagHandler(diag Diagnostics) *DiagHandler {
	return &DiagHandler{diag: diag}
}

// Schema handles GET /v1/admin/diag/schema.
func (h *DiagHandler) Schema(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	report, err := h.diag.SchemaReport(ctx)
	if err != nil {
		return serviceError(err)
	}
	healthy := true
	for _, t := range report {
		if !t.Exists || len(t.MissingColumns) > 0 {
			healthy = false
			break
		}
	}
	return response.Success(c, http.StatusOK, "Schema report", echo.Map{"healthy": healthy, "tables": report})
}

// Timing handles GET /v1/admin/diag/timing.
func (h *DiagHandler) Timing(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	timings := h.diag.Timings(ctx)
	var total float64
	for _, t := range timings {
		total += t.MS
	}
	return response.Success(c, http.StatusOK, "Query timings", echo.Map{"queries": timings, "total_ms": total})
}

// Session handles GET /v1/admin/diag/session.
func (h *DiagHandler) Session(c echo.Context) error {
	sess := session.FromContext(c)
	data := echo.Map{
		"session_id_prefix": idPrefix(sess.ID()),
		"values":            MaskSecrets(sess.Snapshot()),
	}
	if sub, ok := middleware.OpsSubject(c); ok {
		data["ops_subject"] = sub
	}
	return response.Success(c, http.StatusOK, "Session dump", data)
}

var secretMarkers = []string{"password", "token", "secret", "hash", "csrf"}

// MaskSecrets copies v replacing the value of any key that looks like a
// credential with "***".  Nested maps, session values and slices are
// masked too.
func MaskSecrets(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isSecretKey(k) {
			out[k] = "***"
			continue
		}
		out[k] = maskValue(v[k])
	}
	return out
}

func maskValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return MaskSecrets(t)
	case session.Values:
		return MaskSecrets(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return MaskSecrets(m)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = maskValue(t[i])
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = MaskSecrets(t[i])
		}
		return out
	}
	return v
}

func isSecretKey(k string) bool {
	lk := strings.ToLower(k)
	for _, m := range secretMarkers {
		if strings.Contains(lk, m) {
			return true
		}
	}
	return false
}

func idPrefix(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
