package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

const maxJSONFormBytes = 1 << 20

// JSONForm makes JSON request bodies readable through c.FormValue.  Top
// level fields of a JSON object become form values (objects and arrays as
// their JSON text) unless the form already has that key.  The body is left
// readable for handlers that bind it themselves.
func JSONForm() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return next(c)
			}
			if !strings.Contains(strings.ToLower(r.Header.Get(echo.HeaderContentType)), echo.MIMEApplicationJSON) || r.Body == nil {
				return next(c)
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONFormBytes+1))
			_ = r.Body.Close()
			if err != nil {
				return fmt.Errorf("read json body: %w", err)
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			if len(body) > maxJSONFormBytes {
				return echo.ErrStatusRequestEntityTooLarge
			}

			var fields map[string]any
			if err := json.Unmarshal(body, &fields); err != nil {
				// Not an object; the handler decides what to do with it.
				return next(c)
			}
			if err := r.ParseForm(); err != nil {
				return next(c)
			}
			if r.PostForm == nil {
				r.PostForm = url.Values{}
			}
			for k, v := range fields {
				if _, exists := r.Form[k]; exists {
					continue
				}
				s, ok := formString(v)
				if !ok {
					continue
				}
				r.Form.Set(k, s)
				r.PostForm.Set(k, s)
			}
			return next(c)
		}
	}
}

func formString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	case float64:
		return fmt.Sprint(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
