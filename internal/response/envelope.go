// Package response writes every JSON reply in one envelope shape and keeps
// stray output from corrupting it.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Raw     string            `json:"raw,omitempty"`
	Hint    string            `json:"hint,omitempty"`
	Trace   string            `json:"trace,omitempty"`
}

// Success sends a success envelope.  data may be nil.
func Success(c echo.Context, code int, message string, data any) error {
	return Send(c, code, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

// Fail sends an error envelope with an explicit status and message.
func Fail(c echo.Context, code int, message string) error {
	return Send(c, code, Envelope{Status: StatusError, Message: message})
}

// FromError sends err as an error envelope.  Only taxonomy messages reach
// the client; the cause text is added as trace when dev is set.
func FromError(c echo.Context, err error, dev bool) error {
	code, env := envelopeFor(err, dev)
	return Send(c, code, env)
}

func envelopeFor(err error, dev bool) (int, Envelope) {
	env := Envelope{Status: StatusError}
	code := http.StatusInternalServerError

	var he *echo.HTTPError
	if e, ok := apperr.As(err); ok {
		code = apperr.StatusOf(e)
		env.Message = e.Message
		env.Errors = e.Fields
		if dev && e.Err != nil {
			env.Trace = e.Err.Error()
		}
	} else if errors.As(err, &he) {
		code = he.Code
		env.Message = fmt.Sprint(he.Message)
		if dev && he.Internal != nil {
			env.Trace = he.Internal.Error()
		}
	} else {
		env.Message = "Internal server error"
		if dev && err != nil {
			env.Trace = err.Error()
		}
	}
	return code, env
}

// Send hands env to the guard of the current request, or writes it
// directly on routes without a guard.
func Send(c echo.Context, code int, env Envelope) error {
	if env.Status == "" {
		env.Status = StatusSuccess
		if code >= http.StatusBadRequest {
			env.Status = StatusError
		}
	}
	if g, ok := c.Get(guardKey).(*guardState); ok {
		g.envelope = &env
		g.code = code
		return nil
	}
	return writeJSON(c, code, env)
}

func writeJSON(c echo.Context, code int, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.Blob(code, ContentTypeJSON, body)
}
