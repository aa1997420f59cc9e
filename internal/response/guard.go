package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	guardKey = "response.guard"

	// ContentTypeJSON is the content type of every envelope.
	ContentTypeJSON = "application/json; charset=utf-8"

	// MaxRawBytes caps stray output echoed back under "raw".
	MaxRawBytes = 4096

	unexpectedOutput = "Server emitted unexpected output before JSON response"
	unexpectedHint   = "The server produced output outside the JSON response; check the server logs"
)

type guardState struct {
	envelope *Envelope
	code     int
}

// bufferWriter holds everything a handler writes until the guard decides
// what the client actually receives.
type bufferWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *bufferWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

// GuardOptions configures Guard.
type GuardOptions struct {
	Dev bool // expose raw output and traces
	Log zerolog.Logger
}

// Guard makes the wrapped routes emit exactly one JSON document:
//   - an envelope sent through Send carries any stray output under "raw"
//     (truncated, and logged);
//   - without an envelope, output that is valid JSON passes unchanged;
//   - anything else is replaced by a 500 envelope.
//
// Returned errors and panics are converted to error envelopes as well.
func Guard(opts GuardOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			resp := c.Response()
			orig := resp.Writer
			bw := &bufferWriter{ResponseWriter: orig}
			resp.Writer = bw
			state := &guardState{}
			c.Set(guardKey, state)

			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					opts.Log.Error().
						Interface("panic", r).
						Str("request_id", resp.Header().Get(echo.HeaderXRequestID)).
						Bytes("stack", stack).
						Msg("panic recovered")
					env := Envelope{Status: StatusError, Message: "Internal server error"}
					if opts.Dev {
						env.Trace = fmt.Sprintf("%v\n%s", r, stack)
					}
					state.envelope = &env
					state.code = http.StatusInternalServerError
				}
				c.Set(guardKey, nil)
				resp.Writer = orig
				err = finish(c, bw, state, opts)
			}()

			if herr := next(c); herr != nil {
				code, env := envelopeFor(herr, opts.Dev)
				if code >= http.StatusInternalServerError {
					opts.Log.Error().Err(herr).Str("path", c.Request().URL.Path).Msg("request failed")
				}
				state.envelope = &env
				state.code = code
			}
			return nil
		}
	}
}

func finish(c echo.Context, bw *bufferWriter, state *guardState, opts GuardOptions) error {
	stray := bw.buf.Bytes()

	if state.envelope != nil {
		env := *state.envelope
		if len(stray) > 0 {
			raw := truncate(stray, MaxRawBytes)
			opts.Log.Warn().
				Str("path", c.Request().URL.Path).
				Int("bytes", len(stray)).
				Str("raw", raw).
				Msg("stray output before JSON response")
			env.Raw = raw
		}
		return emitJSON(c, state.code, env)
	}

	if len(stray) == 0 {
		return replay(c, bw.status, nil)
	}
	if json.Valid(stray) {
		return replay(c, bw.status, stray)
	}

	raw := truncate(stray, MaxRawBytes)
	opts.Log.Warn().
		Str("path", c.Request().URL.Path).
		Int("bytes", len(stray)).
		Str("raw", raw).
		Msg("non-JSON output on JSON route")
	env := Envelope{Status: StatusError, Message: unexpectedOutput}
	if opts.Dev {
		env.Raw = raw
	} else {
		env.Hint = unexpectedHint
	}
	return emitJSON(c, http.StatusInternalServerError, env)
}

func emitJSON(c echo.Context, code int, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, ContentTypeJSON)
	return replay(c, code, body)
}

// replay writes the final status and body through echo's Response so
// Before hooks (session cookies) still run.
func replay(c echo.Context, code int, body []byte) error {
	resp := c.Response()
	if code == 0 {
		code = http.StatusOK
	}
	resp.Header().Del(echo.HeaderContentLength)
	resp.Committed = false
	resp.Size = 0
	resp.WriteHeader(code)
	if len(body) == 0 {
		return nil
	}
	_, err := resp.Write(body)
	return err
}

// truncate keeps at most n bytes; a rune split by the cut is dropped.
func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.ToValidUTF8(string(b), "")
}
