package session

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const contextKey = "session"

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager loads a session for every request and persists it before the
// response is written.
type Manager struct {
	store Store
	opts  Options
	log   zerolog.Logger
}

// NewManager returns a Manager using store.
func NewManager(store Store, opts Options, log zerolog.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "CARWASHSESSID"
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Manager{store: store, opts: opts, log: log}
}

// Store exposes the underlying store.
func (m *Manager) Store() Store { return m.store }

// Middleware attaches a *Session to the context.  Unknown or malformed
// cookie ids are replaced by a fresh id; a client never chooses its own.
// Store failures while loading are logged and the request continues with
// an empty session.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := m.load(c.Request().Context(), c)
			c.Set(contextKey, sess)

			// Persist before the status line goes out so Set-Cookie makes it
			// into redirects and error pages too.
			c.Response().Before(func() { m.persist(c, sess) })

			err := next(c)
			if !c.Response().Committed {
				m.persist(c, sess)
			}
			return err
		}
	}
}

func (m *Manager) load(ctx context.Context, c echo.Context) *Session {
	sess := newSession(m.store, m.opts.TTL)
	ck, err := c.Cookie(m.opts.CookieName)
	if err != nil || !validID(ck.Value) {
		return sess
	}
	v, found, err := m.store.Load(ctx, ck.Value)
	if err != nil {
		m.log.Error().Err(err).Msg("session load failed")
		return sess
	}
	if !found {
		return sess
	}
	if v == nil {
		v = Values{}
	}
	sess.id = ck.Value
	sess.values = v
	sess.fresh = false
	return sess
}

// persist is idempotent per request.  Failures are logged, never raised:
// the response is already being written.
func (m *Manager) persist(c echo.Context, sess *Session) {
	if sess.persisted {
		return
	}
	sess.persisted = true

	if sess.destroyed {
		m.expireCookie(c)
		return
	}
	if len(sess.values) == 0 && sess.fresh {
		return
	}
	if sess.dirty || !sess.fresh {
		if err := m.store.Save(c.Request().Context(), sess.id, sess.values, m.opts.TTL); err != nil {
			m.log.Error().Err(err).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("session save failed")
			return
		}
	}
	if sess.fresh || sess.cookieDirty {
		sess.fresh = false
		m.writeCookie(c, sess.id)
	}
}

func (m *Manager) writeCookie(c echo.Context, id string) {
	c.SetCookie(&http.Cookie{
		Name:     m.opts.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.opts.TTL / time.Second),
	})
}

func (m *Manager) expireCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// FromContext returns the request's session.  Outside the middleware (unit
// tests of single handlers) it returns a fresh, memory-backed session so
// callers never juggle nil.
func FromContext(c echo.Context) *Session {
	if s, ok := c.Get(contextKey).(*Session); ok {
		return s
	}
	s := newSession(NewMemoryStore(), time.Hour)
	c.Set(contextKey, s)
	return s
}

// Attach places sess on the context.  Tests use it to seed state.
func Attach(c echo.Context, sess *Session) { c.Set(contextKey, sess) }

// New returns an empty session bound to store.
func New(store Store, ttl time.Duration) *Session { return newSession(store, ttl) }
