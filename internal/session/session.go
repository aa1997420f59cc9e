package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Keys shared by the auth gate, the credential verifier and CSRF checks.
const (
	KeyUser          = "user"
	KeyUserID        = "user_id"
	KeyEmail         = "email"
	KeyName          = "name"
	KeyRole          = "role"
	KeyRedirectCount = "redirect_count"
	KeyCSRFToken     = "csrf_token"
)

const idBytes = 32

// Session is the state of one browser session during one request.  It is
// not safe for concurrent use; a request owns its session.
type Session struct {
	id      string
	values  Values
	store   Store
	ttl     time.Duration
	started bool

	fresh       bool // id was never persisted
	dirty       bool // values changed since load
	cookieDirty bool // Set-Cookie must be (re)sent
	destroyed   bool
	persisted   bool
}

func newSession(store Store, ttl time.Duration) *Session {
	return &Session{
		id:     newID(),
		values: Values{},
		store:  store,
		ttl:    ttl,
		fresh:  true,
	}
}

// ID returns the current session id.
func (s *Session) ID() string { return s.id }

// Start marks the session as active.  It is idempotent; the data was
// already loaded by the middleware.
func (s *Session) Start() { s.started = true }

// Started reports whether Start was called during this request.
func (s *Session) Started() bool { return s.started }

func (s *Session) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s *Session) Set(key string, v any) {
	s.values[key] = v
	s.dirty = true
}

func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// String returns the value as a string.  Numbers are formatted; other
// types yield "".
func (s *Session) String(key string) string {
	return toString(s.values[key])
}

// Int returns the value as an int64 when it holds a number or a numeric
// string.
func (s *Session) Int(key string) (int64, bool) {
	return toInt(s.values[key])
}

// Map returns the value when it is a JSON object.
func (s *Session) Map(key string) (map[string]any, bool) {
	switch t := s.values[key].(type) {
	case map[string]any:
		return t, true
	case Values:
		return t, true
	}
	return nil, false
}

// Snapshot returns a shallow copy of all values.
func (s *Session) Snapshot() Values {
	out := make(Values, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Regenerate moves the data to a fresh id and removes the old entry.  Any
// store failure is returned; callers establishing a login must treat it as
// fatal.
func (s *Session) Regenerate(ctx context.Context) error {
	next := newID()
	if err := s.store.Save(ctx, next, s.values, s.ttl); err != nil {
		return fmt.Errorf("save regenerated session: %w", err)
	}
	if !s.fresh {
		if err := s.store.Delete(ctx, s.id); err != nil {
			_ = s.store.Delete(ctx, next)
			return fmt.Errorf("delete previous session: %w", err)
		}
	}
	s.id = next
	s.fresh = false
	s.dirty = true
	s.cookieDirty = true
	return nil
}

// Destroy clears all values, removes the stored entry and expires the
// cookie.
func (s *Session) Destroy(ctx context.Context) error {
	s.values = Values{}
	s.destroyed = true
	s.cookieDirty = true
	if s.fresh {
		return nil
	}
	if err := s.store.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

func newID() string {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("session: read random: %v", err))
	}
	return hex.EncodeToString(b)
}

func validID(id string) bool {
	if len(id) != idBytes*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case json.Number:
		return t.String()
	}
	return ""
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case uint64:
		return int64(t), true
	case float64:
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
