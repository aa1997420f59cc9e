package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore wraps a MemoryStore and fails the selected operations.
type failingStore struct {
	*MemoryStore
	saveErr   error
	deleteErr error
	loadErr   error
}

func (f *failingStore) Load(ctx context.Context, id string) (Values, bool, error) {
	if f.loadErr != nil {
		return nil, false, f.loadErr
	}
	return f.MemoryStore.Load(ctx, id)
}

func (f *failingStore) Save(ctx context.Context, id string, v Values, ttl time.Duration) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, id, v, ttl)
}

func (f *failingStore) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, id)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), "a", Values{"k": 1}, time.Minute))
	v, found, err := store.Load(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(1), v["k"])

	now = now.Add(2 * time.Minute)
	_, found, err = store.Load(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len())
}

func TestTypedGetters(t *testing.T) {
	s := New(NewMemoryStore(), time.Hour)
	s.Set("n", float64(42))
	s.Set("s", "17")
	s.Set("str", "hello")

	n, ok := s.Int("n")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	n, ok = s.Int("s")
	assert.True(t, ok)
	assert.Equal(t, int64(17), n)

	_, ok = s.Int("str")
	assert.False(t, ok)
	assert.Equal(t, "42", s.String("n"))
	assert.Equal(t, "", s.String("missing"))
}

func TestUserResolution(t *testing.T) {
	t.Run("structured entry", func(t *testing.T) {
		s := New(NewMemoryStore(), time.Hour)
		s.Set(KeyUser, map[string]any{"id": float64(7), "email": "a@b.c", "name": "A"})
		u, ok := s.User()
		require.True(t, ok)
		assert.Equal(t, int64(7), u.ID)
		assert.Equal(t, DefaultRole, u.Role)
	})

	t.Run("legacy flat keys", func(t *testing.T) {
		s := New(NewMemoryStore(), time.Hour)
		s.Set(KeyUserID, "9")
		s.Set(KeyRole, "admin")
		u, ok := s.User()
		require.True(t, ok)
		assert.Equal(t, int64(9), u.ID)
		assert.Equal(t, "admin", u.Role)
	})

	t.Run("email only counts as present", func(t *testing.T) {
		s := New(NewMemoryStore(), time.Hour)
		s.Set(KeyUser, map[string]any{"email": "x@y.z"})
		_, ok := s.User()
		assert.True(t, ok)
	})

	t.Run("empty", func(t *testing.T) {
		s := New(NewMemoryStore(), time.Hour)
		s.Set(KeyUser, map[string]any{"name": "nobody"})
		_, ok := s.User()
		assert.False(t, ok)
	})
}

func TestSetUserClearsRedirectCount(t *testing.T) {
	s := New(NewMemoryStore(), time.Hour)
	s.Set(KeyRedirectCount, 3)
	s.SetUser(User{ID: 1, Email: "u@example.com"})

	assert.False(t, s.Has(KeyRedirectCount))
	assert.Equal(t, "customer", s.String(KeyRole))
	u, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "u@example.com", u.Email)
}

func TestRegenerate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "00", Values{"a": "b"}, time.Hour))

	s := New(store, time.Hour)
	s.id = "00"
	s.fresh = false
	s.values = Values{"a": "b"}

	require.NoError(t, s.Regenerate(ctx))
	assert.NotEqual(t, "00", s.ID())
	_, found, _ := store.Load(ctx, "00")
	assert.False(t, found)
	v, found, _ := store.Load(ctx, s.ID())
	assert.True(t, found)
	assert.Equal(t, "b", v["a"])
}

func TestRegenerateFailureIsReported(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), saveErr: errors.New("down")}
	s := New(store, time.Hour)
	before := s.ID()

	err := s.Regenerate(context.Background())
	require.Error(t, err)
	assert.Equal(t, before, s.ID())
}

func newManagerContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMiddlewarePersistsAndReloads(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{CookieName: "sid", TTL: time.Hour}, zerolog.Nop())

	c, rec := newManagerContext(httptest.NewRequest(http.MethodGet, "/", nil))
	h := m.Middleware()(func(c echo.Context) error {
		FromContext(c).Set("visits", 1)
		return c.String(http.StatusOK, "ok")
	})
	require.NoError(t, h(c))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, 1, store.Len())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	c2, rec2 := newManagerContext(req)
	var seen int64
	h2 := m.Middleware()(func(c echo.Context) error {
		seen, _ = FromContext(c).Int("visits")
		return c.NoContent(http.StatusNoContent)
	})
	require.NoError(t, h2(c2))
	assert.Equal(t, int64(1), seen)
	assert.Empty(t, rec2.Result().Cookies())
}

func TestMiddlewareIgnoresUnknownID(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{CookieName: "sid"}, zerolog.Nop())

	forged := strings.Repeat("ab", 32)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: forged})
	c, rec := newManagerContext(req)

	h := m.Middleware()(func(c echo.Context) error {
		FromContext(c).Set("k", "v")
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.NotEqual(t, forged, cookies[0].Value)
}

func TestMiddlewareEmptySessionSetsNoCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(), Options{}, zerolog.Nop())
	c, rec := newManagerContext(httptest.NewRequest(http.MethodGet, "/", nil))
	h := m.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, h(c))
	assert.Empty(t, rec.Result().Cookies())
}

func TestMiddlewareLoadFailureStartsFresh(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), loadErr: errors.New("redis down")}
	m := NewManager(store, Options{CookieName: "sid"}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: newID()})
	c, _ := newManagerContext(req)

	var user bool
	h := m.Middleware()(func(c echo.Context) error {
		_, user = FromContext(c).User()
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	assert.False(t, user)
}

func TestMiddlewareDestroyExpiresCookie(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{CookieName: "sid"}, zerolog.Nop())
	id := newID()
	require.NoError(t, store.Save(context.Background(), id, Values{"k": "v"}, time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: id})
	c, rec := newManagerContext(req)
	h := m.Middleware()(func(c echo.Context) error {
		require.NoError(t, FromContext(c).Destroy(c.Request().Context()))
		return c.NoContent(http.StatusNoContent)
	})
	require.NoError(t, h(c))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, 0, store.Len())
}
