package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-dashboard/internal/middleware"
	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/security"
	"github.com/iliyamo/carwash-dashboard/internal/service"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

var errNotImplemented = errors.New("not implemented")

// vehicleStore is an in-memory service.VehicleStore scoped by user like
// the MySQL repository.
type vehicleStore struct {
	rows    map[int64]model.Vehicle
	nextID  int64
	writes  int
	SetFunc func(id, userID int64, path string) error
}

func newVehicleStore() *vehicleStore {
	return &vehicleStore{rows: map[int64]model.Vehicle{}, nextID: 1}
}

func (s *vehicleStore) ListByUser(_ context.Context, userID int64) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for id := s.nextID - 1; id > 0; id-- {
		if v, ok := s.rows[id]; ok && v.UserID == userID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *vehicleStore) GetOwned(_ context.Context, id, userID int64) (model.Vehicle, error) {
	v, ok := s.rows[id]
	if !ok || v.UserID != userID {
		return model.Vehicle{}, repository.ErrNotFound
	}
	return v, nil
}

func (s *vehicleStore) Create(_ context.Context, v *model.Vehicle) error {
	s.writes++
	v.ID = s.nextID
	s.nextID++
	s.rows[v.ID] = *v
	return nil
}

func (s *vehicleStore) Update(_ context.Context, v model.Vehicle) error {
	cur, ok := s.rows[v.ID]
	if !ok || cur.UserID != v.UserID {
		return repository.ErrNotFound
	}
	s.writes++
	v.ImagePath = cur.ImagePath
	s.rows[v.ID] = v
	return nil
}

func (s *vehicleStore) SetImage(_ context.Context, id, userID int64, path string) error {
	if s.SetFunc != nil {
		return s.SetFunc(id, userID, path)
	}
	v, ok := s.rows[id]
	if !ok || v.UserID != userID {
		return repository.ErrNotFound
	}
	v.ImagePath = path
	s.rows[id] = v
	return nil
}

func (s *vehicleStore) Delete(_ context.Context, id, userID int64) (bool, error) {
	v, ok := s.rows[id]
	if !ok || v.UserID != userID {
		return false, nil
	}
	s.writes++
	delete(s.rows, id)
	return true, nil
}

type mockUploader struct {
	UploadFunc func(ctx context.Context, kind string, fh *multipart.FileHeader) (service.StoredImage, error)
}

func (m *mockUploader) Upload(ctx context.Context, kind string, fh *multipart.FileHeader) (service.StoredImage, error) {
	if m.UploadFunc == nil {
		return service.StoredImage{}, errNotImplemented
	}
	return m.UploadFunc(ctx, kind, fh)
}

func (m *mockUploader) PublicURL(stored, fallback string) string {
	if stored == "" {
		return fallback
	}
	return "https://cdn.example.com/" + stored
}

func (m *mockUploader) Check(_ context.Context, keys []string) []service.ImageCheck {
	out := make([]service.ImageCheck, 0, len(keys))
	for _, k := range keys {
		out = append(out, service.ImageCheck{Key: k, Exists: strings.HasPrefix(k, "vehicles/")})
	}
	return out
}

type mockAuth struct {
	LoginFunc    func(ctx context.Context, sess *session.Session, email, password string) (session.User, error)
	RegisterFunc func(ctx context.Context, in service.RegisterInput) (int64, error)
	RememberFunc func(ctx context.Context, userID int64) (security.RememberToken, error)
	LogoutFunc   func(ctx context.Context, sess *session.Session) error
}

func (m *mockAuth) Login(ctx context.Context, sess *session.Session, email, password string) (session.User, error) {
	if m.LoginFunc == nil {
		return session.User{}, errNotImplemented
	}
	return m.LoginFunc(ctx, sess, email, password)
}

func (m *mockAuth) Register(ctx context.Context, in service.RegisterInput) (int64, error) {
	if m.RegisterFunc == nil {
		return 0, errNotImplemented
	}
	return m.RegisterFunc(ctx, in)
}

func (m *mockAuth) IssueRememberToken(ctx context.Context, userID int64) (security.RememberToken, error) {
	if m.RememberFunc == nil {
		return security.RememberToken{}, errNotImplemented
	}
	return m.RememberFunc(ctx, userID)
}

func (m *mockAuth) Logout(ctx context.Context, sess *session.Session) error {
	if m.LogoutFunc == nil {
		return sess.Destroy(ctx)
	}
	return m.LogoutFunc(ctx, sess)
}

type mockBookings struct {
	ListFunc   func(ctx context.Context, userID int64) ([]model.Booking, error)
	CreateFunc func(ctx context.Context, userID int64, in service.BookingInput) (model.Booking, error)
	CancelFunc func(ctx context.Context, userID, id int64) (bool, error)
}

func (m *mockBookings) List(ctx context.Context, userID int64) ([]model.Booking, error) {
	if m.ListFunc == nil {
		return nil, errNotImplemented
	}
	return m.ListFunc(ctx, userID)
}

func (m *mockBookings) Create(ctx context.Context, userID int64, in service.BookingInput) (model.Booking, error) {
	if m.CreateFunc == nil {
		return model.Booking{}, errNotImplemented
	}
	return m.CreateFunc(ctx, userID, in)
}

func (m *mockBookings) Cancel(ctx context.Context, userID, id int64) (bool, error) {
	if m.CancelFunc == nil {
		return false, errNotImplemented
	}
	return m.CancelFunc(ctx, userID, id)
}

type mockDiag struct {
	tables  []repository.TableReport
	timings []repository.QueryTiming
}

func (m *mockDiag) SchemaReport(context.Context) ([]repository.TableReport, error) {
	return m.tables, nil
}

func (m *mockDiag) Timings(context.Context) []repository.QueryTiming { return m.timings }

// harness is an Echo instance with the session, guard, CSRF and gate
// middleware wired as in production.
type harness struct {
	e     *echo.Echo
	store *session.MemoryStore
	api   *echo.Group
}

const (
	testSessionID = "abababababababababababababababababababababababababababababababab"
	testCSRF      = "csrf-test-token"
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = response.ErrorHandler(true, zerolog.Nop())
	store := session.NewMemoryStore()
	e.Use(session.NewManager(store, session.Options{}, zerolog.Nop()).Middleware())

	gate := middleware.NewGate(middleware.GateOptions{}, zerolog.Nop())
	api := e.Group("/v1",
		response.Guard(response.GuardOptions{Dev: true, Log: zerolog.Nop()}),
		middleware.JSONForm(),
		middleware.CSRF(middleware.CSRFOptions{Log: zerolog.Nop()}),
		gate.RequireAuthenticated(),
	)
	return &harness{e: e, store: store, api: api}
}

// login seeds a session for u and returns its cookie.
func (h *harness) login(t *testing.T, u session.User) *http.Cookie {
	t.Helper()
	s := session.New(h.store, time.Hour)
	s.SetUser(u)
	s.Set(session.KeyCSRFToken, testCSRF)
	require.NoError(t, h.store.Save(context.Background(), testSessionID, s.Snapshot(), time.Hour))
	return &http.Cookie{Name: "CARWASHSESSID", Value: testSessionID}
}

func (h *harness) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    map[string]any    `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// multipartRequest builds a multipart POST with fields and, when file is
// non-nil, an upload named fileField.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile(fileField, "car.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

// profileStore is an in-memory service.ProfileStore.
type profileStore struct {
	rows map[int64]model.Profile
}

func (s *profileStore) GetProfile(_ context.Context, id int64) (model.Profile, error) {
	p, ok := s.rows[id]
	if !ok {
		return model.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *profileStore) UpdateProfile(_ context.Context, p model.Profile) error {
	for id, other := range s.rows {
		if id != p.ID && other.Email == p.Email {
			return repository.ErrEmailExists
		}
	}
	s.rows[p.ID] = p
	return nil
}
