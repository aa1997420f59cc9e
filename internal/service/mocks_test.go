package service

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"time"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

var errNotImplemented = errors.New("not implemented")

type mockUsers struct {
	CreateFunc         func(ctx context.Context, name, email, hash, role string) (int64, error)
	GetByEmailFunc     func(ctx context.Context, email string) (model.User, error)
	GetByIDFunc        func(ctx context.Context, id int64) (model.User, error)
	UpdatePasswordFunc func(ctx context.Context, id int64, hash string) error
	TouchLastLoginFunc func(ctx context.Context, id int64, at time.Time) error
}

func (m *mockUsers) Create(ctx context.Context, name, email, hash, role string) (int64, error) {
	if m.CreateFunc == nil {
		return 0, errNotImplemented
	}
	return m.CreateFunc(ctx, name, email, hash, role)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	if m.GetByEmailFunc == nil {
		return model.User{}, errNotImplemented
	}
	return m.GetByEmailFunc(ctx, email)
}

func (m *mockUsers) GetByID(ctx context.Context, id int64) (model.User, error) {
	if m.GetByIDFunc == nil {
		return model.User{}, errNotImplemented
	}
	return m.GetByIDFunc(ctx, id)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, id int64, hash string) error {
	if m.UpdatePasswordFunc == nil {
		return nil
	}
	return m.UpdatePasswordFunc(ctx, id, hash)
}

func (m *mockUsers) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	if m.TouchLastLoginFunc == nil {
		return nil
	}
	return m.TouchLastLoginFunc(ctx, id, at)
}

type mockTokens struct {
	StoreRememberFunc  func(ctx context.Context, userID int64, hash string, exp time.Time) error
	UserByRememberFunc func(ctx context.Context, hash string, now time.Time) (model.User, error)
	ClearRememberFunc  func(ctx context.Context, userID int64) error
}

func (m *mockTokens) StoreRemember(ctx context.Context, userID int64, hash string, exp time.Time) error {
	if m.StoreRememberFunc == nil {
		return errNotImplemented
	}
	return m.StoreRememberFunc(ctx, userID, hash, exp)
}

func (m *mockTokens) UserByRemember(ctx context.Context, hash string, now time.Time) (model.User, error) {
	if m.UserByRememberFunc == nil {
		return model.User{}, errNotImplemented
	}
	return m.UserByRememberFunc(ctx, hash, now)
}

func (m *mockTokens) ClearRemember(ctx context.Context, userID int64) error {
	if m.ClearRememberFunc == nil {
		return nil
	}
	return m.ClearRememberFunc(ctx, userID)
}

type mockObjects struct {
	PutFunc    func(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	ExistsFunc func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.PutFunc == nil {
		return errNotImplemented
	}
	return m.PutFunc(ctx, key, r, size, contentType)
}

func (m *mockObjects) Exists(ctx context.Context, key string) (bool, error) {
	if m.ExistsFunc == nil {
		return false, errNotImplemented
	}
	return m.ExistsFunc(ctx, key)
}

func (m *mockObjects) PublicURL(key string) string { return "https://cdn.test/" + key }

type mockUploader struct {
	UploadFunc func(ctx context.Context, kind string, fh *multipart.FileHeader) (StoredImage, error)
	CheckFunc  func(ctx context.Context, keys []string) []ImageCheck
}

func (m *mockUploader) Upload(ctx context.Context, kind string, fh *multipart.FileHeader) (StoredImage, error) {
	if m.UploadFunc == nil {
		return StoredImage{}, errNotImplemented
	}
	return m.UploadFunc(ctx, kind, fh)
}

func (m *mockUploader) PublicURL(stored, fallback string) string {
	if stored == "" {
		return fallback
	}
	return "https://cdn.test/" + stored
}

func (m *mockUploader) Check(ctx context.Context, keys []string) []ImageCheck {
	if m.CheckFunc == nil {
		return nil
	}
	return m.CheckFunc(ctx, keys)
}

type mockVehicles struct {
	ListByUserFunc func(ctx context.Context, userID int64) ([]model.Vehicle, error)
	GetOwnedFunc   func(ctx context.Context, id, userID int64) (model.Vehicle, error)
	CreateFunc     func(ctx context.Context, v *model.Vehicle) error
	UpdateFunc     func(ctx context.Context, v model.Vehicle) error
	SetImageFunc   func(ctx context.Context, id, userID int64, path string) error
	DeleteFunc     func(ctx context.Context, id, userID int64) (bool, error)
}

func (m *mockVehicles) ListByUser(ctx context.Context, userID int64) ([]model.Vehicle, error) {
	if m.ListByUserFunc == nil {
		return nil, errNotImplemented
	}
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockVehicles) GetOwned(ctx context.Context, id, userID int64) (model.Vehicle, error) {
	if m.GetOwnedFunc == nil {
		return model.Vehicle{}, errNotImplemented
	}
	return m.GetOwnedFunc(ctx, id, userID)
}

func (m *mockVehicles) Create(ctx context.Context, v *model.Vehicle) error {
	if m.CreateFunc == nil {
		return errNotImplemented
	}
	return m.CreateFunc(ctx, v)
}

func (m *mockVehicles) Update(ctx context.Context, v model.Vehicle) error {
	if m.UpdateFunc == nil {
		return errNotImplemented
	}
	return m.UpdateFunc(ctx, v)
}

func (m *mockVehicles) SetImage(ctx context.Context, id, userID int64, path string) error {
	if m.SetImageFunc == nil {
		return errNotImplemented
	}
	return m.SetImageFunc(ctx, id, userID, path)
}

func (m *mockVehicles) Delete(ctx context.Context, id, userID int64) (bool, error) {
	if m.DeleteFunc == nil {
		return false, errNotImplemented
	}
	return m.DeleteFunc(ctx, id, userID)
}

type mockBookings struct {
	CreateFunc      func(ctx context.Context, b *model.Booking) error
	ListByUserFunc  func(ctx context.Context, userID int64) ([]model.Booking, error)
	GetOwnedFunc    func(ctx context.Context, id, userID int64) (model.Booking, error)
	CancelOwnedFunc func(ctx context.Context, id, userID int64) error
}

func (m *mockBookings) Create(ctx context.Context, b *model.Booking) error {
	if m.CreateFunc == nil {
		return errNotImplemented
	}
	return m.CreateFunc(ctx, b)
}

func (m *mockBookings) ListByUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	if m.ListByUserFunc == nil {
		return nil, errNotImplemented
	}
	return m.ListByUserFunc(ctx, userID)
}

func (m *mockBookings) GetOwned(ctx context.Context, id, userID int64) (model.Booking, error) {
	if m.GetOwnedFunc == nil {
		return model.Booking{}, errNotImplemented
	}
	return m.GetOwnedFunc(ctx, id, userID)
}

func (m *mockBookings) CancelOwned(ctx context.Context, id, userID int64) error {
	if m.CancelOwnedFunc == nil {
		return errNotImplemented
	}
	return m.CancelOwnedFunc(ctx, id, userID)
}

type mockCatalog struct {
	ServiceOfFunc func(ctx context.Context, carwashID, serviceID int64) (model.Service, error)
}

func (m *mockCatalog) ServiceOf(ctx context.Context, carwashID, serviceID int64) (model.Service, error) {
	if m.ServiceOfFunc == nil {
		return model.Service{}, errNotImplemented
	}
	return m.ServiceOfFunc(ctx, carwashID, serviceID)
}

type recordingPublisher struct {
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return p.err
}

type mockProfiles struct {
	GetByUserFunc func(ctx context.Context, userID int64) (model.BusinessProfile, error)
	current       model.BusinessProfile
	found         bool
	saved         *model.BusinessProfile
}

func (m *mockProfiles) GetByUser(ctx context.Context, userID int64) (model.BusinessProfile, error) {
	if m.GetByUserFunc == nil {
		return model.BusinessProfile{}, errNotImplemented
	}
	return m.GetByUserFunc(ctx, userID)
}

// Update mimics the transactional repository: nothing is saved when fn
// fails.
func (m *mockProfiles) Update(_ context.Context, userID int64, fn func(model.BusinessProfile, bool) (model.BusinessProfile, error)) (model.BusinessProfile, error) {
	next, err := fn(m.current, m.found)
	if err != nil {
		return model.BusinessProfile{}, err
	}
	next.UserID = userID
	m.saved = &next
	return next, nil
}

type mockUserProfiles struct {
	GetProfileFunc    func(ctx context.Context, id int64) (model.Profile, error)
	UpdateProfileFunc func(ctx context.Context, p model.Profile) error
}

func (m *mockUserProfiles) GetProfile(ctx context.Context, id int64) (model.Profile, error) {
	if m.GetProfileFunc == nil {
		return model.Profile{}, errNotImplemented
	}
	return m.GetProfileFunc(ctx, id)
}

func (m *mockUserProfiles) UpdateProfile(ctx context.Context, p model.Profile) error {
	if m.UpdateProfileFunc == nil {
		return errNotImplemented
	}
	return m.UpdateProfileFunc(ctx, p)
}
