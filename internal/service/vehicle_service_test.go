package service

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
)

func intPtr(v int) *int { return &v }

func newVehicles(repo *mockVehicles, up *mockUploader) *VehicleService {
	s := NewVehicleService(repo, up, zerolog.Nop())
	s.now = func() time.Time { return testNow }
	return s
}

func TestVehicleCreateWithoutImage(t *testing.T) {
	var stored model.Vehicle
	repo := &mockVehicles{CreateFunc: func(_ context.Context, v *model.Vehicle) error {
		v.ID = 41
		stored = *v
		return nil
	}}
	res, err := newVehicles(repo, &mockUploader{}).Create(context.Background(), 5,
		VehicleInput{Brand: " Toyota ", Model: "Corolla", LicensePlate: "34ab123", Year: intPtr(2020), Color: "white"}, nil)
	require.NoError(t, err)
	assert.Equal(t, CreateResult{VehicleID: 41}, res)
	assert.Equal(t, int64(5), stored.UserID)
	assert.Equal(t, "Toyota", stored.Brand)
	assert.Equal(t, "34ab123", stored.LicensePlate)
}

func TestVehicleCreateSurvivesUploadFailure(t *testing.T) {
	repo := &mockVehicles{
		CreateFunc: func(_ context.Context, v *model.Vehicle) error { v.ID = 8; return nil },
		SetImageFunc: func(context.Context, int64, int64, string) error {
			t.Fatal("no image path may be stored after a failed upload")
			return nil
		},
	}
	up := &mockUploader{UploadFunc: func(context.Context, string, *multipart.FileHeader) (StoredImage, error) {
		return StoredImage{}, errors.New("minio unreachable")
	}}
	res, err := newVehicles(repo, up).Create(context.Background(), 5,
		VehicleInput{Brand: "Fiat", Model: "Egea"}, &multipart.FileHeader{Filename: "a.jpg", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.VehicleID)
	assert.Empty(t, res.ImageURL)
}

func TestVehicleCreateWithImage(t *testing.T) {
	var setPath string
	repo := &mockVehicles{
		CreateFunc: func(_ context.Context, v *model.Vehicle) error { v.ID = 9; return nil },
		SetImageFunc: func(_ context.Context, id, userID int64, path string) error {
			assert.Equal(t, int64(9), id)
			assert.Equal(t, int64(5), userID)
			setPath = path
			return nil
		},
	}
	up := &mockUploader{UploadFunc: func(_ context.Context, kind string, _ *multipart.FileHeader) (StoredImage, error) {
		assert.Equal(t, KindVehicle, kind)
		return StoredImage{Key: "vehicles/k.jpg", URL: "https://cdn.test/vehicles/k.jpg"}, nil
	}}
	res, err := newVehicles(repo, up).Create(context.Background(), 5, VehicleInput{Brand: "Fiat", Model: "Egea"}, &multipart.FileHeader{})
	require.NoError(t, err)
	assert.Equal(t, "vehicles/k.jpg", setPath)
	assert.Equal(t, "https://cdn.test/vehicles/k.jpg", res.ImageURL)
}

func TestVehicleValidation(t *testing.T) {
	svc := newVehicles(&mockVehicles{}, &mockUploader{})
	_, err := svc.Create(context.Background(), 1, VehicleInput{Year: intPtr(1700)}, nil)
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.Contains(t, fields, "year")
	assert.NotContains(t, fields, "brand")
	assert.NotContains(t, fields, "model")
}

func TestVehicleUpdate(t *testing.T) {
	t.Run("foreign or missing id", func(t *testing.T) {
		repo := &mockVehicles{UpdateFunc: func(context.Context, model.Vehicle) error { return repository.ErrNotFound }}
		up := &mockUploader{UploadFunc: func(context.Context, string, *multipart.FileHeader) (StoredImage, error) {
			t.Fatal("no upload for a vehicle the caller does not own")
			return StoredImage{}, nil
		}}
		res, err := newVehicles(repo, up).Update(context.Background(), 2, 99, VehicleInput{Brand: "a", Model: "b"}, &multipart.FileHeader{})
		require.NoError(t, err)
		assert.False(t, res.Updated)
	})

	t.Run("fields written when upload fails", func(t *testing.T) {
		var written model.Vehicle
		repo := &mockVehicles{UpdateFunc: func(_ context.Context, v model.Vehicle) error { written = v; return nil }}
		up := &mockUploader{UploadFunc: func(context.Context, string, *multipart.FileHeader) (StoredImage, error) {
			return StoredImage{}, ErrNotAnImage
		}}
		res, err := newVehicles(repo, up).Update(context.Background(), 2, 3, VehicleInput{Brand: "Opel", Model: "Astra", Color: "red"}, &multipart.FileHeader{})
		require.NoError(t, err)
		assert.Equal(t, UpdateResult{Updated: true}, res)
		assert.Equal(t, "red", written.Color)
		assert.Equal(t, int64(2), written.UserID)
	})

	t.Run("image replaced", func(t *testing.T) {
		repo := &mockVehicles{
			UpdateFunc:   func(context.Context, model.Vehicle) error { return nil },
			SetImageFunc: func(context.Context, int64, int64, string) error { return nil },
		}
		up := &mockUploader{UploadFunc: func(context.Context, string, *multipart.FileHeader) (StoredImage, error) {
			return StoredImage{Key: "vehicles/n.png", URL: "https://cdn.test/vehicles/n.png"}, nil
		}}
		res, err := newVehicles(repo, up).Update(context.Background(), 2, 3, VehicleInput{Brand: "Opel", Model: "Astra"}, &multipart.FileHeader{})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.test/vehicles/n.png", res.ImageURL)
	})
}

func TestVehicleListResolvesImages(t *testing.T) {
	repo := &mockVehicles{ListByUserFunc: func(_ context.Context, userID int64) ([]model.Vehicle, error) {
		return []model.Vehicle{{ID: 2, UserID: userID, ImagePath: "vehicles/a.jpg"}, {ID: 1, UserID: userID}}, nil
	}}
	vs, err := newVehicles(repo, &mockUploader{}).List(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, "https://cdn.test/vehicles/a.jpg", vs[0].ImageURL)
	assert.Equal(t, DefaultVehicleImage, vs[1].ImageURL)
}

func TestVehicleCheckImages(t *testing.T) {
	repo := &mockVehicles{ListByUserFunc: func(context.Context, int64) ([]model.Vehicle, error) {
		return []model.Vehicle{{ID: 3, ImagePath: "vehicles/a.jpg"}, {ID: 2}, {ID: 1, ImagePath: "vehicles/b.jpg"}}, nil
	}}
	up := &mockUploader{CheckFunc: func(_ context.Context, keys []string) []ImageCheck {
		assert.Equal(t, []string{"vehicles/a.jpg", "vehicles/b.jpg"}, keys)
		return []ImageCheck{{Key: keys[0], Exists: true}, {Key: keys[1]}}
	}}
	rep, err := newVehicles(repo, up).CheckImages(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rep, 2)
	assert.Equal(t, int64(3), rep[0].VehicleID)
	assert.True(t, rep[0].Exists)
	assert.Equal(t, int64(1), rep[1].VehicleID)
	assert.False(t, rep[1].Exists)
}
