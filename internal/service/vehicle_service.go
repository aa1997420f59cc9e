package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
)

// VehicleStore is the persistence used by VehicleService.  Every method
// is scoped by the owning user.
type VehicleStore interface {
	ListByUser(ctx context.Context, userID int64) ([]model.Vehicle, error)
	GetOwned(ctx context.Context, id, userID int64) (model.Vehicle, error)
	Create(ctx context.Context, v *model.Vehicle) error
	Update(ctx context.Context, v model.Vehicle) error
	SetImage(ctx context.Context, id, userID int64, path string) error
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// ImageUploader stores images and resolves their public URLs.
type ImageUploader interface {
	Upload(ctx context.Context, kind string, fh *multipart.FileHeader) (StoredImage, error)
	PublicURL(stored, fallback string) string
	Check(ctx context.Context, keys []string) []ImageCheck
}

// VehicleInput carries the textual vehicle fields.
type VehicleInput struct {
	Brand        string
	Model        string
	LicensePlate string
	Year         *int
	Color        string
}

func (in VehicleInput) normalize() VehicleInput {
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)
	in.LicensePlate = strings.TrimSpace(in.LicensePlate)
	in.Color = strings.TrimSpace(in.Color)
	if in.Year != nil && *in.Year == 0 {
		in.Year = nil
	}
	return in
}

func (in VehicleInput) validate(now time.Time) error {
	fields := FieldErrors{}
	if len(in.LicensePlate) > 20 {
		fields["license_plate"] = "License plate is too long"
	}
	if in.Year != nil && (*in.Year < 1900 || *in.Year > now.Year()+1) {
		fields["year"] = "Year is out of range"
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// CreateResult is returned by Create.  ImageURL is empty when no image was
// sent or the upload failed.
type CreateResult struct {
	VehicleID int64
	ImageURL  string
}

// UpdateResult is returned by Update.  Updated is false when no owned
// vehicle matched; ImageURL is set only when the image changed.
type UpdateResult struct {
	Updated  bool
	ImageURL string
}

// VehicleService implements the customer vehicle operations.
type VehicleService struct {
	repo   VehicleStore
	images ImageUploader
	log    zerolog.Logger
	now    func() time.Time
}

func NewVehicleService(repo VehicleStore, images ImageUploader, log zerolog.Logger) *VehicleService {
	return &VehicleService{repo: repo, images: images, log: log, now: time.Now}
}

// List returns the user's vehicles newest first with resolved image URLs.
func (s *VehicleService) List(ctx context.Context, userID int64) ([]model.Vehicle, error) {
	vs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i].ImageURL = s.images.PublicURL(vs[i].ImagePath, DefaultVehicleImage)
	}
	return vs, nil
}

// Create inserts the vehicle, then attaches the image when one was sent.
// A failed upload is logged and leaves the vehicle without image.
func (s *VehicleService) Create(ctx context.Context, userID int64, in VehicleInput, image *multipart.FileHeader) (CreateResult, error) {
	in = in.normalize()
	if err := in.validate(s.now()); err != nil {
		return CreateResult{}, err
	}
	v := model.Vehicle{UserID: userID, Brand: in.Brand, Model: in.Model, LicensePlate: in.LicensePlate, Year: in.Year, Color: in.Color}
	if err := s.repo.Create(ctx, &v); err != nil {
		return CreateResult{}, err
	}
	res := CreateResult{VehicleID: v.ID}
	if image == nil {
		return res, nil
	}
	stored, ok := s.upload(ctx, userID, v.ID, image)
	if !ok {
		return res, nil
	}
	if err := s.repo.SetImage(ctx, v.ID, userID, stored.Key); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Int64("vehicle_id", v.ID).Msg("store vehicle image path failed")
		return res, nil
	}
	res.ImageURL = stored.URL
	return res, nil
}

// Update writes the textual fields of an owned vehicle and replaces its
// image when a new one uploads successfully.
func (s *VehicleService) Update(ctx context.Context, userID, id int64, in VehicleInput, image *multipart.FileHeader) (UpdateResult, error) {
	in = in.normalize()
	if err := in.validate(s.now()); err != nil {
		return UpdateResult{}, err
	}
	v := model.Vehicle{ID: id, UserID: userID, Brand: in.Brand, Model: in.Model, LicensePlate: in.LicensePlate, Year: in.Year, Color: in.Color}
	err := s.repo.Update(ctx, v)
	if errors.Is(err, repository.ErrNotFound) {
		return UpdateResult{Updated: false}, nil
	}
	if err != nil {
		return UpdateResult{}, err
	}
	res := UpdateResult{Updated: true}
	if image == nil {
		return res, nil
	}
	stored, ok := s.upload(ctx, userID, id, image)
	if !ok {
		return res, nil
	}
	if err := s.repo.SetImage(ctx, id, userID, stored.Key); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Int64("vehicle_id", id).Msg("store vehicle image path failed")
		return res, nil
	}
	res.ImageURL = stored.URL
	return res, nil
}

func (s *VehicleService) upload(ctx context.Context, userID, vehicleID int64, image *multipart.FileHeader) (StoredImage, bool) {
	stored, err := s.images.Upload(ctx, KindVehicle, image)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Int64("vehicle_id", vehicleID).
			Str("filename", image.Filename).Msg("vehicle image upload failed")
		return StoredImage{}, false
	}
	return stored, true
}

// Delete removes an owned vehicle.  Missing and foreign ids both report
// false without error.
func (s *VehicleService) Delete(ctx context.Context, userID, id int64) (bool, error) {
	return s.repo.Delete(ctx, id, userID)
}

// VehicleImageReport is one row of CheckImages.
type VehicleImageReport struct {
	VehicleID int64 `json:"vehicle_id"`
	ImageCheck
}

// CheckImages verifies that the stored photos of the user's vehicles are
// still present in object storage.
func (s *VehicleService) CheckImages(ctx context.Context, userID int64) ([]VehicleImageReport, error) {
	vs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var (
		keys []string
		ids  []int64
	)
	for _, v := range vs {
		if v.ImagePath == "" {
			continue
		}
		keys = append(keys, v.ImagePath)
		ids = append(ids, v.ID)
	}
	checks := s.images.Check(ctx, keys)
	out := make([]VehicleImageReport, 0, len(checks))
	for i, c := range checks {
		out = append(out, VehicleImageReport{VehicleID: ids[i], ImageCheck: c})
	}
	return out, nil
}
