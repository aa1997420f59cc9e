package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// MaxProfileImageBytes caps avatar uploads regardless of the global limit.
const MaxProfileImageBytes = 5 << 20

// DefaultAvatar is shown for accounts without a profile image.
const DefaultAvatar = "/assets/images/default-avatar.svg"

// ProfileStore is the account persistence used by ProfileService.
type ProfileStore interface {
	GetProfile(ctx context.Context, id int64) (model.Profile, error)
	UpdateProfile(ctx context.Context, p model.Profile) error
}

// ProfileInput carries the editable account fields.  Empty optional
// fields keep their stored value.
type ProfileInput struct {
	Name     string
	Email    string
	Phone    string
	Username string
}

func (in ProfileInput) normalize() ProfileInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Username = strings.TrimSpace(in.Username)
	return in
}

func (in ProfileInput) validate() error {
	fields := FieldErrors{}
	if len([]rune(in.Name)) < 2 {
		fields["name"] = "Name must be at least 2 characters"
	}
	if in.Email != "" && !ValidEmail(in.Email) {
		fields["email"] = "Invalid email address"
	}
	if len(in.Phone) > 32 {
		fields["phone"] = "Phone is too long"
	}
	if len(in.Username) > 64 {
		fields["username"] = "Username is too long"
	}
	if len(fields) > 0 {
		return fields
	}
	return nil
}

// ProfileService reads and updates the caller's own account.
type ProfileService struct {
	repo   ProfileStore
	images ImageUploader
	log    zerolog.Logger
}

func NewProfileService(repo ProfileStore, images ImageUploader, log zerolog.Logger) *ProfileService {
	return &ProfileService{repo: repo, images: images, log: log}
}

// Get returns the profile of userID with its avatar URL resolved.
func (s *ProfileService) Get(ctx context.Context, userID int64) (model.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	p.ImageURL = s.images.PublicURL(p.ImagePath, DefaultAvatar)
	return p, nil
}

// Update applies in and, when sent, a new avatar.  Unlike vehicle photos a
// rejected avatar fails the whole update.
func (s *ProfileService) Update(ctx context.Context, userID int64, in ProfileInput, image *multipart.FileHeader) (model.Profile, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return model.Profile{}, err
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	p.Name = in.Name
	if in.Email != "" {
		p.Email = in.Email
	}
	if in.Phone != "" {
		p.Phone = in.Phone
	}
	if in.Username != "" {
		p.Username = in.Username
	}

	if image != nil {
		key, err := s.uploadAvatar(ctx, userID, image)
		if err != nil {
			return model.Profile{}, err
		}
		p.ImagePath = key
	}

	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return model.Profile{}, err
	}
	p.ImageURL = s.images.PublicURL(p.ImagePath, DefaultAvatar)
	return p, nil
}

func (s *ProfileService) uploadAvatar(ctx context.Context, userID int64, image *multipart.FileHeader) (string, error) {
	if image.Size > MaxProfileImageBytes {
		return "", FieldErrors{"profile_image": "Image must be 5 MB or smaller"}
	}
	stored, err := s.images.Upload(ctx, KindProfile, image)
	switch {
	case err == nil:
		return stored.Key, nil
	case errors.Is(err, ErrFileTooLarge):
		return "", FieldErrors{"profile_image": "Image must be 5 MB or smaller"}
	case errors.Is(err, ErrNotAnImage), errors.Is(err, ErrTypeMismatch), errors.Is(err, ErrEmptyFile):
		return "", FieldErrors{"profile_image": "Upload a JPG, PNG, WEBP or GIF image"}
	}
	s.log.Error().Err(err).Int64("user_id", userID).Str("filename", image.Filename).Msg("profile image upload failed")
	return "", err
}
