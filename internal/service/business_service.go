package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
)

// Default opening window for days without stored or posted hours.
const (
	DefaultOpen  = "09:00"
	DefaultClose = "18:00"
)

// ProfileFields are the scalar profile fields accepted from forms.
var ProfileFields = []string{
	"business_name", "address", "postal_code", "city", "district",
	"phone", "mobile_phone", "email", "license_number", "tax_number",
}

// BusinessStore is the profile persistence used by BusinessService.
type BusinessStore interface {
	GetByUser(ctx context.Context, userID int64) (model.BusinessProfile, error)
	Update(ctx context.Context, userID int64, fn func(current model.BusinessProfile, found bool) (model.BusinessProfile, error)) (model.BusinessProfile, error)
}

// BusinessPatch is a partial profile update.  Only keys present in the
// request are set; absent keys keep their stored value.
type BusinessPatch struct {
	Fields      map[string]string // subset of ProfileFields
	Hours       map[string]string // <day>_start / <day>_end
	SocialMedia map[string]string // nil when not posted
	Services    []model.Offer     // nil when not posted
}

// MergeProfile applies p over current.  It is pure so the merge rules can
// run inside the repository transaction.
func MergeProfile(current model.BusinessProfile, p BusinessPatch) (model.BusinessProfile, error) {
	next := current
	for k, v := range p.Fields {
		v = strings.TrimSpace(v)
		switch k {
		case "business_name":
			next.BusinessName = v
		case "address":
			next.Address = v
		case "postal_code":
			next.PostalCode = v
		case "city":
			next.City = v
		case "district":
			next.District = v
		case "phone":
			next.Phone = v
		case "mobile_phone":
			next.MobilePhone = v
		case "email":
			next.Email = NormalizeEmail(v)
		case "license_number":
			next.LicenseNumber = v
		case "tax_number":
			next.TaxNumber = v
		}
	}

	fields := FieldErrors{}
	if len([]rune(next.BusinessName)) < 3 {
		fields["business_name"] = "Business name must be at least 3 characters"
	}
	if next.Email != "" && !ValidEmail(next.Email) {
		fields["email"] = "Invalid email address"
	}
	if len(fields) > 0 {
		return model.BusinessProfile{}, fields
	}

	if len(p.Hours) > 0 {
		next.WorkingHours = MergeHours(current.WorkingHours, p.Hours)
	}
	if p.SocialMedia != nil {
		next.SocialMedia = MergeSocial(current.SocialMedia, p.SocialMedia)
	}
	if p.Services != nil {
		next.Services = MergeServices(current.Services, p.Services)
	}
	return next, nil
}

// MergeHours builds the full week: posted values first, then stored ones,
// then the defaults.
func MergeHours(existing map[string]model.DayHours, posted map[string]string) map[string]model.DayHours {
	out := make(map[string]model.DayHours, len(model.Weekdays))
	for _, day := range model.Weekdays {
		h := model.DayHours{Start: DefaultOpen, End: DefaultClose}
		if e, ok := existing[day]; ok {
			if e.Start != "" {
				h.Start = e.Start
			}
			if e.End != "" {
				h.End = e.End
			}
		}
		if v, ok := posted[day+"_start"]; ok {
			h.Start = strings.TrimSpace(v)
		}
		if v, ok := posted[day+"_end"]; ok {
			h.End = strings.TrimSpace(v)
		}
		out[day] = h
	}
	return out
}

// MergeSocial overlays posted keys on the stored ones.
func MergeSocial(existing, posted map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+len(posted))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range posted {
		out[k] = v
	}
	return out
}

// MergeServices unions stored and posted offers by trimmed lower-cased
// name.  The first occurrence wins and a missing price is back-filled from
// a later duplicate.
func MergeServices(existing, posted []model.Offer) []model.Offer {
	out := make([]model.Offer, 0, len(existing)+len(posted))
	index := map[string]int{}
	for _, o := range append(append([]model.Offer{}, existing...), posted...) {
		key := strings.ToLower(strings.TrimSpace(o.Name))
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			if out[i].Price == nil && o.Price != nil {
				out[i].Price = o.Price
			}
			continue
		}
		index[key] = len(out)
		out = append(out, o)
	}
	return out
}

// BusinessResult is returned by Save.  LogoUpdated is false when no logo
// was sent or its upload failed.
type BusinessResult struct {
	Profile     model.BusinessProfile
	LogoUpdated bool
}

type BusinessService struct {
	repo   BusinessStore
	images ImageUploader
	log    zerolog.Logger
}

func NewBusinessService(repo BusinessStore, images ImageUploader, log zerolog.Logger) *BusinessService {
	return &BusinessService{repo: repo, images: images, log: log}
}

// Get returns the profile of userID; ok is false when none exists yet.
func (s *BusinessService) Get(ctx context.Context, userID int64) (model.BusinessProfile, bool, error) {
	p, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.BusinessProfile{}, false, nil
	}
	if err != nil {
		return model.BusinessProfile{}, false, err
	}
	p.LogoURL = s.images.PublicURL(p.LogoPath, "")
	return p, true, nil
}

// Save merges patch into the stored profile in one transaction.  An
// invalid logo (size, type) is a validation error; a storage failure only
// leaves the old logo in place.
func (s *BusinessService) Save(ctx context.Context, userID int64, patch BusinessPatch, logo *multipart.FileHeader) (BusinessResult, error) {
	var logoKey string
	if logo != nil {
		stored, err := s.images.Upload(ctx, KindLogo, logo)
		switch {
		case errors.Is(err, ErrFileTooLarge):
			return BusinessResult{}, FieldErrors{"logo": "File too large"}
		case errors.Is(err, ErrNotAnImage), errors.Is(err, ErrTypeMismatch), errors.Is(err, ErrEmptyFile):
			return BusinessResult{}, FieldErrors{"logo": "Invalid file type"}
		case err != nil:
			s.log.Warn().Err(err).Int64("user_id", userID).Msg("logo upload failed")
		default:
			logoKey = stored.Key
		}
	}

	saved, err := s.repo.Update(ctx, userID, func(current model.BusinessProfile, _ bool) (model.BusinessProfile, error) {
		next, err := MergeProfile(current, patch)
		if err != nil {
			return model.BusinessProfile{}, err
		}
		if logoKey != "" {
			next.LogoPath = logoKey
		}
		return next, nil
	})
	if err != nil {
		return BusinessResult{}, err
	}
	saved.LogoURL = s.images.PublicURL(saved.LogoPath, "")
	return BusinessResult{Profile: saved, LogoUpdated: logoKey != ""}, nil
}
