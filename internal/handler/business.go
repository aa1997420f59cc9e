package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/carwash-dashboard/internal/apperr"
	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/response"
	"github.com/iliyamo/carwash-dashboard/internal/service"
)

// Profiles is the business profile service used by BusinessHandler.
type Profiles interface {
	Get(ctx context.Context, userID int64) (model.BusinessProfile, bool, error)
	Save(ctx context.Context, userID int64, patch service.BusinessPatch, logo *multipart.FileHeader) (service.BusinessResult, error)
}

type BusinessHandler struct {
	svc Profiles
}

func NewBusinessHandler(svc Profiles) *BusinessHandler {
	return &BusinessHandler{svc: svc}
}

// Get handles GET /v1/business.
func (h *BusinessHandler) Get(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, ok, err := h.svc.Get(ctx, u.ID)
	if err != nil {
		return serviceError(err)
	}
	if !ok {
		return response.Success(c, http.StatusOK, "No business profile yet", echo.Map{"profile": nil})
	}
	return response.Success(c, http.StatusOK, "Business profile", echo.Map{"profile": p})
}

// Save handles POST /v1/business.  Only posted fields change.
func (h *BusinessHandler) Save(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	patch, err := businessPatch(c)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	res, err := h.svc.Save(ctx, u.ID, patch, formFile(c, "logo"))
	if err != nil {
		return serviceError(err)
	}
	return response.Success(c, http.StatusOK, "Business profile saved", echo.Map{
		"profile":      res.Profile,
		"logo_updated": res.LogoUpdated,
	})
}

func businessPatch(c echo.Context) (service.BusinessPatch, error) {
	var patch service.BusinessPatch
	patch.Fields = map[string]string{}
	for _, f := range service.ProfileFields {
		if posted(c, f) {
			patch.Fields[f] = strings.TrimSpace(c.FormValue(f))
		}
	}

	patch.Hours = map[string]string{}
	for _, day := range model.Weekdays {
		for _, suffix := range []string{"_start", "_end"} {
			if k := day + suffix; posted(c, k) {
				patch.Hours[k] = strings.TrimSpace(c.FormValue(k))
			}
		}
	}
	if raw := c.FormValue("working_hours"); raw != "" {
		if err := decodeHours(raw, patch.Hours); err != nil {
			return patch, apperr.Validation(map[string]string{"working_hours": "Invalid working hours"})
		}
	}

	if posted(c, "social_media") {
		social := map[string]string{}
		if raw := strings.TrimSpace(c.FormValue("social_media")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &social); err != nil {
				return patch, apperr.Validation(map[string]string{"social_media": "Invalid social media"})
			}
		}
		patch.SocialMedia = social
	}

	if posted(c, "services") {
		offers, err := decodeOffers(c.FormValue("services"))
		if err != nil {
			return patch, apperr.Validation(map[string]string{"services": "Invalid services"})
		}
		patch.Services = offers
	}
	return patch, nil
}

// decodeHours accepts {"monday":{"start":"08:00","end":"17:00"}} or the
// flat {"monday_start":"08:00"} form.  Flat form fields already in dst win.
func decodeHours(raw string, dst map[string]string) error {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return err
	}
	set := func(k, v string) {
		if _, ok := dst[k]; !ok && v != "" {
			dst[k] = strings.TrimSpace(v)
		}
	}
	for k, v := range generic {
		var day model.DayHours
		if err := json.Unmarshal(v, &day); err == nil && (day.Start != "" || day.End != "") {
			set(strings.ToLower(k)+"_start", day.Start)
			set(strings.ToLower(k)+"_end", day.End)
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			set(strings.ToLower(k), s)
		}
	}
	return nil
}

// decodeOffers reads a JSON list of services.  Entries may be plain names
// or objects whose price is a number or a numeric string.
func decodeOffers(raw string) ([]model.Offer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []model.Offer{}, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	out := make([]model.Offer, 0, len(items))
	for _, it := range items {
		var name string
		if err := json.Unmarshal(it, &name); err == nil {
			out = append(out, model.Offer{Name: name})
			continue
		}
		var obj struct {
			Name  string          `json:"name"`
			Price json.RawMessage `json:"price"`
		}
		if err := json.Unmarshal(it, &obj); err != nil {
			return nil, err
		}
		o := model.Offer{Name: obj.Name}
		if p, ok := parsePrice(obj.Price); ok {
			o.Price = &p
		}
		out = append(out, o)
	}
	return out, nil
}

func parsePrice(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
