package model

import "time"

// Carwash is a venue run by a user with the carwash role.  Only ID, Name,
// Address and City are exposed on public listings.
type Carwash struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Status    string    `json:"-"`
	CreatedAt time.Time `json:"-"`
}

// Service is a priced offering of a carwash.
type Service struct {
	ID              int64   `json:"id"`
	CarwashID       int64   `json:"carwash_id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"duration_minutes"`
}

// Weekdays in storage order of working_hours.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// DayHours is the opening window of one weekday.
type DayHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Offer is an entry of the services list a business advertises on its
// profile.  Price is nil when not given.
type Offer struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price,omitempty"`
}

// BusinessProfile is the public face of a carwash business, one per user.
type BusinessProfile struct {
	ID            int64               `json:"id"`
	UserID        int64               `json:"user_id"`
	BusinessName  string              `json:"business_name"`
	Address       string              `json:"address"`
	PostalCode    string              `json:"postal_code"`
	City          string              `json:"city"`
	District      string              `json:"district"`
	Phone         string              `json:"phone"`
	MobilePhone   string              `json:"mobile_phone"`
	Email         string              `json:"email"`
	LicenseNumber string              `json:"license_number"`
	TaxNumber     string              `json:"tax_number"`
	WorkingHours  map[string]DayHours `json:"working_hours"`
	SocialMedia   map[string]string   `json:"social_media"`
	Services      []Offer             `json:"services"`
	LogoPath      string              `json:"logo_path"`
	LogoURL       string              `json:"logo_url,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
