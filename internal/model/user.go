package model

import "time"

// Roles stored in users.role.  Comparisons are exact and case-sensitive.
const (
	RoleCustomer = "customer"
	RoleCarwash  = "carwash"
	RoleAdmin    = "admin"
)

// Account states stored in users.status.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusBanned    = "banned"
	StatusSuspended = "suspended"
)

// User represents a row of the `users` table.  Password holds whatever
// the row stores: a bcrypt or argon2id hash, or plaintext on accounts
// imported before hashing was enforced.
//
// Fields:
//
//	ID            – primary key identifier.
//	Name          – display name.
//	Email         – unique address, stored lower-cased for new rows.
//	Password      – stored credential (see above); never leaves the service layer.
//	Role          – customer, carwash or admin.
//	Status        – active, inactive, banned or suspended.
//	RememberHash  – SHA-256 of the remember-me cookie value, if any.
//	TokenExpires  – expiry of the remember-me token.
//	LastLogin     – last successful login.
type User struct {
	ID           int64      // users.id
	Name         string     // users.name
	Email        string     // users.email
	Password     string     // users.password
	Role         string     // users.role
	Status       string     // users.status
	RememberHash *string    // users.remember_token (nullable)
	TokenExpires *time.Time // users.token_expires (nullable)
	LastLogin    *time.Time // users.last_login (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// Blocked reports whether the account status forbids logging in.
func (u User) Blocked() bool {
	switch u.Status {
	case StatusInactive, StatusBanned, StatusSuspended:
		return true
	}
	return false
}

// Profile is the self-service view of a users row.  ImagePath is the
// object key or site path of the avatar, ImageURL its resolved URL.
type Profile struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ImagePath string `json:"-"`
	ImageURL  string `json:"profile_image"`
}

// Vehicle is a row of `user_vehicles`.  ImagePath is the object key of the
// uploaded photo, empty when none was stored.
type Vehicle struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Brand        string     `json:"brand"`
	Model        string     `json:"model"`
	LicensePlate string     `json:"license_plate"`
	Year         *int       `json:"year"`
	Color        string     `json:"color"`
	ImagePath    string     `json:"image_path"`
	ImageURL     string     `json:"image_url"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}
