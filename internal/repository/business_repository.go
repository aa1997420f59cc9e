package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// BusinessRepo reads and writes business_profiles.  working_hours,
// social_media and services are JSON columns.
type BusinessRepo struct {
	db *sql.DB
}

func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{db: db} }

const businessSelect = `SELECT id, user_id, COALESCE(business_name,''), COALESCE(address,''), COALESCE(postal_code,''),
       COALESCE(city,''), COALESCE(district,''), COALESCE(phone,''), COALESCE(mobile_phone,''), COALESCE(email,''),
       COALESCE(license_number,''), COALESCE(tax_number,''), working_hours, social_media, services,
       COALESCE(logo_path,''), created_at, updated_at
  FROM business_profiles`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProfile(ctx context.Context, q querier, userID int64, lock bool) (model.BusinessProfile, error) {
	query := businessSelect + " WHERE user_id=? LIMIT 1"
	if lock {
		query += " FOR UPDATE"
	}
	var (
		p                     model.BusinessProfile
		hours, social, offers sql.NullString
	)
	err := q.QueryRowContext(ctx, query, userID).Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Address, &p.PostalCode,
		&p.City, &p.District, &p.Phone, &p.MobilePhone, &p.Email,
		&p.LicenseNumber, &p.TaxNumber, &hours, &social, &offers,
		&p.LogoPath, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BusinessProfile{}, ErrNotFound
	}
	if err != nil {
		return model.BusinessProfile{}, err
	}
	// Malformed JSON in legacy rows is treated as empty rather than fatal.
	if hours.Valid && hours.String != "" {
		_ = json.Unmarshal([]byte(hours.String), &p.WorkingHours)
	}
	if social.Valid && social.String != "" {
		_ = json.Unmarshal([]byte(social.String), &p.SocialMedia)
	}
	if offers.Valid && offers.String != "" {
		_ = json.Unmarshal([]byte(offers.String), &p.Services)
	}
	return p, nil
}

// GetByUser returns the profile of userID or ErrNotFound.
func (r *BusinessRepo) GetByUser(ctx context.Context, userID int64) (model.BusinessProfile, error) {
	return getProfile(ctx, r.db, userID, false)
}

// Update runs fn inside one transaction.  fn receives the locked current
// profile (found=false when none exists yet) and returns the profile to
// store.  Any error from fn or the database rolls everything back.
func (r *BusinessRepo) Update(ctx context.Context, userID int64, fn func(current model.BusinessProfile, found bool) (model.BusinessProfile, error)) (model.BusinessProfile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.BusinessProfile{}, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getProfile(ctx, tx, userID, true)
	found := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.BusinessProfile{}, err
	}
	next, err := fn(current, found)
	if err != nil {
		return model.BusinessProfile{}, err
	}
	next.UserID = userID
	if err := saveProfile(ctx, tx, &next, found); err != nil {
		return model.BusinessProfile{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.BusinessProfile{}, err
	}
	return next, nil
}

func saveProfile(ctx context.Context, tx *sql.Tx, p *model.BusinessProfile, exists bool) error {
	hours, err := json.Marshal(p.WorkingHours)
	if err != nil {
		return fmt.Errorf("encode working_hours: %w", err)
	}
	social, err := json.Marshal(p.SocialMedia)
	if err != nil {
		return fmt.Errorf("encode social_media: %w", err)
	}
	offers, err := json.Marshal(p.Services)
	if err != nil {
		return fmt.Errorf("encode services: %w", err)
	}
	now := time.Now().UTC()
	p.UpdatedAt = now
	if exists {
		_, err = tx.ExecContext(ctx, `UPDATE business_profiles SET business_name=?, address=?, postal_code=?, city=?, district=?,
               phone=?, mobile_phone=?, email=?, license_number=?, tax_number=?,
               working_hours=?, social_media=?, services=?, logo_path=?, updated_at=?
          WHERE user_id=?`,
			p.BusinessName, p.Address, p.PostalCode, p.City, p.District,
			p.Phone, p.MobilePhone, p.Email, p.LicenseNumber, p.TaxNumber,
			string(hours), string(social), string(offers), p.LogoPath, now, p.UserID)
		return err
	}
	p.CreatedAt = now
	res, err := tx.ExecContext(ctx, `INSERT INTO business_profiles (user_id, business_name, address, postal_code, city, district,
               phone, mobile_phone, email, license_number, tax_number,
               working_hours, social_media, services, logo_path, created_at, updated_at)
          VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.BusinessName, p.Address, p.PostalCode, p.City, p.District,
		p.Phone, p.MobilePhone, p.Email, p.LicenseNumber, p.TaxNumber,
		string(hours), string(social), string(offers), p.LogoPath, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}
