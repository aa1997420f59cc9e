// This file defines queries over carwashes and the services they offer.
// Only active carwashes are visible to customers.

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// CarwashRepo encapsulates all database queries related to carwashes.
type CarwashRepo struct {
	db *sql.DB
}

// NewCarwashRepo constructs a CarwashRepo with the provided DB handle.
func NewCarwashRepo(db *sql.DB) *CarwashRepo {
	return &CarwashRepo{db: db}
}

// ListActive returns all active carwashes ordered by name.
func (r *CarwashRepo) ListActive(ctx context.Context) ([]model.Carwash, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, name, COALESCE(address,''), COALESCE(city,''), COALESCE(status,''), created_at FROM carwashes WHERE status='active' ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Carwash{}
	for rows.Next() {
		var c model.Carwash
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Address, &c.City, &c.Status, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ServiceOf returns the service only when it belongs to carwashID.
func (r *CarwashRepo) ServiceOf(ctx context.Context, carwashID, serviceID int64) (model.Service, error) {
	var s model.Service
	err := r.db.QueryRowContext(ctx,
		"SELECT id, carwash_id, name, price, COALESCE(duration_minutes,0) FROM services WHERE id=? AND carwash_id=? LIMIT 1",
		serviceID, carwashID).Scan(&s.ID, &s.CarwashID, &s.Name, &s.Price, &s.DurationMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Service{}, ErrNotFound
	}
	return s, err
}

// ListServices returns the services of a carwash ordered by name.
func (r *CarwashRepo) ListServices(ctx context.Context, carwashID int64) ([]model.Service, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, carwash_id, name, price, COALESCE(duration_minutes,0) FROM services WHERE carwash_id=? ORDER BY name ASC", carwashID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Service{}
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.CarwashID, &s.Name, &s.Price, &s.DurationMinutes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
