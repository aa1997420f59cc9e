package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// VehicleRepo manages rows of user_vehicles.  Every statement is scoped by
// user_id so one customer can never read or change another's vehicles.
type VehicleRepo struct {
	db *sql.DB
}

func NewVehicleRepo(db *sql.DB) *VehicleRepo { return &VehicleRepo{db: db} }

const vehicleColumns = "id,user_id,brand,model,license_plate,year,COALESCE(color,''),COALESCE(image_path,''),created_at,updated_at"

func scanVehicle(row interface{ Scan(...any) error }) (model.Vehicle, error) {
	var (
		v       model.Vehicle
		year    sql.NullInt64
		updated sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.UserID, &v.Brand, &v.Model, &v.LicensePlate, &year, &v.Color, &v.ImagePath, &v.CreatedAt, &updated); err != nil {
		return model.Vehicle{}, err
	}
	if year.Valid {
		y := int(year.Int64)
		v.Year = &y
	}
	if updated.Valid {
		v.UpdatedAt = &updated.Time
	}
	return v, nil
}

func nullableYear(y *int) any {
	if y == nil {
		return nil
	}
	return *y
}

// ListByUser returns the user's vehicles, newest first.
func (r *VehicleRepo) ListByUser(ctx context.Context, userID int64) ([]model.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+vehicleColumns+" FROM user_vehicles WHERE user_id=? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetOwned returns the vehicle when it exists and belongs to userID.
func (r *VehicleRepo) GetOwned(ctx context.Context, id, userID int64) (model.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx,
		"SELECT "+vehicleColumns+" FROM user_vehicles WHERE id=? AND user_id=? LIMIT 1", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, ErrNotFound
	}
	return v, err
}

// Create inserts v and sets its ID.  The image is attached separately once
// the upload succeeded.
func (r *VehicleRepo) Create(ctx context.Context, v *model.Vehicle) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO user_vehicles (user_id, brand, model, license_plate, year, color, created_at) VALUES (?,?,?,?,?,?,?)",
		v.UserID, v.Brand, v.Model, v.LicensePlate, nullableYear(v.Year), v.Color, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = id
	v.CreatedAt = now
	return nil
}

// Update writes the textual fields of an owned vehicle.  It returns
// ErrNotFound when no owned row matched.
func (r *VehicleRepo) Update(ctx context.Context, v model.Vehicle) error {
	if _, err := r.GetOwned(ctx, v.ID, v.UserID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE user_vehicles SET brand=?, model=?, license_plate=?, year=?, color=?, updated_at=? WHERE id=? AND user_id=?",
		v.Brand, v.Model, v.LicensePlate, nullableYear(v.Year), v.Color, time.Now().UTC(), v.ID, v.UserID)
	return err
}

// SetImage stores the object key of an uploaded photo.
func (r *VehicleRepo) SetImage(ctx context.Context, id, userID int64, path string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE user_vehicles SET image_path=?, updated_at=? WHERE id=? AND user_id=?",
		path, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an owned vehicle.  Deleting a foreign or missing id is a
// no-op reported as deleted=false.
func (r *VehicleRepo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM user_vehicles WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
