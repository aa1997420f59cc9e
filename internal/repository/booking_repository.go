package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/carwash-dashboard/internal/model"
)

// BookingRepo provides access to the bookings table.  booking_date and
// booking_time are DATE and TIME columns read back as strings; times are
// stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.user_id, b.carwash_id, b.service_id, b.vehicle_id,
       COALESCE(b.customer_name,''), COALESCE(b.customer_phone,''), COALESCE(b.notes,''),
       DATE_FORMAT(b.booking_date, '%Y-%m-%d'), TIME_FORMAT(b.booking_time, '%H:%i'),
       b.status, COALESCE(b.payment_status,''), b.total_price, b.completed_at, b.created_at, b.updated_at,
       COALESCE(c.name,''), COALESCE(s.name,'')
  FROM bookings b
  LEFT JOIN carwashes c ON c.id = b.carwash_id
  LEFT JOIN services s ON s.id = b.service_id`

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
	var (
		b         model.Booking
		vehicleID sql.NullInt64
		completed sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.CarwashID, &b.ServiceID, &vehicleID,
		&b.CustomerName, &b.CustomerPhone, &b.Notes,
		&b.BookingDate, &b.BookingTime,
		&b.Status, &b.PaymentStatus, &b.TotalPrice, &completed, &b.CreatedAt, &b.UpdatedAt,
		&b.CarwashName, &b.ServiceName)
	if err != nil {
		return model.Booking{}, err
	}
	if vehicleID.Valid {
		b.VehicleID = &vehicleID.Int64
	}
	if completed.Valid {
		b.CompletedAt = &completed.Time
	}
	return b, nil
}

// Create inserts a booking and populates its ID and timestamps.  Status
// defaults to pending when unset.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = "pending"
	}
	now := time.Now().UTC()
	var vehicle any
	if b.VehicleID != nil {
		vehicle = *b.VehicleID
	}
	const q = `INSERT INTO bookings (user_id, carwash_id, service_id, vehicle_id, customer_name, customer_phone, notes,
                      booking_date, booking_time, status, payment_status, total_price, created_at, updated_at)
               VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, b.UserID, b.CarwashID, b.ServiceID, vehicle,
		b.CustomerName, b.CustomerPhone, b.Notes, b.BookingDate, b.BookingTime,
		b.Status, b.PaymentStatus, b.TotalPrice, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// ListByUser returns the user's bookings, the most recent appointment
// first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID int64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		bookingSelect+" WHERE b.user_id=? ORDER BY b.booking_date DESC, b.booking_time DESC, b.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetOwned returns the booking when it belongs to userID.
func (r *BookingRepo) GetOwned(ctx context.Context, id, userID int64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+" WHERE b.id=? AND b.user_id=? LIMIT 1", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// CancelOwned moves an owned pending booking to cancelled.  Missing,
// foreign and non-pending bookings all yield ErrNotFound.
func (r *BookingRepo) CancelOwned(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status=?, updated_at=? WHERE id=? AND user_id=? AND status=?",
		model.BookingCancelled, time.Now().UTC(), id, userID, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteElapsed marks paid bookings whose slot started more than grace
// before now as completed and reports how many rows changed.
func (r *BookingRepo) CompleteElapsed(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	cutoff := now.Add(-grace).UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status=?, completed_at=?, updated_at=?
          WHERE status IN (?,?,?) AND payment_status=? AND TIMESTAMP(booking_date, booking_time) < ?`,
		model.BookingCompleted, now.UTC(), now.UTC(),
		model.BookingPending, model.BookingConfirmed, model.BookingInProgress, model.PaymentPaid, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
