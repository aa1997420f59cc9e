package model

import "time"

// Booking states.  Cancelling never deletes a row; it moves it to
// BookingCancelled.
const (
	BookingPending    = "pending"
	BookingConfirmed  = "confirmed"
	BookingInProgress = "in_progress"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
)

// PaymentPaid is the payment_status that makes a booking eligible for
// automatic completion.
const PaymentPaid = "paid"

// Booking is a customer's appointment at a carwash for one service.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – customer who made the booking.
//	CarwashID     – carwash providing the service.
//	ServiceID     – booked service.
//	VehicleID     – optional vehicle of the customer.
//	BookingDate   – appointment day, YYYY-MM-DD.
//	BookingTime   – appointment time, HH:MM.
//	Status        – pending, confirmed, in_progress, completed or cancelled.
//	PaymentStatus – free-form payment state; "paid" enables auto-completion.
//	TotalPrice    – price of the service at booking time.
type Booking struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	CarwashID     int64      `json:"carwash_id"`
	ServiceID     int64      `json:"service_id"`
	VehicleID     *int64     `json:"vehicle_id,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	BookingDate   string     `json:"booking_date"`
	BookingTime   string     `json:"booking_time"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	TotalPrice    float64    `json:"total_price"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Joined for listings.
	CarwashName string `json:"carwash_name,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
}

// Cancellable reports whether the customer may still cancel.  Once a
// carwash confirms a booking only the carwash can change it.
func (b Booking) Cancellable() bool {
	return b.Status == BookingPending
}
