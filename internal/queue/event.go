// Package queue defines message payloads exchanged over the message broker.
package queue

// Routing keys, one durable queue each.
const (
	BookingCreatedQueue   = "booking.created"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published when a booking is created or cancelled.  It
// contains enough information for downstream consumers to log or notify
// without querying the primary database.
type BookingEvent struct {
	Type        string  `json:"type"`
	BookingID   int64   `json:"booking_id"`
	UserID      int64   `json:"user_id"`
	CarwashID   int64   `json:"carwash_id"`
	CarwashName string  `json:"carwash_name"`
	ServiceID   int64   `json:"service_id"`
	ServiceName string  `json:"service_name"`
	Date        string  `json:"booking_date"`
	Time        string  `json:"booking_time"`
	TotalPrice  float64 `json:"total_price"`
	Status      string  `json:"status"`
	OccurredAt  string  `json:"occurred_at"`
}
