package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/queue"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
)

// BookingStore is the booking persistence used by BookingService.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	ListByUser(ctx context.Context, userID int64) ([]model.Booking, error)
	GetOwned(ctx context.Context, id, userID int64) (model.Booking, error)
	CancelOwned(ctx context.Context, id, userID int64) error
}

// ServiceCatalog resolves a service of a carwash.
type ServiceCatalog interface {
	ServiceOf(ctx context.Context, carwashID, serviceID int64) (model.Service, error)
}

// VehicleLookup checks vehicle ownership.
type VehicleLookup interface {
	GetOwned(ctx context.Context, id, userID int64) (model.Vehicle, error)
}

// EventPublisher sends domain events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// BookingInput is a booking request of a customer.
type BookingInput struct {
	CarwashID     int64
	ServiceID     int64
	VehicleID     *int64
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	CustomerName  string
	CustomerPhone string
	Notes         string
}

type BookingService struct {
	bookings BookingStore
	catalog  ServiceCatalog
	vehicles VehicleLookup
	events   EventPublisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewBookingService(bookings BookingStore, catalog ServiceCatalog, vehicles VehicleLookup, events EventPublisher, log zerolog.Logger) *BookingService {
	return &BookingService{bookings: bookings, catalog: catalog, vehicles: vehicles, events: events, log: log, now: time.Now}
}

func (s *BookingService) List(ctx context.Context, userID int64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// Create validates in, prices it from the chosen service and stores a
// pending booking.
func (s *BookingService) Create(ctx context.Context, userID int64, in BookingInput) (model.Booking, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.Notes = strings.TrimSpace(in.Notes)

	fields := FieldErrors{}
	if in.CarwashID <= 0 {
		fields["carwash_id"] = "Carwash is required"
	}
	if in.ServiceID <= 0 {
		fields["service_id"] = "Service is required"
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(in.Date), time.UTC)
	if err != nil {
		fields["booking_date"] = "Date must be YYYY-MM-DD"
	} else if day.Before(truncateDay(s.now().UTC())) {
		fields["booking_date"] = "Date cannot be in the past"
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(in.Time)); err != nil {
		fields["booking_time"] = "Time must be HH:MM"
	}
	if in.CustomerName != "" && len([]rune(in.CustomerName)) < 2 {
		fields["customer_name"] = "Name must be at least 2 characters"
	}
	if in.CustomerPhone != "" && len(in.CustomerPhone) < 5 {
		fields["customer_phone"] = "Phone must be at least 5 characters"
	}
	if len(fields) > 0 {
		return model.Booking{}, fields
	}

	svc, err := s.catalog.ServiceOf(ctx, in.CarwashID, in.ServiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, FieldErrors{"service_id": "Service not offered by this carwash"}
	}
	if err != nil {
		return model.Booking{}, err
	}
	if in.VehicleID != nil {
		if _, err := s.vehicles.GetOwned(ctx, *in.VehicleID, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.Booking{}, FieldErrors{"vehicle_id": "Unknown vehicle"}
			}
			return model.Booking{}, err
		}
	}

	b := model.Booking{
		UserID:        userID,
		CarwashID:     in.CarwashID,
		ServiceID:     in.ServiceID,
		VehicleID:     in.VehicleID,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		Notes:         in.Notes,
		BookingDate:   day.Format("2006-01-02"),
		BookingTime:   strings.TrimSpace(in.Time),
		Status:        model.BookingPending,
		PaymentStatus: "pending",
		TotalPrice:    svc.Price,
		ServiceName:   svc.Name,
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		return model.Booking{}, err
	}
	s.publish(ctx, queue.BookingCreatedQueue, b)
	return b, nil
}

// Cancel moves an owned pending booking to cancelled.  It reports false,
// without error, when the booking is missing, foreign or not pending.
func (s *BookingService) Cancel(ctx context.Context, userID, id int64) (bool, error) {
	err := s.bookings.CancelOwned(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b, err := s.bookings.GetOwned(ctx, id, userID)
	if err != nil {
		s.log.Warn().Err(err).Int64("booking_id", id).Msg("reload cancelled booking failed")
		b = model.Booking{ID: id, UserID: userID, Status: model.BookingCancelled}
	}
	s.publish(ctx, queue.BookingCancelledQueue, b)
	return true, nil
}

// publish is fire and forget; broker failures never fail the request.
func (s *BookingService) publish(ctx context.Context, key string, b model.Booking) {
	if s.events == nil {
		return
	}
	ev := queue.BookingEvent{
		Type:        key,
		BookingID:   b.ID,
		UserID:      b.UserID,
		CarwashID:   b.CarwashID,
		CarwashName: b.CarwashName,
		ServiceID:   b.ServiceID,
		ServiceName: b.ServiceName,
		Date:        b.BookingDate,
		Time:        b.BookingTime,
		TotalPrice:  b.TotalPrice,
		Status:      b.Status,
		OccurredAt:  s.now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, key, ev); err != nil {
		s.log.Warn().Err(err).Str("routing_key", key).Int64("booking_id", b.ID).Msg("publish booking event failed")
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
