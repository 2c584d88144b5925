package service

import (
	"context"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
)

// Clock supplies the current time so lifecycle rules are testable.
type Clock func() time.Time

// BookingSource is the read contract availability needs from the repository:
// the barber's non-cancelled bookings overlapping [from, to).
type BookingSource interface {
	ListActiveForBarber(ctx context.Context, barberID string, from, to time.Time) ([]booking.Booking, error)
}

// BookingStore is the full repository contract for the booking lifecycle.
// Create assigns the id and timestamps and returns booking.ErrSlotTaken when
// the interval collides with an existing non-cancelled booking for the same
// barber; the atomic check-and-insert lives behind this boundary, not in a
// prior availability read.
type BookingStore interface {
	BookingSource
	Create(ctx context.Context, b booking.Booking) (booking.Booking, error)
	Get(ctx context.Context, businessID, bookingID string) (booking.Booking, error)
	UpdateStatus(ctx context.Context, businessID, bookingID string, status booking.Status) (time.Time, error)
	ListForCustomer(ctx context.Context, customerID string, limit int) ([]booking.Booking, error)
	ListForBusinessOnDay(ctx context.Context, businessID string, from, to time.Time) ([]booking.Booking, error)
	CountActiveForBusinessBetween(ctx context.Context, businessID string, from, to time.Time) (int, error)
}

// PlanSource answers which subscription plan a business is on.
type PlanSource interface {
	PlanName(ctx context.Context, businessID string) (string, error)
}
