package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barberbook/barberbook/internal/billing"
	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/libs/config"
)

// ErrPlanLimit signals that the business's subscription plan does not allow
// another booking this month.
var ErrPlanLimit = errors.New("monthly booking limit reached for plan")

// LifecycleService owns booking creation and status transitions. All clock
// reads go through the injected Clock; all persistence through BookingStore.
type LifecycleService struct {
	store BookingStore
	plans PlanSource
	clock Clock
	cfg   config.Booking
}

func NewLifecycleService(store BookingStore, plans PlanSource, clock Clock, cfg config.Booking) *LifecycleService {
	if clock == nil {
		clock = time.Now
	}
	return &LifecycleService{store: store, plans: plans, clock: clock, cfg: cfg}
}

type CreateInput struct {
	BusinessID      string
	BarberID        string
	CustomerID      string
	ServiceID       string
	StartTime       time.Time
	DurationMinutes int
	Notes           string
}

// Create persists a new booking in pending status. The caller is expected to
// have just re-run availability, but the actual guarantee comes from the
// store: a colliding interval surfaces as booking.ErrSlotTaken.
func (s *LifecycleService) Create(ctx context.Context, in CreateInput) (booking.Booking, error) {
	if in.BusinessID == "" || in.BarberID == "" || in.CustomerID == "" || in.ServiceID == "" {
		return booking.Booking{}, fmt.Errorf("%w: missing identifiers", booking.ErrInvalidInput)
	}
	if in.DurationMinutes <= 0 {
		return booking.Booking{}, fmt.Errorf("%w: duration must be positive", booking.ErrInvalidInput)
	}
	if in.StartTime.IsZero() {
		return booking.Booking{}, fmt.Errorf("%w: start time required", booking.ErrInvalidInput)
	}

	now := s.clock()
	if in.StartTime.Before(now.Add(s.cfg.MinAdvanceBooking)) {
		return booking.Booking{}, fmt.Errorf("%w: start time is inside the advance-booking floor", booking.ErrInvalidInput)
	}

	if err := s.checkPlanAllowance(ctx, in.BusinessID, in.StartTime); err != nil {
		return booking.Booking{}, err
	}

	b := booking.Booking{
		BusinessID:      in.BusinessID,
		BarberID:        in.BarberID,
		CustomerID:      in.CustomerID,
		ServiceID:       in.ServiceID,
		StartTime:       in.StartTime,
		DurationMinutes: in.DurationMinutes,
		Status:          booking.StatusPending,
		Notes:           in.Notes,
	}
	created, err := s.store.Create(ctx, b)
	if err != nil {
		return booking.Booking{}, err
	}
	return created, nil
}

// Confirm moves a pending booking to confirmed.
func (s *LifecycleService) Confirm(ctx context.Context, businessID, bookingID string) (booking.Booking, error) {
	return s.transition(ctx, businessID, bookingID, booking.ActionConfirm)
}

// Complete moves a confirmed booking to completed.
func (s *LifecycleService) Complete(ctx context.Context, businessID, bookingID string) (booking.Booking, error) {
	return s.transition(ctx, businessID, bookingID, booking.ActionComplete)
}

// Cancel moves a pending or confirmed booking to cancelled, but only while
// the appointment is still outside the cancellation window. The record is
// kept; cancelling frees the interval for future availability queries.
func (s *LifecycleService) Cancel(ctx context.Context, businessID, bookingID string) (booking.Booking, error) {
	b, err := s.store.Get(ctx, businessID, bookingID)
	if err != nil {
		return booking.Booking{}, err
	}

	next, err := booking.Transition(b.Status, booking.ActionCancel)
	if err != nil {
		return booking.Booking{}, err
	}

	deadline := b.StartTime.Add(-s.cfg.CancellationWindow)
	if s.clock().After(deadline) {
		return booking.Booking{}, fmt.Errorf("%w: cancellation closed %s before the appointment", booking.ErrCancellationWindow, s.cfg.CancellationWindow)
	}

	return s.applyStatus(ctx, b, next)
}

func (s *LifecycleService) transition(ctx context.Context, businessID, bookingID string, action booking.Action) (booking.Booking, error) {
	b, err := s.store.Get(ctx, businessID, bookingID)
	if err != nil {
		return booking.Booking{}, err
	}
	next, err := booking.Transition(b.Status, action)
	if err != nil {
		return booking.Booking{}, err
	}
	return s.applyStatus(ctx, b, next)
}

func (s *LifecycleService) applyStatus(ctx context.Context, b booking.Booking, next booking.Status) (booking.Booking, error) {
	updatedAt, err := s.store.UpdateStatus(ctx, b.BusinessID, b.ID, next)
	if err != nil {
		return booking.Booking{}, err
	}
	b.Status = next
	b.UpdatedAt = updatedAt
	return b, nil
}

func (s *LifecycleService) checkPlanAllowance(ctx context.Context, businessID string, start time.Time) error {
	if s.plans == nil {
		return nil
	}
	planName, err := s.plans.PlanName(ctx, businessID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	plan := billing.PlanFor(planName)
	if plan.MaxBookingsPerMonth == billing.Unlimited {
		return nil
	}

	monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	count, err := s.store.CountActiveForBusinessBetween(ctx, businessID, monthStart, monthEnd)
	if err != nil {
		return fmt.Errorf("count bookings: %w", err)
	}
	if !plan.AllowsBookings(count) {
		return fmt.Errorf("%w: %s allows %d per month", ErrPlanLimit, plan.Name, plan.MaxBookingsPerMonth)
	}
	return nil
}
