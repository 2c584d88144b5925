package service

import (
	"context"
	"fmt"
	"time"

	"github.com/barberbook/barberbook/internal/availability"
	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/schedule"
	"github.com/barberbook/barberbook/libs/config"
)

// AvailabilityService computes a barber's bookable slots for a day. It takes
// its repository, clock, and policy constants at construction; given a fixed
// clock it is a pure function of the booking set.
type AvailabilityService struct {
	bookings BookingSource
	clock    Clock
	cfg      config.Booking
}

func NewAvailabilityService(bookings BookingSource, clock Clock, cfg config.Booking) *AvailabilityService {
	if clock == nil {
		clock = time.Now
	}
	return &AvailabilityService{bookings: bookings, clock: clock, cfg: cfg}
}

// SlotsForDay returns every candidate slot for the calendar date of day (in
// day's location), flagged available or not. Closed days yield an empty
// list. Unavailable slots are included so the client can grey them out.
func (s *AvailabilityService) SlotsForDay(ctx context.Context, barberID string, day time.Time, week schedule.WeeklySchedule, serviceDuration time.Duration) ([]availability.Slot, error) {
	if barberID == "" {
		return nil, fmt.Errorf("%w: barber id required", booking.ErrInvalidInput)
	}
	if serviceDuration <= 0 {
		return nil, fmt.Errorf("%w: service duration must be positive", booking.ErrInvalidInput)
	}

	hours := week.ForWeekday(schedule.WeekdayKey(day))
	if !hours.Open {
		return nil, nil
	}

	dayStart := schedule.At(day, 0)
	dayEnd := dayStart.AddDate(0, 0, 1)
	existing, err := s.bookings.ListActiveForBarber(ctx, barberID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	busy := make([]availability.Interval, 0, len(existing))
	for _, b := range existing {
		if !b.Active() {
			continue
		}
		busy = append(busy, availability.Interval{Start: b.StartTime, End: b.EndTime()})
	}

	earliest := s.clock().Add(s.cfg.MinAdvanceBooking)
	return availability.Compute(day, hours, serviceDuration, s.cfg.SlotGranularity, busy, earliest), nil
}
