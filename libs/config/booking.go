package config

import "time"

// Booking holds the slotting and cancellation policy constants. They are
// supplied by the environment, not hardcoded in the domain packages.
type Booking struct {
	SlotGranularity    time.Duration
	MinAdvanceBooking  time.Duration
	MaxAdvanceBookingD int // days; enforced by date-range expansion, not by the slot calculator
	CancellationWindow time.Duration
}

func BookingFromEnv() Booking {
	granularity := Int("SLOT_GRANULARITY_MINUTES", 30)
	if granularity <= 0 {
		granularity = 30
	}
	minAdvance := Int("MIN_ADVANCE_BOOKING_HOURS", 1)
	if minAdvance < 0 {
		minAdvance = 1
	}
	maxAdvanceDays := Int("MAX_ADVANCE_BOOKING_DAYS", 30)
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 30
	}
	cancelWindow := Int("CANCELLATION_WINDOW_HOURS", 2)
	if cancelWindow < 0 {
		cancelWindow = 2
	}
	return Booking{
		SlotGranularity:    time.Duration(granularity) * time.Minute,
		MinAdvanceBooking:  time.Duration(minAdvance) * time.Hour,
		MaxAdvanceBookingD: maxAdvanceDays,
		CancellationWindow: time.Duration(cancelWindow) * time.Hour,
	}
}
