package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/schedule"
)

func TestSlotsForDay_FullOpenDay(t *testing.T) {
	now := time.Date(2026, 1, 26, 6, 0, 0, 0, time.UTC) // Monday, well before opening
	store := newFakeStore(now)
	svc := NewAvailabilityService(store, fixedClock(now), testCfg)

	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC) // Wednesday
	slots, err := svc.SlotsForDay(context.Background(), "barber-1", day, schedule.DefaultWeek(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	if len(slots) != 18 {
		t.Fatalf("expected 18 half-hour slots for 09:00-18:00, got %d", len(slots))
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("empty calendar should make every slot available; %s is not", s.Time)
		}
	}
	if slots[0].Time != "09:00" || slots[17].Time != "17:30" {
		t.Fatalf("unexpected slot boundaries: %s .. %s", slots[0].Time, slots[17].Time)
	}
}

func TestSlotsForDay_ClosedDayIsEmpty(t *testing.T) {
	now := time.Date(2026, 1, 26, 6, 0, 0, 0, time.UTC)
	svc := NewAvailabilityService(newFakeStore(now), fixedClock(now), testCfg)

	sunday := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	slots, err := svc.SlotsForDay(context.Background(), "barber-1", sunday, schedule.DefaultWeek(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed day must yield no slots, got %d", len(slots))
	}
}

func TestSlotsForDay_ExistingBookingBlocksOverlaps(t *testing.T) {
	now := time.Date(2026, 1, 26, 6, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	if _, err := store.Create(context.Background(), booking.Booking{
		BusinessID: "biz-1", BarberID: "barber-1", CustomerID: "c", ServiceID: "s",
		StartTime: day.Add(10 * time.Hour), DurationMinutes: 30, Status: booking.StatusConfirmed,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewAvailabilityService(store, fixedClock(now), testCfg)
	slots, err := svc.SlotsForDay(context.Background(), "barber-1", day, schedule.DefaultWeek(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}

	byTime := map[string]bool{}
	for _, s := range slots {
		byTime[s.Time] = s.Available
	}
	if byTime["10:00"] {
		t.Fatal("10:00 should be unavailable under a 10:00-10:30 booking")
	}
	if !byTime["09:30"] || !byTime["10:30"] {
		t.Fatal("adjacent slots 09:30 and 10:30 must stay available")
	}
}

func TestSlotsForDay_CancelledBookingIgnored(t *testing.T) {
	now := time.Date(2026, 1, 26, 6, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	if _, err := store.Create(context.Background(), booking.Booking{
		BusinessID: "biz-1", BarberID: "barber-1", CustomerID: "c", ServiceID: "s",
		StartTime: day.Add(10 * time.Hour), DurationMinutes: 30, Status: booking.StatusCancelled,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewAvailabilityService(store, fixedClock(now), testCfg)
	slots, err := svc.SlotsForDay(context.Background(), "barber-1", day, schedule.DefaultWeek(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	for _, s := range slots {
		if s.Time == "10:00" && !s.Available {
			t.Fatal("a cancelled booking must not block its old slot")
		}
	}
}

func TestSlotsForDay_AdvanceFloorOnToday(t *testing.T) {
	// Asking at 09:45 with a one-hour floor: earliest bookable instant is
	// 10:45, so 11:00 is the first available slot.
	now := time.Date(2026, 1, 28, 9, 45, 0, 0, time.UTC)
	svc := NewAvailabilityService(newFakeStore(now), fixedClock(now), testCfg)

	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	slots, err := svc.SlotsForDay(context.Background(), "barber-1", day, schedule.DefaultWeek(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	for _, s := range slots {
		wantAvailable := s.Time >= "11:00"
		if s.Available != wantAvailable {
			t.Fatalf("slot %s: available=%v, want %v", s.Time, s.Available, wantAvailable)
		}
	}
}

func TestSlotsForDay_InvalidInput(t *testing.T) {
	now := time.Date(2026, 1, 26, 6, 0, 0, 0, time.UTC)
	svc := NewAvailabilityService(newFakeStore(now), fixedClock(now), testCfg)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	if _, err := svc.SlotsForDay(context.Background(), "", day, schedule.DefaultWeek(), 30*time.Minute); !errors.Is(err, booking.ErrInvalidInput) {
		t.Fatalf("empty barber id: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.SlotsForDay(context.Background(), "barber-1", day, schedule.DefaultWeek(), 0); !errors.Is(err, booking.ErrInvalidInput) {
		t.Fatalf("zero duration: expected ErrInvalidInput, got %v", err)
	}
}

func TestSlotsForDay_OtherBarberDoesNotInterfere(t *testing.T) {
	now := time.Date(2026, 1, 26, 6, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)

	if _, err := store.Create(context.Background(), booking.Booking{
		BusinessID: "biz-1", BarberID: "barber-2", CustomerID: "c", ServiceID: "s",
		StartTime: day.Add(10 * time.Hour), DurationMinutes: 60, Status: booking.StatusConfirmed,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewAvailabilityService(store, fixedClock(now), testCfg)
	slots, err := svc.SlotsForDay(context.Background(), "barber-1", day, schedule.DefaultWeek(), 30*time.Minute)
	if err != nil {
		t.Fatalf("SlotsForDay: %v", err)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("another barber's booking must not block %s", s.Time)
		}
	}
}
