package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/libs/config"
)

var testCfg = config.Booking{
	SlotGranularity:    30 * time.Minute,
	MinAdvanceBooking:  time.Hour,
	MaxAdvanceBookingD: 30,
	CancellationWindow: 2 * time.Hour,
}

func validCreateInput(start time.Time) CreateInput {
	return CreateInput{
		BusinessID:      "biz-1",
		BarberID:        "barber-1",
		CustomerID:      "cust-1",
		ServiceID:       "svc-1",
		StartTime:       start,
		DurationMinutes: 30,
	}
}

func TestCreate_NewBookingIsPending(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	svc := NewLifecycleService(store, fakePlans{name: "pro"}, fixedClock(now), testCfg)

	b, err := svc.Create(context.Background(), validCreateInput(now.Add(3*time.Hour)))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Status != booking.StatusPending {
		t.Fatalf("new bookings must start pending, got %s", b.Status)
	}
	if b.ID == "" || b.CreatedAt.IsZero() || b.UpdatedAt.IsZero() {
		t.Fatalf("store must assign id and timestamps: %+v", b)
	}
}

func TestCreate_Validation(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	svc := NewLifecycleService(newFakeStore(now), nil, fixedClock(now), testCfg)

	cases := []CreateInput{
		func() CreateInput { in := validCreateInput(now.Add(3 * time.Hour)); in.BarberID = ""; return in }(),
		func() CreateInput { in := validCreateInput(now.Add(3 * time.Hour)); in.DurationMinutes = 0; return in }(),
		func() CreateInput { in := validCreateInput(now.Add(3 * time.Hour)); in.DurationMinutes = -15; return in }(),
		func() CreateInput { in := validCreateInput(time.Time{}); return in }(),
		// 30 minutes out is inside the one-hour advance floor.
		validCreateInput(now.Add(30 * time.Minute)),
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, booking.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestCreate_ConflictSurfacesAsSlotTaken(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	svc := NewLifecycleService(store, nil, fixedClock(now), testCfg)

	start := now.Add(4 * time.Hour)
	if _, err := svc.Create(context.Background(), validCreateInput(start)); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	in := validCreateInput(start.Add(15 * time.Minute))
	in.CustomerID = "cust-2"
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, booking.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for overlapping interval, got %v", err)
	}

	// A different barber is a different resource.
	other := validCreateInput(start)
	other.BarberID = "barber-2"
	if _, err := svc.Create(context.Background(), other); err != nil {
		t.Fatalf("other barber should not conflict: %v", err)
	}
}

func TestCreate_PlanLimit(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	// trial caps at 50 bookings per month; pre-seed the cap within January.
	for i := 0; i < 50; i++ {
		start := time.Date(2026, 1, 29, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
		if _, err := store.Create(context.Background(), booking.Booking{
			BusinessID: "biz-1", BarberID: "barber-1", CustomerID: "c", ServiceID: "s",
			StartTime: start, DurationMinutes: 30, Status: booking.StatusPending,
		}); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	svc := NewLifecycleService(store, fakePlans{name: "trial"}, fixedClock(now), testCfg)

	in := validCreateInput(time.Date(2026, 1, 28, 20, 0, 0, 0, time.UTC))
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrPlanLimit) {
		t.Fatalf("expected ErrPlanLimit, got %v", err)
	}
}

func TestConfirmCompleteOrdering(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	svc := NewLifecycleService(store, nil, fixedClock(now), testCfg)

	b, err := svc.Create(context.Background(), validCreateInput(now.Add(5*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Completing a pending booking is rejected.
	if _, err := svc.Complete(context.Background(), b.BusinessID, b.ID); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition completing pending, got %v", err)
	}

	confirmed, err := svc.Confirm(context.Background(), b.BusinessID, b.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != booking.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	// Confirming twice is rejected.
	if _, err := svc.Confirm(context.Background(), b.BusinessID, b.ID); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition confirming twice, got %v", err)
	}

	completed, err := svc.Complete(context.Background(), b.BusinessID, b.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != booking.StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}

	// completed is terminal.
	if _, err := svc.Cancel(context.Background(), b.BusinessID, b.ID); !errors.Is(err, booking.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition cancelling completed, got %v", err)
	}
}

func TestCancel_InsideWindowRejected(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	svc := NewLifecycleService(store, nil, fixedClock(now), testCfg)

	// Appointment 90 minutes out with a 2-hour window: too late to cancel.
	b, err := store.Create(context.Background(), booking.Booking{
		BusinessID: "biz-1", BarberID: "barber-1", CustomerID: "c", ServiceID: "s",
		StartTime: now.Add(90 * time.Minute), DurationMinutes: 30, Status: booking.StatusPending,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), b.BusinessID, b.ID); !errors.Is(err, booking.ErrCancellationWindow) {
		t.Fatalf("expected ErrCancellationWindow, got %v", err)
	}

	// A past appointment is also inside the window.
	past, err := store.Create(context.Background(), booking.Booking{
		BusinessID: "biz-1", BarberID: "barber-2", CustomerID: "c", ServiceID: "s",
		StartTime: now.Add(-2 * time.Hour), DurationMinutes: 30, Status: booking.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), past.BusinessID, past.ID); !errors.Is(err, booking.ErrCancellationWindow) {
		t.Fatalf("expected ErrCancellationWindow for past appointment, got %v", err)
	}
}

func TestCancel_OutsideWindowFreesSlot(t *testing.T) {
	now := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(now)
	svc := NewLifecycleService(store, nil, fixedClock(now), testCfg)

	start := now.Add(6 * time.Hour)
	b, err := svc.Create(context.Background(), validCreateInput(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), b.BusinessID, b.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != booking.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	// The interval is free again: the same slot can be rebooked.
	in := validCreateInput(start)
	in.CustomerID = "cust-2"
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("rebooking a cancelled slot should succeed: %v", err)
	}
}

func TestTransitions_BumpUpdatedAt(t *testing.T) {
	created := time.Date(2026, 1, 28, 8, 0, 0, 0, time.UTC)
	store := newFakeStore(created)
	svc := NewLifecycleService(store, nil, fixedClock(created), testCfg)

	b, err := svc.Create(context.Background(), validCreateInput(created.Add(5*time.Hour)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	store.now = created.Add(10 * time.Minute)
	confirmed, err := svc.Confirm(context.Background(), b.BusinessID, b.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !confirmed.UpdatedAt.After(b.UpdatedAt) {
		t.Fatalf("UpdatedAt must advance on transition: %s vs %s", confirmed.UpdatedAt, b.UpdatedAt)
	}
}
