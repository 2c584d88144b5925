package service

import (
	"context"
	"fmt"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
)

// fakeStore keeps bookings in memory and mimics the repository's conflict
// behavior on overlapping intervals.
type fakeStore struct {
	bookings map[string]booking.Booking
	nextID   int
	now      time.Time
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{bookings: map[string]booking.Booking{}, now: now}
}

func (f *fakeStore) ListActiveForBarber(_ context.Context, barberID string, from, to time.Time) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range f.bookings {
		if b.BarberID != barberID || !b.Active() {
			continue
		}
		if b.StartTime.Before(to) && b.EndTime().After(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, b booking.Booking) (booking.Booking, error) {
	for _, existing := range f.bookings {
		if existing.BarberID != b.BarberID || !existing.Active() {
			continue
		}
		if b.StartTime.Before(existing.EndTime()) && existing.StartTime.Before(b.EndTime()) {
			return booking.Booking{}, booking.ErrSlotTaken
		}
	}
	f.nextID++
	b.ID = fmt.Sprintf("bkg-%d", f.nextID)
	b.CreatedAt = f.now
	b.UpdatedAt = f.now
	f.bookings[b.ID] = b
	return b, nil
}

func (f *fakeStore) Get(_ context.Context, businessID, bookingID string) (booking.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok || b.BusinessID != businessID {
		return booking.Booking{}, fmt.Errorf("booking %s not found", bookingID)
	}
	return b, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, businessID, bookingID string, status booking.Status) (time.Time, error) {
	b, ok := f.bookings[bookingID]
	if !ok || b.BusinessID != businessID {
		return time.Time{}, fmt.Errorf("booking %s not found", bookingID)
	}
	b.Status = status
	b.UpdatedAt = f.now
	f.bookings[bookingID] = b
	return b.UpdatedAt, nil
}

func (f *fakeStore) ListForCustomer(_ context.Context, customerID string, _ int) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range f.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForBusinessOnDay(_ context.Context, businessID string, from, to time.Time) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range f.bookings {
		if b.BusinessID == businessID && b.StartTime.Before(to) && !b.StartTime.Before(from) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) CountActiveForBusinessBetween(_ context.Context, businessID string, from, to time.Time) (int, error) {
	count := 0
	for _, b := range f.bookings {
		if b.BusinessID == businessID && b.Active() && b.StartTime.Before(to) && !b.StartTime.Before(from) {
			count++
		}
	}
	return count, nil
}

type fakePlans struct {
	name string
}

func (f fakePlans) PlanName(_ context.Context, _ string) (string, error) {
	return f.name, nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
