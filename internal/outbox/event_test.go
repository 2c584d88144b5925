package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
)

func TestBookingEventTypeFollowsStatus(t *testing.T) {
	cases := []struct {
		status booking.Status
		want   string
	}{
		{booking.StatusPending, EventBookingCreated},
		{booking.StatusConfirmed, EventBookingConfirmed},
		{booking.StatusCompleted, EventBookingCompleted},
		{booking.StatusCancelled, EventBookingCancelled},
	}
	for _, c := range cases {
		evt, err := BookingEvent(booking.Booking{ID: "bkg-1", Status: c.status})
		if err != nil {
			t.Fatalf("BookingEvent(%s): %v", c.status, err)
		}
		if evt.EventType != c.want {
			t.Fatalf("status %s: got event type %s, want %s", c.status, evt.EventType, c.want)
		}
		if evt.AggregateType != "booking" || evt.AggregateID != "bkg-1" {
			t.Fatalf("unexpected aggregate fields: %+v", evt)
		}
	}
}

func TestBookingEventPayload(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	evt, err := BookingEvent(booking.Booking{
		ID: "bkg-7", BusinessID: "biz-1", BarberID: "barber-1", CustomerID: "cust-1",
		ServiceID: "svc-1", StartTime: start, DurationMinutes: 45, Status: booking.StatusPending,
	})
	if err != nil {
		t.Fatalf("BookingEvent: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(evt.Payload, &got); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if got["booking_id"] != "bkg-7" || got["status"] != "pending" {
		t.Fatalf("unexpected payload: %s", evt.Payload)
	}
	if got["duration_minutes"] != float64(45) {
		t.Fatalf("duration missing from payload: %s", evt.Payload)
	}
}
