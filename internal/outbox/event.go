package outbox

import (
	"encoding/json"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics the booking lifecycle emits.
const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingConfirmed = "booking.confirmed.v1"
	EventBookingCompleted = "booking.completed.v1"
	EventBookingCancelled = "booking.cancelled.v1"
	EventPlanChanged      = "billing.plan_changed.v1"
)

type bookingPayload struct {
	BookingID       string    `json:"booking_id"`
	BusinessID      string    `json:"business_id"`
	BarberID        string    `json:"barber_id"`
	CustomerID      string    `json:"customer_id"`
	ServiceID       string    `json:"service_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
}

// BookingEvent builds the envelope for a lifecycle change. The event type is
// derived from the booking's (new) status.
func BookingEvent(b booking.Booking) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:       b.ID,
		BusinessID:      b.BusinessID,
		BarberID:        b.BarberID,
		CustomerID:      b.CustomerID,
		ServiceID:       b.ServiceID,
		StartTime:       b.StartTime,
		DurationMinutes: b.DurationMinutes,
		Status:          string(b.Status),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventTypeFor(b.Status),
		Payload:       payload,
	}, nil
}

func eventTypeFor(status booking.Status) string {
	switch status {
	case booking.StatusConfirmed:
		return EventBookingConfirmed
	case booking.StatusCompleted:
		return EventBookingCompleted
	case booking.StatusCancelled:
		return EventBookingCancelled
	default:
		return EventBookingCreated
	}
}

type planPayload struct {
	BusinessID string `json:"business_id"`
	Plan       string `json:"plan"`
}

// PlanChangedEvent builds the envelope for a subscription plan change.
func PlanChangedEvent(businessID, plan string) (Event, error) {
	payload, err := json.Marshal(planPayload{BusinessID: businessID, Plan: plan})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "business",
		AggregateID:   businessID,
		EventType:     EventPlanChanged,
		Payload:       payload,
	}, nil
}
