// Package booking defines the appointment record and its lifecycle state
// machine. Persistence belongs to the storage package; policy (clocks,
// cancellation windows) to the service package.
package booking

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Booking is an appointment for one barber, one customer, one service.
// Records are never deleted; they only change status, so CreatedAt/UpdatedAt
// double as an audit trail.
type Booking struct {
	ID              string
	BusinessID      string
	BarberID        string
	CustomerID      string
	ServiceID       string
	StartTime       time.Time
	DurationMinutes int
	Status          Status
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EndTime is the exclusive end of the occupied interval [StartTime, EndTime).
func (b Booking) EndTime() time.Time {
	return b.StartTime.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Active reports whether the booking still occupies its time interval.
// Cancelled bookings release the interval; completed ones are in the past by
// definition but remain non-cancelled for overlap purposes.
func (b Booking) Active() bool {
	return b.Status != StatusCancelled
}
