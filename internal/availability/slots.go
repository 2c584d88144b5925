// Package availability computes the bookable time slots for one barber on
// one calendar date. It is a pure function over data the caller has already
// fetched; it performs no I/O and holds no state.
package availability

import (
	"time"

	"github.com/barberbook/barberbook/internal/schedule"
)

// Interval is a half-open occupied span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate appointment start time. Slots are ephemeral: computed
// fresh on every query, never persisted. Unavailable slots are kept in the
// result so clients can render them greyed out.
type Slot struct {
	Time      string    `json:"time"`
	Start     time.Time `json:"-"`
	Available bool      `json:"available"`
}

// Compute returns the ordered slot list for the calendar date of day (in
// day's location), given that weekday's working hours, the requested service
// duration, the barber's existing non-cancelled bookings, the slot step, and
// the earliest permissible start (now + the advance-booking floor).
//
// Candidates begin at the opening time and advance by step while the start
// remains strictly before closing time. A slot whose service would run past
// closing is still generated; only overlap with an existing booking or
// starting before earliest makes it unavailable. Overlap is half-open:
// a slot ending exactly when a booking starts does not collide.
func Compute(day time.Time, hours schedule.WorkingHours, duration, step time.Duration, busy []Interval, earliest time.Time) []Slot {
	if !hours.Open {
		return nil
	}
	if duration <= 0 || step <= 0 {
		return nil
	}

	openMin, err := schedule.ParseClock(hours.Start)
	if err != nil {
		return nil
	}
	closeMin, err := schedule.ParseClock(hours.End)
	if err != nil || closeMin <= openMin {
		return nil
	}

	stepMin := int(step / time.Minute)
	if stepMin <= 0 {
		return nil
	}

	var slots []Slot
	for m := openMin; m < closeMin; m += stepMin {
		start := schedule.At(day, m)
		end := start.Add(duration)

		available := !start.Before(earliest) && !overlapsAny(start, end, busy)
		slots = append(slots, Slot{
			Time:      start.Format("15:04"),
			Start:     start,
			Available: available,
		})
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
