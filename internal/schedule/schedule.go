// Package schedule holds the value types for a business's weekly opening
// hours. It has no behavior beyond lookup and validation; slot math lives in
// the availability package.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// WorkingHours is one weekday's operating window. Start and End are "HH:MM"
// wall-clock strings in the business's local timezone. When Open is false the
// window is ignored entirely.
type WorkingHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Open  bool   `json:"is_open"`
}

// Closed is the well-defined result for days off and malformed lookups.
var Closed = WorkingHours{Start: "00:00", End: "00:00", Open: false}

// WeeklySchedule maps the 7 lowercase English weekday names to their hours.
// All 7 keys are always present on a valid schedule.
type WeeklySchedule map[string]WorkingHours

var weekdayKeys = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

// WeekdayKey returns the schedule key for t's calendar date. The weekday is
// taken from t's own location: working hours are local to the shop, so the
// day boundary must be too.
func WeekdayKey(t time.Time) string {
	return weekdayKeys[int(t.Weekday())]
}

// ForWeekday returns the hours for the named weekday. Unknown or malformed
// day names resolve to Closed rather than an error; callers normalize names
// via WeekdayKey.
func (ws WeeklySchedule) ForWeekday(day string) WorkingHours {
	wh, ok := ws[strings.ToLower(strings.TrimSpace(day))]
	if !ok {
		return Closed
	}
	return wh
}

// Validate checks that all 7 weekday keys are present and that every open
// day has a well-formed, non-inverted window.
func (ws WeeklySchedule) Validate() error {
	for _, day := range weekdayKeys {
		wh, ok := ws[day]
		if !ok {
			return fmt.Errorf("schedule missing weekday %q", day)
		}
		if !wh.Open {
			continue
		}
		start, err := ParseClock(wh.Start)
		if err != nil {
			return fmt.Errorf("%s start: %w", day, err)
		}
		end, err := ParseClock(wh.End)
		if err != nil {
			return fmt.Errorf("%s end: %w", day, err)
		}
		if end <= start {
			return fmt.Errorf("%s: end %q not after start %q", day, wh.End, wh.Start)
		}
	}
	return nil
}

// ParseClock parses an "HH:MM" wall-clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// At anchors minutes-since-midnight onto day's calendar date in day's location.
func At(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).
		Add(time.Duration(minutes) * time.Minute)
}

// DefaultWeek is the schedule new businesses start with: weekdays 09:00-18:00,
// Saturday 09:00-15:00, Sunday closed.
func DefaultWeek() WeeklySchedule {
	week := WeeklySchedule{
		"saturday": {Start: "09:00", End: "15:00", Open: true},
		"sunday":   Closed,
	}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday"} {
		week[day] = WorkingHours{Start: "09:00", End: "18:00", Open: true}
	}
	return week
}
