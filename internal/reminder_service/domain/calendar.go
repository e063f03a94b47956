package domain

import "time"

// Day truncates a timestamp to its UTC calendar date (midnight UTC).
// All cadence arithmetic in the engine happens on Day-normalized values.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// LaterDay returns the later of two calendar dates.
func LaterDay(a, b time.Time) time.Time {
	da, db := Day(a), Day(b)
	if db.After(da) {
		return db
	}
	return da
}
