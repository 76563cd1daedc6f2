package util

import "time"

// PreviousMonth returns the year and month preceding the given one, adapted
// from the teacher's month-bucketing helper.
func PreviousMonth(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// LocalNoon pins a date-only value to local noon UTC to avoid timezone-day
// drift when a raw source only gives a date (spec.md §3 invariant 3).
func LocalNoon(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days between two instants,
// truncating to calendar days.
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	return int(d.Hours() / 24)
}
