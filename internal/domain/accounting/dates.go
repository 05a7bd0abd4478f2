package accounting

import "time"

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// inHalfOpen reports start <= t < end
func inHalfOpen(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
