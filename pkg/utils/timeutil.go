package utils

import (
	"time"
)

var monthLabels = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// MonthLabel returns the short month name for a zero-based calendar
// month index. Out-of-range values wrap.
func MonthLabel(idx int) string {
	idx %= 12
	if idx < 0 {
		idx += 12
	}
	return monthLabels[idx]
}

// CompletedMonth returns the first day of the most recently completed
// calendar month relative to t, in t's location.
func CompletedMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, -1, 0)
}

// MonthsBack returns the first day of the month n months before t's month.
func MonthsBack(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, -n, 0)
}
