package timecalc

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar-date form used throughout legacy files and
// stores. Lexicographic order equals chronological order.
const DateLayout = "2006-01-02"

// defaultHour is the time-of-day assigned to sessions whose source recorded
// only a date.
const defaultHour = 12

// HoursToMinutes converts a fractional hour value to whole minutes,
// rounding to the nearest minute.
func HoursToMinutes(hours float64) int {
	return int(math.Round(hours * 60))
}

// SessionID derives a session ID from its date and a per-date sequence
// number, e.g. "20250115-003".
func SessionID(date string, seq int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return fmt.Sprintf("unknown-%03d", seq)
	}
	return fmt.Sprintf("%s-%03d", t.Format("20060102"), seq)
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DefaultTimestamp returns the date at the fixed default time-of-day (noon
// UTC), used when the source recorded no clock time.
func DefaultTimestamp(date string) time.Time {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), defaultHour, 0, 0, 0, time.UTC)
}

// ClockTimestamp combines a calendar date with an HH:MM clock time. Falls
// back to the default time-of-day if the clock value does not parse.
func ClockTimestamp(date, clock string) time.Time {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}
	}
	c, err := time.Parse("15:04", clock)
	if err != nil {
		return DefaultTimestamp(date)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC)
}

// ClockSpanMinutes returns the whole minutes between two HH:MM clock times
// on the same day. Spans that cross midnight wrap forward.
func ClockSpanMinutes(start, end string) (int, error) {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", end, err)
	}
	minutes := int(e.Sub(s).Minutes())
	if minutes < 0 {
		minutes += 24 * 60
	}
	return minutes, nil
}

// FormatMinutes formats a minute total as a human-readable string like
// "2h 30m" or "45m".
func FormatMinutes(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
