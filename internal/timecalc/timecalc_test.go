package timecalc_test

import (
	"testing"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
)

func TestHoursToMinutes(t *testing.T) {
	tests := []struct {
		hours float64
		want  int
	}{
		{0, 0},
		{1, 60},
		{1.5, 90},
		{2, 120},
		{1.25, 75},
		{0.33, 20},  // 19.8 rounds up
		{0.333, 20}, // 19.98 rounds up
		{0.005, 0},  // 0.3 rounds down
	}
	for _, tt := range tests {
		got := timecalc.HoursToMinutes(tt.hours)
		if got != tt.want {
			t.Errorf("HoursToMinutes(%v) = %d, want %d", tt.hours, got, tt.want)
		}
	}
}

func TestSessionID(t *testing.T) {
	tests := []struct {
		date string
		seq  int
		want string
	}{
		{"2025-01-15", 1, "20250115-001"},
		{"2025-01-15", 12, "20250115-012"},
		{"2025-12-31", 123, "20251231-123"},
	}
	for _, tt := range tests {
		got := timecalc.SessionID(tt.date, tt.seq)
		if got != tt.want {
			t.Errorf("SessionID(%q, %d) = %q, want %q", tt.date, tt.seq, got, tt.want)
		}
	}
}

func TestDefaultTimestamp(t *testing.T) {
	got := timecalc.DefaultTimestamp("2025-01-15")
	want := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DefaultTimestamp = %v, want %v", got, want)
	}
}

func TestClockTimestamp(t *testing.T) {
	got := timecalc.ClockTimestamp("2025-01-15", "09:30")
	want := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ClockTimestamp = %v, want %v", got, want)
	}

	// Unparseable clock falls back to noon.
	got = timecalc.ClockTimestamp("2025-01-15", "bogus")
	want = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ClockTimestamp fallback = %v, want %v", got, want)
	}
}

func TestClockSpanMinutes(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"09:00", "10:30", 90},
		{"10:00", "10:00", 0},
		{"23:30", "00:15", 45}, // wraps past midnight
	}
	for _, tt := range tests {
		got, err := timecalc.ClockSpanMinutes(tt.start, tt.end)
		if err != nil {
			t.Fatalf("ClockSpanMinutes(%q, %q): %v", tt.start, tt.end, err)
		}
		if got != tt.want {
			t.Errorf("ClockSpanMinutes(%q, %q) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}

	if _, err := timecalc.ClockSpanMinutes("9am", "10:00"); err == nil {
		t.Error("expected error for malformed start time")
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{60, "1h 0m"},
		{90, "1h 30m"},
		{180, "3h 0m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatMinutes(tt.minutes)
		if got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
