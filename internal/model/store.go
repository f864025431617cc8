package model

import "time"

// DateRange is the span of calendar dates covered by a store.
type DateRange struct {
	Start string `json:"start"` // 2006-01-02
	End   string `json:"end"`
}

// UserStore is the per-user durable output of extraction, one JSON file per
// user. Sessions are merged idempotently by ID; TotalMinutes must equal the
// sum of DurationMinutes across Sessions after every write.
type UserStore struct {
	User         string    `json:"user"`
	Sessions     []Session `json:"sessions"`
	TotalMinutes int       `json:"total_minutes"`
	SessionCount int       `json:"session_count"`
	DateRange    DateRange `json:"date_range"`
	LastUpdated  time.Time `json:"last_updated"`
}

// SumMinutes adds up the session durations. Callers compare this against
// TotalMinutes to detect drift.
func (s *UserStore) SumMinutes() int {
	total := 0
	for _, sess := range s.Sessions {
		total += sess.DurationMinutes
	}
	return total
}

// BillingSummary aggregates billable time across parsed sessions, keyed by
// user handle and by task ID. Computed read-side; never written back into
// session records.
type BillingSummary struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	TotalMinutes int            `json:"total_minutes"`
	SessionCount int            `json:"session_count"`
	UserMinutes  map[string]int `json:"user_minutes"`
	TaskMinutes  map[int]int    `json:"task_minutes"`
}
