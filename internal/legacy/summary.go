package legacy

import (
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/model"
)

// Summarize computes a billing summary keyed by user and by task over the
// given sessions. This is a pure read-side computation: the input records
// are never mutated.
func Summarize(sessions []model.Session) model.BillingSummary {
	sum := model.BillingSummary{
		GeneratedAt: time.Now().UTC(),
		UserMinutes: make(map[string]int),
		TaskMinutes: make(map[int]int),
	}
	for _, s := range sessions {
		sum.TotalMinutes += s.DurationMinutes
		sum.SessionCount++
		sum.UserMinutes[s.User] += s.DurationMinutes
		sum.TaskMinutes[s.TaskID] += s.DurationMinutes
	}
	return sum
}
