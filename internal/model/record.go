package model

import "time"

// Provenance tags recorded in the Source field of migrated records.
const (
	SourceLegacyText = "migrated-from-legacy-text"
	SourceTodo       = "migrated-from-todo"
)

// Task status values mapped from the three-symbol legacy markers.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

// MilestoneActive is the default status assigned to migrated milestones.
const MilestoneActive = "active"

// Session is one unit of billable work recovered from legacy text.
// DurationMinutes is always minutes, whatever unit the source used.
type Session struct {
	ID              string    `json:"id"`
	TaskID          int       `json:"task_id"`
	User            string    `json:"user"`
	DurationMinutes int       `json:"duration_minutes"`
	Description     string    `json:"description"`
	Date            string    `json:"date"` // 2006-01-02
	Timestamp       time.Time `json:"timestamp"`
	Source          string    `json:"source"`
}

// Task is a unit of planned work carried over as-is from the legacy list.
type Task struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Milestone is a dated grouping of tasks. Tasks keeps source order and may
// contain duplicates if the source referenced an issue twice.
type Milestone struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"` // 2006-01-02
	Tasks   []int  `json:"tasks"`
	Status  string `json:"status"`
}
