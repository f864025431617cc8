package legacy

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/model"
)

var (
	taskLineRe  = regexp.MustCompile(`^[-*]\s*\[([ xX~])\]\s*(.*)$`)
	taskIssueRe = regexp.MustCompile(`^(?:[Ii]ssue\s*)?#(\d+)\s*[-:]?\s*(.*)$`)
)

// LoadTasks parses the legacy task list at path. Missing file yields an
// empty list. The second return is the count of checkbox lines that failed
// the grammar.
func LoadTasks(path string) ([]model.Task, int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("legacy task file not found", "path", path)
		return []model.Task{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	tasks, skipped := ParseTasks(string(data))
	slog.Debug("parsed legacy task file", "path", path, "tasks", len(tasks), "skipped", skipped)
	return tasks, skipped, nil
}

// ParseTasks parses checkbox task lines. The three-way marker maps
// unchecked to pending, checked to completed, and "~" to in_progress.
// Checkbox lines without an issue reference are skipped and counted.
func ParseTasks(text string) ([]model.Task, int) {
	tasks := []model.Task{}
	skipped := 0
	now := time.Now().UTC()

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		m := taskLineRe.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		im := taskIssueRe.FindStringSubmatch(strings.TrimSpace(m[2]))
		if im == nil {
			skipped++
			continue
		}
		id, _ := strconv.Atoi(im[1])
		title := strings.TrimSpace(im[2])
		if title == "" {
			title = fmt.Sprintf("Task #%d", id)
		}
		tasks = append(tasks, model.Task{
			ID:        id,
			Title:     title,
			Status:    markerStatus(m[1]),
			Source:    model.SourceTodo,
			CreatedAt: now,
		})
	}
	return tasks, skipped
}

func markerStatus(marker string) string {
	switch marker {
	case "x", "X":
		return model.TaskCompleted
	case "~":
		return model.TaskInProgress
	default:
		return model.TaskPending
	}
}
