package legacy_test

import (
	"testing"

	"github.com/flowforge-dev/flowmigrate/internal/legacy"
)

func TestParseTasksStatusMapping(t *testing.T) {
	text := `# TODO
- [ ] #201 Implement login
- [x] #202 Fix header
- [~] #203 Refactor db layer
- [X] #204 Uppercase checked
`
	tasks, skipped := legacy.ParseTasks(text)

	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(tasks) != 4 {
		t.Fatalf("tasks = %d, want 4", len(tasks))
	}

	wantStatus := []string{"pending", "completed", "in_progress", "completed"}
	for i, task := range tasks {
		if task.Status != wantStatus[i] {
			t.Errorf("task %d status = %q, want %q", i, task.Status, wantStatus[i])
		}
		if task.Source != "migrated-from-todo" {
			t.Errorf("task %d source = %q", i, task.Source)
		}
		if task.CreatedAt.IsZero() {
			t.Errorf("task %d has zero CreatedAt", i)
		}
	}

	if tasks[0].ID != 201 || tasks[0].Title != "Implement login" {
		t.Errorf("task 0 = %+v", tasks[0])
	}
}

func TestParseTasksSynthesizedTitle(t *testing.T) {
	tasks, _ := legacy.ParseTasks("- [ ] #301\n")
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	if tasks[0].Title != "Task #301" {
		t.Errorf("title = %q, want %q", tasks[0].Title, "Task #301")
	}
}

func TestParseTasksSkipsCheckboxWithoutIssue(t *testing.T) {
	text := `- [ ] no issue reference here
- [x] #400 Real task
plain prose line
`
	tasks, skipped := legacy.ParseTasks(text)
	if len(tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}
