// Package state reads and writes the .flowforge project state directory:
// the shared task and milestone files, the billing summary, report
// artifacts, and the migration stamp. The shared files are edited in
// place through gjson/sjson so fields owned by other tooling survive a
// migration byte-for-byte.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
)

const (
	// DirName is the state directory at the project root.
	DirName = ".flowforge"

	tasksFile      = "tasks.json"
	milestonesFile = "milestones.json"
	billingDir     = "billing"
	billingFile    = "time-tracking.json"
	usersDir       = "users"
	reportsDir     = "reports"
	logFile        = "migration.log"

	// legacyMarker is the in-progress flag the retired migration tool
	// left at the state root when it was interrupted.
	legacyMarker = ".migration-in-progress"
)

// Dir returns the state directory under the project root.
func Dir(root string) string { return filepath.Join(root, DirName) }

// TasksPath returns the shared task file.
func TasksPath(root string) string { return filepath.Join(Dir(root), tasksFile) }

// MilestonesPath returns the shared milestone file.
func MilestonesPath(root string) string { return filepath.Join(Dir(root), milestonesFile) }

// BillingPath returns the combined billing summary file.
func BillingPath(root string) string {
	return filepath.Join(Dir(root), billingDir, billingFile)
}

// UsersRoot returns the per-user isolation root.
func UsersRoot(root string) string { return filepath.Join(Dir(root), usersDir) }

// ReportsDir returns the report artifact directory.
func ReportsDir(root string) string { return filepath.Join(Dir(root), reportsDir) }

// LogPath returns the migration audit log.
func LogPath(root string) string { return filepath.Join(Dir(root), logFile) }

// LegacyMarkerPath returns the retired tool's in-progress marker.
func LegacyMarkerPath(root string) string { return filepath.Join(Dir(root), legacyMarker) }

// MigrationStamp records a completed migration inside tasks.json, next to
// the task list, so any tool reading the shared file can tell the data
// has been migrated and from which backup it can be rolled back.
type MigrationStamp struct {
	Version     string    `json:"version"`
	CompletedAt time.Time `json:"completed_at"`
	Backup      string    `json:"backup"`
	Sessions    int       `json:"sessions"`
	Users       int       `json:"users"`
}

// readShared loads one of the shared JSON files, supplying an empty
// skeleton when the file does not exist yet. A file that exists but is
// not valid JSON is a hard error naming the path: guessing at a broken
// shared file would risk the data other tooling keeps in it.
func readShared(path, skeleton string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []byte(skeleton), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return raw, nil
}

// writeShared pretty-prints and atomically replaces a shared JSON file.
func writeShared(path string, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting %s: %w", path, err)
	}
	buf.WriteByte('\n')
	return fsutil.WriteFileAtomic(path, buf.Bytes(), 0o600)
}

// MergeTasks appends imported tasks to tasks.json, keyed by task ID.
// Tasks already present win: the migration fills gaps, it never
// overwrites what the current tooling tracks. Fields outside "tasks"
// are left untouched.
func MergeTasks(root string, incoming []model.Task) (added int, err error) {
	path := TasksPath(root)
	raw, err := readShared(path, `{"tasks": []}`)
	if err != nil {
		return 0, err
	}

	existing := make(map[int]bool)
	gjson.GetBytes(raw, "tasks").ForEach(func(_, task gjson.Result) bool {
		existing[int(task.Get("id").Int())] = true
		return true
	})

	for _, task := range incoming {
		if existing[task.ID] {
			continue
		}
		raw, err = sjson.SetBytes(raw, "tasks.-1", task)
		if err != nil {
			return added, fmt.Errorf("appending task %d: %w", task.ID, err)
		}
		existing[task.ID] = true
		added++
	}

	return added, writeShared(path, raw)
}

// ReadTasks returns the tasks recorded in the shared task file.
func ReadTasks(root string) ([]model.Task, error) {
	raw, err := readShared(TasksPath(root), `{"tasks": []}`)
	if err != nil {
		return nil, err
	}
	var tasks []model.Task
	if res := gjson.GetBytes(raw, "tasks"); res.Exists() {
		if err := json.Unmarshal([]byte(res.Raw), &tasks); err != nil {
			return nil, fmt.Errorf("decoding tasks in %s: %w", TasksPath(root), err)
		}
	}
	return tasks, nil
}

// MergeMilestones appends imported milestones to milestones.json, keyed
// by title. Existing milestones win, matching MergeTasks.
func MergeMilestones(root string, incoming []model.Milestone) (added int, err error) {
	path := MilestonesPath(root)
	raw, err := readShared(path, `{"milestones": []}`)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool)
	gjson.GetBytes(raw, "milestones").ForEach(func(_, ms gjson.Result) bool {
		existing[ms.Get("title").String()] = true
		return true
	})

	for _, ms := range incoming {
		if existing[ms.Title] {
			continue
		}
		raw, err = sjson.SetBytes(raw, "milestones.-1", ms)
		if err != nil {
			return added, fmt.Errorf("appending milestone %q: %w", ms.Title, err)
		}
		existing[ms.Title] = true
		added++
	}

	return added, writeShared(path, raw)
}

// WriteBilling replaces the combined billing summary.
func WriteBilling(root string, summary model.BillingSummary) error {
	return fsutil.WriteJSON(BillingPath(root), summary)
}

// SetStamp records a completed migration in tasks.json without touching
// anything else in the file.
func SetStamp(root string, stamp MigrationStamp) error {
	path := TasksPath(root)
	raw, err := readShared(path, `{"tasks": []}`)
	if err != nil {
		return err
	}
	raw, err = sjson.SetBytes(raw, "migration", stamp)
	if err != nil {
		return fmt.Errorf("setting migration stamp: %w", err)
	}
	return writeShared(path, raw)
}

// ClearStamp removes the migration stamp from tasks.json, leaving the
// rest of the file as it was. Clearing a file without a stamp is a no-op.
func ClearStamp(root string) error {
	path := TasksPath(root)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if !gjson.GetBytes(raw, "migration").Exists() {
		return nil
	}
	raw, err = sjson.DeleteBytes(raw, "migration")
	if err != nil {
		return fmt.Errorf("clearing migration stamp: %w", err)
	}
	return writeShared(path, raw)
}

// ReadStamp returns the migration stamp if one is recorded.
func ReadStamp(root string) (*MigrationStamp, error) {
	raw, err := os.ReadFile(TasksPath(root))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", TasksPath(root), err)
	}
	res := gjson.GetBytes(raw, "migration")
	if !res.Exists() {
		return nil, nil
	}
	var stamp MigrationStamp
	if err := json.Unmarshal([]byte(res.Raw), &stamp); err != nil {
		return nil, fmt.Errorf("decoding migration stamp: %w", err)
	}
	return &stamp, nil
}

// WriteReport writes a migration report artifact and returns its path.
func WriteReport(root string, report any, at time.Time) (string, error) {
	name := fmt.Sprintf("migration-report-%s.json", at.UTC().Format("20060102-150405"))
	path := filepath.Join(ReportsDir(root), name)
	if err := fsutil.WriteJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// HasLegacyMarker reports whether the retired tool's in-progress marker
// is still present.
func HasLegacyMarker(root string) bool {
	return fsutil.Exists(LegacyMarkerPath(root))
}
