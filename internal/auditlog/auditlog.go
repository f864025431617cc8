// Package auditlog provides append-only JSONL event logging for migration
// runs and rollback attempts. Every destructive step writes an event before
// and after it runs, so a crashed run leaves a readable trail.
package auditlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event type constants.
const (
	EventMigrationStarted  = "migration_started"
	EventBackupCreated     = "backup_created"
	EventLegacyParsed      = "legacy_parsed"
	EventUsersExtracted    = "users_extracted"
	EventMigrationComplete = "migration_complete"
	EventMigrationFailed   = "migration_failed"
	EventRollbackStarted   = "rollback_started"
	EventRollbackStage     = "rollback_stage"
	EventRollbackComplete  = "rollback_complete"
	EventRollbackFailed    = "rollback_failed"
	EventBackupPruned      = "backup_pruned"
)

// Event is a single structured entry in an audit log.
type Event struct {
	Time     time.Time `json:"time"`
	Event    string    `json:"event"`
	Attempt  string    `json:"attempt,omitempty"`
	Backup   string    `json:"backup,omitempty"`
	Stage    string    `json:"stage,omitempty"`
	Path     string    `json:"path,omitempty"`
	Format   string    `json:"format,omitempty"`
	Sessions int       `json:"sessions,omitempty"`
	Users    int       `json:"users,omitempty"`
	Skipped  int       `json:"skipped,omitempty"`
	Minutes  int       `json:"minutes,omitempty"`
	Error    string    `json:"error,omitempty"`
	Note     string    `json:"note,omitempty"`
}

// Logger writes append-only JSONL events to a log file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that appends to path, creating the parent
// directory if needed. An existing log file is never truncated.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return &Logger{path: path}, nil
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Append writes a single Event as one JSON line. A zero Time is set to
// time.Now().UTC(). The file is opened in append mode and closed again so
// a crash between events loses at most the event being written.
func (l *Logger) Append(event Event) error {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}
	return nil
}

// ReadAll reads and parses every event in the log file. A missing file
// yields an empty slice, not an error.
func (l *Logger) ReadAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return events, nil
}
