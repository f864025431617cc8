package auditlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "migration.log")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	events := []Event{
		{Event: EventMigrationStarted, Attempt: "a1"},
		{Event: EventLegacyParsed, Attempt: "a1", Sessions: 4, Skipped: 1, Format: "bullet"},
		{Event: EventMigrationComplete, Attempt: "a1", Users: 2, Minutes: 180},
	}
	for _, e := range events {
		if err := logger.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Event != EventMigrationStarted || got[0].Time.IsZero() {
		t.Errorf("first event = %+v, want started with stamped time", got[0])
	}
	if got[1].Sessions != 4 || got[1].Skipped != 1 || got[1].Format != "bullet" {
		t.Errorf("parsed event = %+v", got[1])
	}
	if got[2].Minutes != 180 {
		t.Errorf("complete event = %+v", got[2])
	}
}

func TestAppendDoesNotTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollback-log.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := logger.Append(Event{Event: EventRollbackStarted, Attempt: "a1"}); err != nil {
		t.Fatal(err)
	}

	// A second logger on the same path keeps appending.
	again, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := again.Append(Event{Event: EventRollbackComplete, Attempt: "a2"}); err != nil {
		t.Fatal(err)
	}

	got, err := again.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2 across logger instances", len(got))
	}
	if got[0].Attempt != "a1" || got[1].Attempt != "a2" {
		t.Errorf("events out of order: %+v", got)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "never-written.log"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d events from missing file", len(got))
	}
}

func TestEventTimePreserved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}

	stamp := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	if err := logger.Append(Event{Time: stamp, Event: EventBackupCreated, Backup: "migration-backup-20250601-103000"}); err != nil {
		t.Fatal(err)
	}

	got, err := logger.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].Time.Equal(stamp) {
		t.Errorf("time = %v, want %v preserved", got[0].Time, stamp)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("log line missing trailing newline")
	}
}
