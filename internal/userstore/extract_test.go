package userstore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/flowforge-dev/flowmigrate/internal/model"
)

func TestGroupByUser(t *testing.T) {
	sessions := []model.Session{
		session("20250115-001", 142, "bob", 60, "2025-01-15", "infra"),
		session("20250115-002", 142, "alice", 90, "2025-01-15", "api work"),
		session("20250116-001", 143, "alice", 30, "2025-01-16", "review"),
		session("20250114-001", 143, "alice", 15, "2025-01-14", "triage"),
	}

	groups := GroupByUser(sessions)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	alice := groups[0]
	if alice.User != "alice" {
		t.Fatalf("groups not sorted by user: first is %q", alice.User)
	}
	if alice.TotalMinutes != 135 || len(alice.Sessions) != 3 {
		t.Errorf("alice total=%d sessions=%d, want 135/3", alice.TotalMinutes, len(alice.Sessions))
	}
	if !reflect.DeepEqual(alice.TaskIDs, []int{142, 143}) {
		t.Errorf("alice task IDs = %v, want [142 143]", alice.TaskIDs)
	}
	if alice.DateRange.Start != "2025-01-14" || alice.DateRange.End != "2025-01-16" {
		t.Errorf("alice range = %+v", alice.DateRange)
	}

	bob := groups[1]
	if bob.User != "bob" || bob.TotalMinutes != 60 {
		t.Errorf("bob group = %+v", bob)
	}
}

func TestGroupByUserEmpty(t *testing.T) {
	if groups := GroupByUser(nil); len(groups) != 0 {
		t.Errorf("got %d groups from no sessions", len(groups))
	}
}

func TestExtractAll(t *testing.T) {
	root := t.TempDir()
	groups := GroupByUser([]model.Session{
		session("20250115-001", 142, "alice", 90, "2025-01-15", "api work"),
		session("20250115-002", 142, "bob", 60, "2025-01-15", "infra"),
	})

	outcomes, err := ExtractAll(root, groups)
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	if outcomes[0].User != "alice" || outcomes[0].Added != 1 || outcomes[0].TotalMinutes != 90 {
		t.Errorf("alice outcome = %+v", outcomes[0])
	}

	for _, user := range []string{"alice", "bob"} {
		if _, err := os.Stat(StorePath(root, user)); err != nil {
			t.Errorf("store for %s not written: %v", user, err)
		}
	}
}

func TestExtractAllStopsOnCorruptStore(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bob")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, StoreFileName), []byte("oops"), 0o600); err != nil {
		t.Fatal(err)
	}

	groups := GroupByUser([]model.Session{
		session("20250115-001", 142, "alice", 90, "2025-01-15", "api work"),
		session("20250115-002", 142, "bob", 60, "2025-01-15", "infra"),
	})

	outcomes, err := ExtractAll(root, groups)
	if err == nil {
		t.Fatal("ExtractAll() succeeded with a corrupt store in the way")
	}
	// alice sorts first, so her store landed before the failure.
	if len(outcomes) != 1 || outcomes[0].User != "alice" {
		t.Errorf("outcomes = %+v, want alice only", outcomes)
	}
}

func TestReport(t *testing.T) {
	root := t.TempDir()
	if _, err := ExtractAll(root, GroupByUser([]model.Session{
		session("20250115-001", 142, "alice", 90, "2025-01-15", "api work"),
		session("20250115-002", 142, "bob", 30, "2025-01-15", "infra"),
		session("20250116-001", 143, "bob", 30, "2025-01-16", "more infra"),
	})); err != nil {
		t.Fatal(err)
	}

	// An unreadable store downgrades to a warning in a report.
	dir := filepath.Join(root, "mallory")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, StoreFileName), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	rep, err := Report(root)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.UserCount != 2 || rep.TotalMinutes != 150 || rep.SessionCount != 3 {
		t.Errorf("report = %+v, want 2 users / 150 min / 3 sessions", rep)
	}
	if rep.AvgUserMinutes != 75 {
		t.Errorf("avg = %d, want 75", rep.AvgUserMinutes)
	}
	if len(rep.Unreadable) != 1 || rep.Unreadable[0] != "mallory" {
		t.Errorf("unreadable = %v, want [mallory]", rep.Unreadable)
	}
}

func TestReportMissingRoot(t *testing.T) {
	rep, err := Report(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if rep.UserCount != 0 {
		t.Errorf("report on missing root = %+v", rep)
	}
}
