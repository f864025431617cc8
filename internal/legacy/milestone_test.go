package legacy_test

import (
	"path/filepath"
	"testing"

	"github.com/flowforge-dev/flowmigrate/internal/legacy"
)

func TestParseMilestones(t *testing.T) {
	text := `# Milestones

## v2.0 Launch (Due: 2025-02-01)
- Issue #142
- #143
Notes about the launch.

## Cleanup Sprint (due 2025-03-15)
- Issue #150
`
	ms := legacy.ParseMilestones(text)

	if len(ms) != 2 {
		t.Fatalf("milestones = %d, want 2", len(ms))
	}

	first := ms[0]
	if first.Title != "v2.0 Launch" {
		t.Errorf("title = %q, want %q", first.Title, "v2.0 Launch")
	}
	if first.DueDate != "2025-02-01" {
		t.Errorf("due date = %q, want %q", first.DueDate, "2025-02-01")
	}
	if len(first.Tasks) != 2 || first.Tasks[0] != 142 || first.Tasks[1] != 143 {
		t.Errorf("tasks = %v, want [142 143]", first.Tasks)
	}
	if first.Status != "active" {
		t.Errorf("status = %q, want active", first.Status)
	}

	if ms[1].Title != "Cleanup Sprint" || ms[1].DueDate != "2025-03-15" {
		t.Errorf("second milestone = %+v", ms[1])
	}
}

func TestParseMilestonesFlushesLastAtEOF(t *testing.T) {
	text := `## Final Push (Due: 2025-04-01)
- Issue #200
- Issue #201`
	ms := legacy.ParseMilestones(text)
	if len(ms) != 1 {
		t.Fatalf("milestones = %d, want 1 (last milestone must be flushed)", len(ms))
	}
	if len(ms[0].Tasks) != 2 {
		t.Errorf("tasks = %v, want two entries", ms[0].Tasks)
	}
}

func TestParseMilestonesKeepsDuplicateRefs(t *testing.T) {
	text := `## Twice (Due: 2025-05-01)
- Issue #7
- Issue #7
`
	ms := legacy.ParseMilestones(text)
	if len(ms) != 1 {
		t.Fatalf("milestones = %d, want 1", len(ms))
	}
	if len(ms[0].Tasks) != 2 {
		t.Errorf("tasks = %v, want duplicate kept", ms[0].Tasks)
	}
}

func TestParseMilestonesHeaderWithoutDueClosesOpen(t *testing.T) {
	text := `## Release (Due: 2025-06-01)
- Issue #1

## Random Notes
- Issue #2
`
	ms := legacy.ParseMilestones(text)
	if len(ms) != 1 {
		t.Fatalf("milestones = %d, want 1", len(ms))
	}
	// #2 sits under a non-milestone header and must not attach.
	if len(ms[0].Tasks) != 1 || ms[0].Tasks[0] != 1 {
		t.Errorf("tasks = %v, want [1]", ms[0].Tasks)
	}
}

func TestLoadMilestonesMissingFile(t *testing.T) {
	ms, err := legacy.LoadMilestones(filepath.Join(t.TempDir(), "MILESTONES.md"))
	if err != nil {
		t.Fatalf("LoadMilestones on missing file: %v", err)
	}
	if len(ms) != 0 {
		t.Errorf("milestones = %d, want 0", len(ms))
	}
}
