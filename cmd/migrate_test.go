package cmd

import (
	"path/filepath"
	"testing"

	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/testutil"
)

func TestFirstExisting(t *testing.T) {
	dir := testutil.TempProject(t, testutil.TableProject())

	path, found := firstExisting(dir, config.DefaultConfig().Legacy.TimeTracking)
	if !found {
		t.Fatal("firstExisting() found = false, want true")
	}
	want := filepath.Join(dir, "docs", "TIME_TRACKING.md")
	if path != want {
		t.Errorf("firstExisting() path = %q, want %q", path, want)
	}
}

func TestFirstExistingNoneFallsBackToFirstCandidate(t *testing.T) {
	dir := t.TempDir()

	path, found := firstExisting(dir, []string{"TIME_TRACKING.md", "docs/TIME_TRACKING.md"})
	if found {
		t.Fatal("firstExisting() found = true, want false")
	}
	if path != filepath.Join(dir, "TIME_TRACKING.md") {
		t.Errorf("firstExisting() path = %q, want first candidate", path)
	}
}

func TestAllCandidates(t *testing.T) {
	cfg := config.DefaultConfig()
	all := allCandidates(cfg)

	seen := make(map[string]bool, len(all))
	for _, c := range all {
		if seen[c] {
			t.Errorf("allCandidates() repeats %q", c)
		}
		seen[c] = true
	}
	for _, want := range []string{"TIME_TRACKING.md", "MILESTONES.md", "TODO.md"} {
		if !seen[want] {
			t.Errorf("allCandidates() missing %q", want)
		}
	}
}

// Every file the conventional layouts place in a project must be covered
// by the default backup candidate set.
func TestDefaultCandidatesCoverConventionalLayouts(t *testing.T) {
	covered := make(map[string]bool)
	for _, c := range allCandidates(config.DefaultConfig()) {
		covered[c] = true
	}

	for name, files := range map[string]map[string]string{
		"bullet": testutil.BulletProject(),
		"table":  testutil.TableProject(),
	} {
		for rel := range files {
			if !covered[rel] {
				t.Errorf("%s layout file %q not in default candidates", name, rel)
			}
		}
	}
}
