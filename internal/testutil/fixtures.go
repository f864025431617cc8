// Package testutil provides test helper utilities for flowmigrate tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// BulletProject returns file contents for a project whose legacy records
// use the date-header and bullet format, plus milestone and TODO files.
func BulletProject() map[string]string {
	return map[string]string{
		"TIME_TRACKING.md": `# Time Tracking

## 2025-01-15
- #142 [1.5h] API endpoint work @alice
- #143 [90m] Code review @alice

## 2025-01-16
- #142 [2h] More API work @bob
`,
		"MILESTONES.md": `# Milestones

## Beta Release (Due: 2025-02-01)
- #142 API endpoint work
- #143 Code review
`,
		"TODO.md": `# TODO

- [x] #142 Build the API endpoint
- [~] #143 Review open PRs
- [ ] #150 Write migration notes
`,
	}
}

// TableProject returns file contents for a project whose legacy records
// use the pipe-table export format.
func TableProject() map[string]string {
	return map[string]string{
		filepath.Join("docs", "TIME_TRACKING.md"): `# Exported Hours

| Date | Issue | Start | End | Hours | ? | Description |
|------|-------|-------|-----|-------|---|-------------|
| 2025-01-15 | #142 | 09:00 | 10:30 | 1.5 | x | API endpoint work @alice |
| 2025-01-15 | #143 | 11:00 | 12:30 | | | Code review @alice |
`,
	}
}
