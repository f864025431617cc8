package backup

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
)

// VerifyResult is the structured outcome of checking one backup against
// its manifest. Failures mean the backup cannot be trusted for a restore;
// warnings are advisory and never block one.
type VerifyResult struct {
	Backup       string   `json:"backup"`
	OK           bool     `json:"ok"`
	FilesChecked int      `json:"files_checked"`
	Failures     []string `json:"failures,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Verify checks every backed-up file and the state archive against the
// manifest checksums. All findings land in the result rather than an
// error: a verification that cannot read a file has learned exactly what
// it came to learn.
func Verify(m *model.BackupManifest) *VerifyResult {
	res := &VerifyResult{Backup: m.ID}

	for _, rel := range m.FilesBackedUp {
		path := filepath.Join(m.Path, FilesDir, rel)
		res.FilesChecked++
		if !fsutil.Exists(path) {
			res.Failures = append(res.Failures, fmt.Sprintf("missing from backup: %s", rel))
			continue
		}
		actual, err := fsutil.HashFile(path)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("unreadable: %s: %v", rel, err))
			continue
		}
		if expected := m.Checksums[rel]; actual != expected {
			res.Failures = append(res.Failures,
				fmt.Sprintf("checksum mismatch: %s: expected=%s, actual=%s", rel, expected, actual))
		}
	}

	if m.ArchivePresent {
		archive := filepath.Join(m.Path, ArchiveFile)
		res.FilesChecked++
		switch {
		case !fsutil.Exists(archive):
			res.Failures = append(res.Failures, "state archive missing")
		default:
			if expected, ok := m.Checksums[ArchiveFile]; ok {
				actual, err := fsutil.HashFile(archive)
				if err != nil {
					res.Failures = append(res.Failures, fmt.Sprintf("state archive unreadable: %v", err))
				} else if actual != expected {
					res.Failures = append(res.Failures,
						fmt.Sprintf("checksum mismatch: %s: expected=%s, actual=%s", ArchiveFile, expected, actual))
				}
			}
			if _, err := List(archive); err != nil {
				res.Failures = append(res.Failures, fmt.Sprintf("state archive not listable: %v", err))
			}
		}
	}

	if m.Expired(time.Now()) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("backup expired %s; restore remains possible", m.ExpiresAt.Format(time.RFC3339)))
	}

	res.OK = len(res.Failures) == 0
	return res
}
