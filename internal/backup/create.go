package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
	"github.com/flowforge-dev/flowmigrate/internal/state"
)

// Create writes a new backup of the project before a migration touches
// it. legacyFiles are project-relative paths; candidates that do not
// exist are skipped, since a project usually keeps its legacy files in
// only one of the known locations. The state directory, when present, is
// archived whole. An empty backup is still a valid rollback point: it
// records that nothing existed.
func Create(projectRoot, backupRoot string, legacyFiles []string, retentionDays int) (*model.BackupManifest, error) {
	now := time.Now().UTC()
	id := IDPrefix + now.Format("20060102-150405")
	dir := filepath.Join(backupRoot, id)

	if err := os.MkdirAll(backupRoot, 0o700); err != nil {
		return nil, fmt.Errorf("creating backup root: %w", err)
	}
	// Backups are immutable once written. A name collision means another
	// backup landed in the same second, so refuse rather than overwrite.
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating backup %s: %w", id, err)
	}

	m := &model.BackupManifest{
		ID:               id,
		Path:             dir,
		BackupTime:       now,
		ExpiresAt:        now.Add(time.Duration(retentionDays) * 24 * time.Hour),
		MigrationVersion: MigrationVersion,
		Checksums:        map[string]string{},
	}

	seen := make(map[string]bool, len(legacyFiles))
	for _, rel := range legacyFiles {
		src := filepath.Join(projectRoot, rel)
		if seen[rel] || !fsutil.Exists(src) {
			continue
		}
		seen[rel] = true
		dst := filepath.Join(dir, FilesDir, rel)
		if err := fsutil.CopyFile(src, dst); err != nil {
			return nil, fmt.Errorf("backing up %s: %w", rel, err)
		}
		sum, err := fsutil.HashFile(dst)
		if err != nil {
			return nil, fmt.Errorf("hashing %s: %w", rel, err)
		}
		m.FilesBackedUp = append(m.FilesBackedUp, rel)
		m.Checksums[rel] = sum
	}
	sort.Strings(m.FilesBackedUp)

	if stateDir := state.Dir(projectRoot); fsutil.Exists(stateDir) {
		archive := filepath.Join(dir, ArchiveFile)
		if err := Pack(stateDir, archive); err != nil {
			return nil, fmt.Errorf("archiving state directory: %w", err)
		}
		sum, err := fsutil.HashFile(archive)
		if err != nil {
			return nil, fmt.Errorf("hashing state archive: %w", err)
		}
		m.Checksums[ArchiveFile] = sum
		m.ArchivePresent = true
	}

	if err := fsutil.WriteJSON(filepath.Join(dir, ManifestFile), m); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	return m, nil
}
