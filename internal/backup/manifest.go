// Package backup creates pre-migration backups and rolls a project back
// to them. A backup is a directory under the backup root holding copies
// of the legacy input files, a tar.gz snapshot of the state directory,
// and a manifest with sha256 checksums for everything. Rollback is a
// staged state machine that checkpoints the current state before touching
// anything, so a failed restore can itself be undone.
package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flowforge-dev/flowmigrate/internal/model"
)

const (
	// ManifestFile sits inside each backup directory.
	ManifestFile = "manifest.json"
	// FilesDir holds verbatim copies of the backed-up legacy files.
	FilesDir = "files"
	// ArchiveFile is the tar.gz snapshot of the state directory.
	ArchiveFile = "state.tar.gz"
	// RollbackLogFile records every rollback attempt against this root.
	RollbackLogFile = "rollback-log.jsonl"

	// IDPrefix starts every backup directory name.
	IDPrefix = "migration-backup-"

	// MigrationVersion is stamped into manifests and the migration stamp
	// so a rollback can tell which tool wrote the backup.
	MigrationVersion = "1.0.0"

	checkpointDir = ".checkpoint"
)

// Load reads the manifest of one backup by ID. The returned manifest's
// Path points at the backup directory it was actually loaded from.
func Load(backupRoot, id string) (*model.BackupManifest, error) {
	dir := filepath.Join(backupRoot, id)
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNoBackups, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest for %s: %w", id, err)
	}

	var m model.BackupManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest for %s: %w", id, err)
	}
	m.Path = dir
	if m.ID == "" {
		m.ID = id
	}
	return &m, nil
}

// Discover lists every readable backup under the root, newest first.
// Entries whose manifest is missing or unparseable are skipped with a
// warning: one damaged backup must not hide the others.
func Discover(backupRoot string) ([]model.BackupManifest, error) {
	entries, err := os.ReadDir(backupRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing backups in %s: %w", backupRoot, err)
	}

	var found []model.BackupManifest
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), IDPrefix) {
			continue
		}
		m, err := Load(backupRoot, e.Name())
		if err != nil {
			slog.Warn("skipping unreadable backup", "backup", e.Name(), "error", err)
			continue
		}
		found = append(found, *m)
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].BackupTime.After(found[j].BackupTime)
	})
	return found, nil
}

// Newest returns the most recent readable backup, or ErrNoBackups.
func Newest(backupRoot string) (*model.BackupManifest, error) {
	found, err := Discover(backupRoot)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoBackups, backupRoot)
	}
	return &found[0], nil
}
