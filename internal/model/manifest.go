package model

import "time"

// BackupManifest describes one rollback point: which files were backed up,
// their content hashes, and whether a full-state archive sits alongside.
// The manifest lives next to the backed-up content as manifest.json.
type BackupManifest struct {
	ID               string            `json:"id"`
	Path             string            `json:"-"` // resolved when the manifest is loaded
	BackupTime       time.Time         `json:"backup_time"`
	ExpiresAt        time.Time         `json:"expires_at"`
	MigrationVersion string            `json:"migration_version"`
	FilesBackedUp    []string          `json:"files_backed_up"`
	Checksums        map[string]string `json:"checksums"` // relative path -> sha256 hex
	ArchivePresent   bool              `json:"archive_present"`
}

// Expired reports whether the backup is past its advisory expiry at the
// given instant. Expiry never blocks use of a backup.
func (m *BackupManifest) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}
