package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, ".flowforge"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".flowforge", "migrate.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backup.Dir != DefaultBackupDir || cfg.Backup.RetentionDays != DefaultRetentionDays {
		t.Errorf("backup defaults = %+v", cfg.Backup)
	}
	if len(cfg.Legacy.TimeTracking) != 2 || cfg.Legacy.TimeTracking[0] != "TIME_TRACKING.md" {
		t.Errorf("legacy candidates = %v", cfg.Legacy.TimeTracking)
	}
	if cfg.DefaultUser != "" {
		t.Errorf("DefaultUser = %q, want empty", cfg.DefaultUser)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
version: 1
default_user: alice
legacy:
  time_tracking:
    - notes/HOURS.md
backup:
  retention_days: 7
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultUser != "alice" {
		t.Errorf("DefaultUser = %q, want alice", cfg.DefaultUser)
	}
	if len(cfg.Legacy.TimeTracking) != 1 || cfg.Legacy.TimeTracking[0] != "notes/HOURS.md" {
		t.Errorf("time tracking candidates = %v", cfg.Legacy.TimeTracking)
	}
	if cfg.Backup.RetentionDays != 7 {
		t.Errorf("retention = %d, want 7", cfg.Backup.RetentionDays)
	}
	// Unset sections keep their defaults.
	if cfg.Backup.Dir != DefaultBackupDir {
		t.Errorf("backup dir = %q, want default", cfg.Backup.Dir)
	}
	if len(cfg.Legacy.Milestones) != 2 {
		t.Errorf("milestones candidates = %v", cfg.Legacy.Milestones)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "backup: [not: a: mapping")

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() succeeded on malformed YAML")
	}
	if !strings.Contains(err.Error(), "migrate.yaml") {
		t.Errorf("error should name the file, got %q", err)
	}
}

func TestBackupRoot(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.BackupRoot("/proj"); got != filepath.Join("/proj", DefaultBackupDir) {
		t.Errorf("BackupRoot = %q", got)
	}

	cfg.Backup.Dir = "/var/backups/flowforge"
	if got := cfg.BackupRoot("/proj"); got != "/var/backups/flowforge" {
		t.Errorf("absolute BackupRoot = %q", got)
	}
}
