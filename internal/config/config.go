// Package config handles reading .flowforge/migrate.yaml.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .flowforge/migrate.yaml.
type Config struct {
	Version int `yaml:"version"`
	// DefaultUser is attributed to table rows that carry no @handle.
	// Empty means such rows fall back to "unknown".
	DefaultUser string       `yaml:"default_user"`
	Legacy      LegacyConfig `yaml:"legacy"`
	Backup      BackupConfig `yaml:"backup"`
	Verbose     bool         `yaml:"verbose"`
}

// LegacyConfig lists candidate locations for each legacy input file,
// relative to the project root. The first existing candidate wins.
type LegacyConfig struct {
	TimeTracking []string `yaml:"time_tracking"`
	Milestones   []string `yaml:"milestones"`
	Todo         []string `yaml:"todo"`
}

// BackupConfig controls where backups land and how long they live.
type BackupConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

const configDir = ".flowforge"
const configFile = "migrate.yaml"

// DefaultBackupDir is the backup root relative to the project. It sits
// outside the state directory so restoring state can replace .flowforge/
// wholesale without touching the backups.
const DefaultBackupDir = ".flowforge-backups"

// DefaultRetentionDays is how long backups stay eligible before pruning.
const DefaultRetentionDays = 30

// DefaultConfig returns a Config populated with the standard project layout.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Legacy: LegacyConfig{
			TimeTracking: []string{"TIME_TRACKING.md", filepath.Join("docs", "TIME_TRACKING.md")},
			Milestones:   []string{"MILESTONES.md", filepath.Join("docs", "MILESTONES.md")},
			Todo:         []string{"TODO.md", filepath.Join("docs", "TODO.md")},
		},
		Backup: BackupConfig{
			Dir:           DefaultBackupDir,
			RetentionDays: DefaultRetentionDays,
		},
	}
}

// Load reads .flowforge/migrate.yaml from the given project directory.
// A missing file is not an error and yields the defaults. A file that
// exists but does not parse is a hard error.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("no migrate.yaml, using defaults", "path", path)
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w\nTip: delete the file to fall back to defaults", path, err)
	}

	// Backfill zero-value fields so a partial file still yields a usable
	// Config.
	def := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = def.Version
	}
	if len(cfg.Legacy.TimeTracking) == 0 {
		cfg.Legacy.TimeTracking = def.Legacy.TimeTracking
	}
	if len(cfg.Legacy.Milestones) == 0 {
		cfg.Legacy.Milestones = def.Legacy.Milestones
	}
	if len(cfg.Legacy.Todo) == 0 {
		cfg.Legacy.Todo = def.Legacy.Todo
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = def.Backup.Dir
	}
	if cfg.Backup.RetentionDays == 0 {
		cfg.Backup.RetentionDays = def.Backup.RetentionDays
	}

	return &cfg, nil
}

// BackupRoot resolves the configured backup directory against the project
// root unless it is already absolute.
func (c *Config) BackupRoot(dir string) string {
	if filepath.IsAbs(c.Backup.Dir) {
		return c.Backup.Dir
	}
	return filepath.Join(dir, c.Backup.Dir)
}
