package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/auditlog"
)

// Prune removes every backup past its expiry and returns the IDs
// removed. Expiry is advisory for restores but binding for pruning.
func Prune(backupRoot string, now time.Time) ([]string, error) {
	found, err := Discover(backupRoot)
	if err != nil {
		return nil, err
	}

	logger, err := auditlog.NewLogger(filepath.Join(backupRoot, RollbackLogFile))
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, m := range found {
		if !m.Expired(now) {
			continue
		}
		if err := os.RemoveAll(m.Path); err != nil {
			return removed, fmt.Errorf("pruning %s: %w", m.ID, err)
		}
		removed = append(removed, m.ID)
		if err := logger.Append(auditlog.Event{Event: auditlog.EventBackupPruned, Backup: m.ID}); err != nil {
			slog.Warn("could not log prune", "backup", m.ID, "error", err)
		}
	}
	return removed, nil
}

// Remove deletes one backup by ID regardless of expiry.
func Remove(backupRoot, id string) error {
	m, err := Load(backupRoot, id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(m.Path); err != nil {
		return fmt.Errorf("removing %s: %w", id, err)
	}

	logger, err := auditlog.NewLogger(filepath.Join(backupRoot, RollbackLogFile))
	if err != nil {
		return err
	}
	if err := logger.Append(auditlog.Event{Event: auditlog.EventBackupPruned, Backup: id}); err != nil {
		slog.Warn("could not log removal", "backup", id, "error", err)
	}
	return nil
}
