package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/state"
)

// checkpointManifest records what a safety checkpoint captured. It is
// written last, so its presence means the checkpoint is complete and
// usable; a crash mid-checkpoint leaves no manifest and the partial copy
// is never trusted.
type checkpointManifest struct {
	CreatedAt    time.Time `json:"created_at"`
	Attempt      string    `json:"attempt"`
	StatePresent bool      `json:"state_present"`
	Files        []string  `json:"files"`
	Absent       []string  `json:"absent"`
}

const checkpointManifestFile = "checkpoint.json"

// writeCheckpoint snapshots everything the rollback is about to touch:
// the state directory and each target file, with a record of targets that
// do not currently exist so a checkpoint restore can remove them again.
func writeCheckpoint(projectRoot, backupRoot, attempt string, targets []string) error {
	dir := filepath.Join(backupRoot, checkpointDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing previous checkpoint: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating checkpoint: %w", err)
	}

	cm := checkpointManifest{
		CreatedAt: time.Now().UTC(),
		Attempt:   attempt,
		Files:     []string{},
		Absent:    []string{},
	}

	if stateDir := state.Dir(projectRoot); fsutil.Exists(stateDir) {
		if err := fsutil.CopyDir(stateDir, filepath.Join(dir, "state")); err != nil {
			return fmt.Errorf("checkpointing state directory: %w", err)
		}
		cm.StatePresent = true
	}

	for _, rel := range targets {
		src := filepath.Join(projectRoot, rel)
		if !fsutil.Exists(src) {
			cm.Absent = append(cm.Absent, rel)
			continue
		}
		if err := fsutil.CopyFile(src, filepath.Join(dir, FilesDir, rel)); err != nil {
			return fmt.Errorf("checkpointing %s: %w", rel, err)
		}
		cm.Files = append(cm.Files, rel)
	}

	return fsutil.WriteJSON(filepath.Join(dir, checkpointManifestFile), cm)
}

// restoreCheckpoint puts the project back exactly as writeCheckpoint
// found it. Checkpointed files and the state directory are restored;
// files that did not exist at checkpoint time are removed.
func restoreCheckpoint(projectRoot, backupRoot string) error {
	dir := filepath.Join(backupRoot, checkpointDir)
	data, err := os.ReadFile(filepath.Join(dir, checkpointManifestFile))
	if os.IsNotExist(err) {
		return ErrCheckpointIncomplete
	}
	if err != nil {
		return fmt.Errorf("reading checkpoint manifest: %w", err)
	}
	var cm checkpointManifest
	if err := json.Unmarshal(data, &cm); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointIncomplete, err)
	}

	stateDir := state.Dir(projectRoot)
	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("clearing state directory: %w", err)
	}
	if cm.StatePresent {
		if err := fsutil.CopyDir(filepath.Join(dir, "state"), stateDir); err != nil {
			return fmt.Errorf("restoring state directory from checkpoint: %w", err)
		}
	}

	for _, rel := range cm.Files {
		src := filepath.Join(dir, FilesDir, rel)
		if err := fsutil.CopyFile(src, filepath.Join(projectRoot, rel)); err != nil {
			return fmt.Errorf("restoring %s from checkpoint: %w", rel, err)
		}
	}
	for _, rel := range cm.Absent {
		if err := os.Remove(filepath.Join(projectRoot, rel)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", rel, err)
		}
	}
	return nil
}

func clearCheckpoint(backupRoot string) error {
	return os.RemoveAll(filepath.Join(backupRoot, checkpointDir))
}
