package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/flowforge-dev/flowmigrate/internal/auditlog"
	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
	"github.com/flowforge-dev/flowmigrate/internal/state"
)

// Stage names one step of the rollback state machine. Stages run in
// declaration order; the first three are read-only, everything after
// checkpoint is destructive and guarded by it.
type Stage string

const (
	StageDiscover         Stage = "discover"
	StageVerify           Stage = "verify"
	StageCheckpoint       Stage = "checkpoint"
	StageRestoreFiles     Stage = "restore-files"
	StageRestoreArchive   Stage = "restore-archive"
	StageCleanupArtifacts Stage = "cleanup-artifacts"
	StageVerifyResult     Stage = "verify-result"
	StageComplete         Stage = "complete"

	// stageRecover is logged when a failed destructive stage is undone
	// from the checkpoint.
	stageRecover Stage = "restore-from-checkpoint"
)

// Options selects and conditions a rollback.
type Options struct {
	// BackupID picks a specific backup; empty means the newest.
	BackupID string
	// Force proceeds past integrity failures, degrading them to warnings.
	Force bool
}

// StageOutcome records how far a rollback got and how each stage ended.
type StageOutcome struct {
	Stage  Stage  `json:"stage"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Result describes one rollback attempt.
type Result struct {
	Backup          string         `json:"backup"`
	Attempt         string         `json:"attempt"`
	Stages          []StageOutcome `json:"stages"`
	RestoredFiles   []string       `json:"restored_files,omitempty"`
	ArchiveRestored bool           `json:"archive_restored"`
	CheckpointUsed  bool           `json:"checkpoint_used"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// Rollback restores the project to the chosen backup. The run is staged:
// discovery and verification first, then a checkpoint of everything about
// to change, then the destructive restore. If a destructive stage fails,
// the checkpoint is applied and the project comes back as it was before
// the rollback started; the original failure is still returned. Every
// attempt appends its stages to rollback-log.jsonl in the backup root.
func Rollback(projectRoot, backupRoot string, opts Options) (*Result, error) {
	logger, err := auditlog.NewLogger(filepath.Join(backupRoot, RollbackLogFile))
	if err != nil {
		return nil, err
	}

	res := &Result{Attempt: uuid.NewString()}
	var m *model.BackupManifest

	log := func(e auditlog.Event) {
		e.Attempt = res.Attempt
		if e.Backup == "" {
			e.Backup = res.Backup
		}
		if err := logger.Append(e); err != nil {
			slog.Warn("could not append to rollback log", "error", err)
		}
	}
	// pathOf names the location a stage acts on, for the audit trail.
	pathOf := func(s Stage) string {
		switch s {
		case StageDiscover, StageVerify:
			if m != nil {
				return m.Path
			}
			return backupRoot
		case StageCheckpoint, stageRecover:
			return filepath.Join(backupRoot, checkpointDir)
		case StageRestoreArchive, StageCleanupArtifacts:
			return state.Dir(projectRoot)
		case StageRestoreFiles, StageVerifyResult:
			return projectRoot
		}
		return ""
	}
	stage := func(s Stage, ok bool, detail string) {
		res.Stages = append(res.Stages, StageOutcome{Stage: s, OK: ok, Detail: detail})
		ev := auditlog.Event{Event: auditlog.EventRollbackStage, Stage: string(s), Path: pathOf(s)}
		if ok {
			ev.Note = detail
		} else {
			ev.Error = detail
		}
		log(ev)
	}
	abort := func(err error) (*Result, error) {
		log(auditlog.Event{Event: auditlog.EventRollbackFailed, Error: err.Error()})
		return res, err
	}

	log(auditlog.Event{Event: auditlog.EventRollbackStarted, Note: opts.BackupID})

	// Discover which backup to restore.
	if opts.BackupID != "" {
		m, err = Load(backupRoot, opts.BackupID)
	} else {
		m, err = Newest(backupRoot)
	}
	if err != nil {
		stage(StageDiscover, false, err.Error())
		return abort(err)
	}
	res.Backup = m.ID
	stage(StageDiscover, true, m.ID)

	if stamp, err := state.ReadStamp(projectRoot); err == nil && stamp != nil && stamp.Backup != m.ID {
		w := fmt.Sprintf("last migration recorded backup %s, rolling back to %s", stamp.Backup, m.ID)
		res.Warnings = append(res.Warnings, w)
		slog.Warn("rollback target differs from recorded migration", "recorded", stamp.Backup, "target", m.ID)
	}

	// Verify the backup before trusting it.
	v := Verify(m)
	res.Warnings = append(res.Warnings, v.Warnings...)
	if !v.OK {
		detail := strings.Join(v.Failures, "; ")
		if !opts.Force {
			stage(StageVerify, false, detail)
			return abort(fmt.Errorf("%w: %s", ErrIntegrity, detail))
		}
		res.Warnings = append(res.Warnings, v.Failures...)
		slog.Warn("forcing rollback past integrity failures", "backup", m.ID, "failures", len(v.Failures))
		stage(StageVerify, true, "forced past: "+detail)
	} else {
		stage(StageVerify, true, fmt.Sprintf("%d files checked", v.FilesChecked))
	}

	// Checkpoint current state. Nothing destructive may run without it.
	if err := writeCheckpoint(projectRoot, backupRoot, res.Attempt, m.FilesBackedUp); err != nil {
		stage(StageCheckpoint, false, err.Error())
		return abort(fmt.Errorf("checkpointing before restore: %w", err))
	}
	stage(StageCheckpoint, true, "")

	// fail undoes a partial destructive stage from the checkpoint and
	// returns the stage's own error, not the recovery's.
	fail := func(s Stage, cause error) (*Result, error) {
		stage(s, false, cause.Error())
		if rerr := restoreCheckpoint(projectRoot, backupRoot); rerr != nil {
			log(auditlog.Event{Event: auditlog.EventRollbackFailed,
				Error: cause.Error(), Note: "checkpoint restore also failed: " + rerr.Error()})
			return res, fmt.Errorf("%s failed: %v; checkpoint restore also failed: %w", s, cause, rerr)
		}
		res.CheckpointUsed = true
		stage(stageRecover, true, "")
		log(auditlog.Event{Event: auditlog.EventRollbackFailed, Error: cause.Error()})
		return res, fmt.Errorf("%s failed, project restored from checkpoint: %w", s, cause)
	}

	// Restore the backed-up legacy files to their original paths. A twin
	// at the other conventional location that the backup never covered is
	// left alone and flagged.
	backedUp := make(map[string]bool, len(m.FilesBackedUp))
	for _, rel := range m.FilesBackedUp {
		backedUp[rel] = true
	}
	for _, rel := range m.FilesBackedUp {
		src := filepath.Join(m.Path, FilesDir, rel)
		if err := fsutil.CopyFile(src, filepath.Join(projectRoot, rel)); err != nil {
			return fail(StageRestoreFiles, fmt.Errorf("restoring %s: %w", rel, err))
		}
		res.RestoredFiles = append(res.RestoredFiles, rel)
		if alt := otherCandidate(rel); alt != "" && !backedUp[alt] && fsutil.Exists(filepath.Join(projectRoot, alt)) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s restored to its backup-time location; %s also exists and was not part of the backup", rel, alt))
		}
	}
	stage(StageRestoreFiles, true, fmt.Sprintf("%d files", len(res.RestoredFiles)))

	// Replace the state directory from the archive. A backup without an
	// archive means no state directory existed then; the current one is
	// kept and only migration artifacts are cleaned out of it.
	if m.ArchivePresent {
		stateDir := state.Dir(projectRoot)
		if err := os.RemoveAll(stateDir); err != nil {
			return fail(StageRestoreArchive, fmt.Errorf("clearing state directory: %w", err))
		}
		if err := Extract(filepath.Join(m.Path, ArchiveFile), stateDir); err != nil {
			return fail(StageRestoreArchive, err)
		}
		res.ArchiveRestored = true
		stage(StageRestoreArchive, true, "")
	} else {
		stage(StageRestoreArchive, true, "no state archive in backup")
	}

	if err := cleanupArtifacts(projectRoot, res.ArchiveRestored); err != nil {
		return fail(StageCleanupArtifacts, err)
	}
	stage(StageCleanupArtifacts, true, "")

	failures, warnings := verifyOutcome(projectRoot, m, res.ArchiveRestored)
	res.Warnings = append(res.Warnings, warnings...)
	if len(failures) > 0 {
		return fail(StageVerifyResult, fmt.Errorf("%s", strings.Join(failures, "; ")))
	}
	stage(StageVerifyResult, true, "")

	if err := clearCheckpoint(backupRoot); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("could not remove checkpoint: %v", err))
	}
	stage(StageComplete, true, "")
	log(auditlog.Event{Event: auditlog.EventRollbackComplete, Sessions: len(res.RestoredFiles)})
	return res, nil
}

// cleanupArtifacts removes what the migration left behind. The retired
// tool's in-progress marker goes unconditionally. The rest, the isolated
// user stores, billing summary, reports, log, and stamp, are removed only
// when no archive was restored: after an archive restore the state
// directory is authentic pre-migration content and everything in it,
// including artifacts of earlier migrations, belongs there.
func cleanupArtifacts(projectRoot string, archiveRestored bool) error {
	if err := os.Remove(state.LegacyMarkerPath(projectRoot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing in-progress marker: %w", err)
	}
	if archiveRestored {
		return nil
	}

	for _, dir := range []string{
		state.UsersRoot(projectRoot),
		filepath.Dir(state.BillingPath(projectRoot)),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
	}

	reports, err := filepath.Glob(filepath.Join(state.ReportsDir(projectRoot), "migration-report-*.json"))
	if err != nil {
		return err
	}
	for _, report := range reports {
		if err := os.Remove(report); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", report, err)
		}
	}
	// Drops the reports directory when the migration's reports were all
	// it held.
	os.Remove(state.ReportsDir(projectRoot))

	if err := os.Remove(state.LogPath(projectRoot)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing migration log: %w", err)
	}
	return state.ClearStamp(projectRoot)
}

// otherCandidate returns the alternate conventional location for a legacy
// file: the docs/ twin of a root-level path, the root twin of a docs/
// path. Deeper paths have no twin.
func otherCandidate(rel string) string {
	dir, base := filepath.Split(rel)
	switch {
	case dir == "":
		return filepath.Join("docs", base)
	case filepath.Clean(dir) == "docs":
		return base
	}
	return ""
}

// verifyOutcome checks that the rollback achieved what it claims before
// the checkpoint is discarded.
func verifyOutcome(projectRoot string, m *model.BackupManifest, archiveRestored bool) (failures, warnings []string) {
	for _, rel := range m.FilesBackedUp {
		if !fsutil.Exists(filepath.Join(projectRoot, rel)) {
			failures = append(failures, fmt.Sprintf("restored file missing: %s", rel))
		}
	}

	if archiveRestored {
		if !fsutil.Exists(state.Dir(projectRoot)) {
			failures = append(failures, "state directory missing after archive restore")
		}
	} else {
		if fsutil.Exists(state.UsersRoot(projectRoot)) {
			failures = append(failures, "isolated user stores still present")
		}
		if stamp, err := state.ReadStamp(projectRoot); err == nil && stamp != nil {
			failures = append(failures, "migration stamp still present")
		}
	}

	if state.HasLegacyMarker(projectRoot) {
		failures = append(failures, "in-progress marker still present")
	}

	if len(m.FilesBackedUp) == 0 && !m.ArchivePresent {
		warnings = append(warnings, "backup was empty; nothing to restore")
	}
	return failures, warnings
}
