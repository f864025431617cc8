package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/auditlog"
	"github.com/flowforge-dev/flowmigrate/internal/backup"
	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/legacy"
	"github.com/flowforge-dev/flowmigrate/internal/lock"
	"github.com/flowforge-dev/flowmigrate/internal/state"
	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
	"github.com/flowforge-dev/flowmigrate/internal/userstore"
)

var (
	migrateDryRun      bool
	migrateDefaultUser string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy time tracking into .flowforge/",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Parse and report without writing anything")
	migrateCmd.Flags().StringVar(&migrateDefaultUser, "default-user", "", "User for records without an @handle")
}

// migrationReport is the artifact written to .flowforge/reports/ after a
// completed migration.
type migrationReport struct {
	Backup          string                  `json:"backup"`
	Format          legacy.Format           `json:"format"`
	Sessions        int                     `json:"sessions"`
	SkippedLines    int                     `json:"skipped_lines"`
	TotalMinutes    int                     `json:"total_minutes"`
	TasksAdded      int                     `json:"tasks_added"`
	MilestonesAdded int                     `json:"milestones_added"`
	Users           []userstore.UserOutcome `json:"users"`
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if migrateDefaultUser != "" {
		cfg.DefaultUser = migrateDefaultUser
	}

	// All reads are against the project as it is; nothing below writes
	// until the parse succeeded and a backup exists.
	ttPath, ttFound := firstExisting(projectDir, cfg.Legacy.TimeTracking)
	if !ttFound {
		fmt.Printf("No legacy time-tracking file found (looked for %v); nothing to migrate.\n",
			cfg.Legacy.TimeTracking)
		return nil
	}

	result, err := legacy.LoadSessions(ttPath, legacy.Options{DefaultUser: cfg.DefaultUser})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	msPath, _ := firstExisting(projectDir, cfg.Legacy.Milestones)
	milestones, err := legacy.LoadMilestones(msPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	todoPath, _ := firstExisting(projectDir, cfg.Legacy.Todo)
	tasks, todoSkipped, err := legacy.LoadTasks(todoPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	groups := userstore.GroupByUser(result.Sessions)

	if migrateDryRun {
		printDryRun(result, groups, len(milestones), len(tasks))
		return nil
	}

	backupRoot := cfg.BackupRoot(projectDir)
	lk, err := lock.Acquire(backupRoot, "migrate")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer lk.Release()

	logger, err := auditlog.NewLogger(state.LogPath(projectDir))
	if err != nil {
		fatal(lk, err)
	}
	attempt := lk.SessionID()
	log := func(e auditlog.Event) {
		e.Attempt = attempt
		if err := logger.Append(e); err != nil {
			slog.Warn("could not append to migration log", "error", err)
		}
	}
	log(auditlog.Event{Event: auditlog.EventMigrationStarted})

	if state.HasLegacyMarker(projectDir) {
		fmt.Fprintln(os.Stderr, "Warning: found an in-progress marker from an interrupted migration; the legacy files may be inconsistent")
	}

	// canRestore flips once a backup exists; before that a failure has
	// changed nothing and the rollback hint would mislead.
	var canRestore bool
	fail := func(err error) error {
		log(auditlog.Event{Event: auditlog.EventMigrationFailed, Error: err.Error()})
		fmt.Fprintln(os.Stderr, err)
		if canRestore {
			fmt.Fprintln(os.Stderr, "The project can be restored with: flowmigrate rollback")
		}
		lk.Release()
		osExit(2)
		return nil
	}

	log(auditlog.Event{Event: auditlog.EventLegacyParsed,
		Format: string(result.Format), Sessions: len(result.Sessions),
		Skipped: result.SkippedLines, Minutes: result.TotalMinutes})

	m, err := backup.Create(projectDir, backupRoot, allCandidates(cfg), cfg.Backup.RetentionDays)
	if err != nil {
		return fail(fmt.Errorf("creating backup: %w", err))
	}
	canRestore = true
	log(auditlog.Event{Event: auditlog.EventBackupCreated, Backup: m.ID})
	fmt.Printf("Backup created: %s\n", m.ID)

	tasksAdded, err := state.MergeTasks(projectDir, tasks)
	if err != nil {
		return fail(err)
	}
	milestonesAdded, err := state.MergeMilestones(projectDir, milestones)
	if err != nil {
		return fail(err)
	}

	outcomes, err := userstore.ExtractAll(state.UsersRoot(projectDir), groups)
	if err != nil {
		return fail(err)
	}
	log(auditlog.Event{Event: auditlog.EventUsersExtracted, Users: len(outcomes)})

	if err := state.WriteBilling(projectDir, legacy.Summarize(result.Sessions)); err != nil {
		return fail(err)
	}

	now := time.Now().UTC()
	if err := state.SetStamp(projectDir, state.MigrationStamp{
		Version:     backup.MigrationVersion,
		CompletedAt: now,
		Backup:      m.ID,
		Sessions:    len(result.Sessions),
		Users:       len(groups),
	}); err != nil {
		return fail(err)
	}

	report := migrationReport{
		Backup:          m.ID,
		Format:          result.Format,
		Sessions:        len(result.Sessions),
		SkippedLines:    result.SkippedLines + todoSkipped,
		TotalMinutes:    result.TotalMinutes,
		TasksAdded:      tasksAdded,
		MilestonesAdded: milestonesAdded,
		Users:           outcomes,
	}
	reportPath, err := state.WriteReport(projectDir, report, now)
	if err != nil {
		return fail(err)
	}

	// The retired tool's marker is obsolete once this migration lands.
	if err := os.Remove(state.LegacyMarkerPath(projectDir)); err != nil && !os.IsNotExist(err) {
		return fail(err)
	}

	log(auditlog.Event{Event: auditlog.EventMigrationComplete,
		Backup: m.ID, Sessions: len(result.Sessions), Users: len(groups),
		Minutes: result.TotalMinutes})

	fmt.Printf("Migrated %d sessions (%s) across %d users, %s total\n",
		len(result.Sessions), result.Format, len(groups), timecalc.FormatMinutes(result.TotalMinutes))
	if result.SkippedLines > 0 || todoSkipped > 0 {
		fmt.Printf("Skipped %d malformed record lines\n", result.SkippedLines+todoSkipped)
	}
	fmt.Printf("Tasks added: %d, milestones added: %d\n", tasksAdded, milestonesAdded)
	fmt.Printf("Report written to %s\n", reportPath)
	return nil
}

func printDryRun(result legacy.ParseResult, groups []userstore.UserGroup, milestones, tasks int) {
	fmt.Printf("Dry run: %d sessions (%s format), %s total, %d skipped lines\n",
		len(result.Sessions), result.Format, timecalc.FormatMinutes(result.TotalMinutes), result.SkippedLines)
	fmt.Printf("Would import %d tasks and %d milestones\n", tasks, milestones)
	for _, g := range groups {
		fmt.Printf("  %-16s %d sessions, %s\n",
			g.User, len(g.Sessions), timecalc.FormatMinutes(g.TotalMinutes))
	}
	fmt.Println("No files were written.")
}

// firstExisting resolves the first candidate path that exists under root.
// The first candidate is returned even when none exist, so error messages
// can name the conventional location.
func firstExisting(root string, candidates []string) (string, bool) {
	for _, rel := range candidates {
		path := filepath.Join(root, rel)
		if fsutil.Exists(path) {
			return path, true
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return filepath.Join(root, candidates[0]), false
}

// allCandidates flattens every configured legacy location for backup.
func allCandidates(cfg *config.Config) []string {
	var all []string
	all = append(all, cfg.Legacy.TimeTracking...)
	all = append(all, cfg.Legacy.Milestones...)
	all = append(all, cfg.Legacy.Todo...)
	return all
}
