package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/legacy"
	"github.com/flowforge-dev/flowmigrate/internal/lock"
	"github.com/flowforge-dev/flowmigrate/internal/model"
	"github.com/flowforge-dev/flowmigrate/internal/state"
	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
	"github.com/flowforge-dev/flowmigrate/internal/userstore"
)

var extractDefaultUser string

var extractUserCmd = &cobra.Command{
	Use:   "extract-user <user>",
	Short: "Re-extract one user's sessions from the legacy file",
	Long: `extract-user parses the legacy time-tracking file and merges the named
user's sessions into their private store, leaving every other user and
the shared state untouched. Re-running it is safe: sessions already in
the store are recognized by ID and only replaced when their content
changed. No backup is taken; run "flowmigrate backups create" first if
you want a rollback point.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtractUser,
}

func init() {
	extractUserCmd.Flags().StringVar(&extractDefaultUser, "default-user", "", "User for records without an @handle")
}

func runExtractUser(cmd *cobra.Command, args []string) error {
	user := args[0]

	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if extractDefaultUser != "" {
		cfg.DefaultUser = extractDefaultUser
	}

	ttPath, found := firstExisting(projectDir, cfg.Legacy.TimeTracking)
	if !found {
		fmt.Printf("No legacy time-tracking file found (looked for %v); nothing to extract.\n",
			cfg.Legacy.TimeTracking)
		return nil
	}

	result, err := legacy.LoadSessions(ttPath, legacy.Options{DefaultUser: cfg.DefaultUser})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var sessions []model.Session
	for _, s := range result.Sessions {
		if s.User == user {
			sessions = append(sessions, s)
		}
	}
	if len(sessions) == 0 {
		fmt.Printf("No sessions for %q in %s.\n", user, ttPath)
		return nil
	}

	lk, err := lock.Acquire(cfg.BackupRoot(projectDir), "extract-user "+user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer lk.Release()

	store, res, err := userstore.Merge(state.UsersRoot(projectDir), user, sessions)
	if err != nil {
		fatal(lk, err)
	}
	if err := userstore.Validate(store); err != nil {
		fatal(lk, err)
	}

	fmt.Printf("%s: %d added, %d updated, %d unchanged (%s total)\n",
		user, res.Added, res.Updated, res.Unchanged, timecalc.FormatMinutes(store.TotalMinutes))

	// Read back from disk so the listing shows what actually landed.
	written, err := userstore.UserSessions(state.UsersRoot(projectDir), user)
	if err != nil {
		fatal(lk, err)
	}
	for _, s := range written {
		fmt.Printf("  %s  #%-4d %6s  %s\n",
			s.Date, s.TaskID, timecalc.FormatMinutes(s.DurationMinutes), s.Description)
	}
	return nil
}
