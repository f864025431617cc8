package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/backup"
	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/lock"
	"github.com/flowforge-dev/flowmigrate/internal/model"
)

var pruneID string

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect and manage migration backups",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupsList,
}

var backupsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up the legacy files and .flowforge/ without migrating",
	Args:  cobra.NoArgs,
	RunE:  runBackupsCreate,
}

var backupsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupsPrune,
}

func init() {
	backupsPruneCmd.Flags().StringVar(&pruneID, "id", "", "Delete this backup even if it has not expired")

	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsCreateCmd)
	backupsCmd.AddCommand(backupsPruneCmd)
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	backups, err := backup.Discover(cfg.BackupRoot(projectDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	printBackups(backups)
	return nil
}

// printBackups writes one line per backup, newest first.
func printBackups(backups []model.BackupManifest) {
	if len(backups) == 0 {
		fmt.Println("No backups found.")
		return
	}

	now := time.Now()
	for _, m := range backups {
		archive := "-"
		if m.ArchivePresent {
			archive = "archive"
		}
		expired := ""
		if m.Expired(now) {
			expired = "  (expired)"
		}
		fmt.Printf("%s  %s  %d files  %s%s\n",
			m.ID, m.BackupTime.Format("2006-01-02 15:04"), len(m.FilesBackedUp), archive, expired)
	}
}

func runBackupsCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	backupRoot := cfg.BackupRoot(projectDir)

	lk, err := lock.Acquire(backupRoot, "backup")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer lk.Release()

	m, err := backup.Create(projectDir, backupRoot, allCandidates(cfg), cfg.Backup.RetentionDays)
	if err != nil {
		fatal(lk, err)
	}

	fmt.Printf("Created backup %s (%d files", m.ID, len(m.FilesBackedUp))
	if m.ArchivePresent {
		fmt.Print(", state archive")
	}
	fmt.Println(")")
	return nil
}

func runBackupsPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	backupRoot := cfg.BackupRoot(projectDir)

	if pruneID != "" {
		if err := backup.Remove(backupRoot, pruneID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Printf("Removed backup %s\n", pruneID)
		return nil
	}

	removed, err := backup.Prune(backupRoot, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(removed) == 0 {
		fmt.Println("No expired backups.")
		return nil
	}
	for _, id := range removed {
		fmt.Printf("Removed expired backup %s\n", id)
	}
	return nil
}
