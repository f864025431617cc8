package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/backup"
	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/lock"
)

var rollbackForce bool

var rollbackCmd = &cobra.Command{
	Use:   "rollback [backup-id]",
	Short: "Restore the project from a migration backup",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRollback,
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackForce, "force", false, "Proceed even if the backup fails verification")
}

func runRollback(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	backupRoot := cfg.BackupRoot(projectDir)

	lk, err := lock.Acquire(backupRoot, "rollback")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer lk.Release()

	opts := backup.Options{Force: rollbackForce}
	if len(args) == 1 {
		opts.BackupID = args[0]
	}

	res, err := backup.Rollback(projectDir, backupRoot, opts)
	if res != nil {
		printRollback(res)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Rolled back to %s: %d files restored", res.Backup, len(res.RestoredFiles))
	if res.ArchiveRestored {
		fmt.Print(", state directory replaced")
	}
	fmt.Println(".")
	return nil
}

func printRollback(res *backup.Result) {
	for _, s := range res.Stages {
		mark := "ok"
		if !s.OK {
			mark = "FAILED"
		}
		if s.Detail != "" {
			fmt.Printf("  %-22s %s  %s\n", s.Stage, mark, s.Detail)
		} else {
			fmt.Printf("  %-22s %s\n", s.Stage, mark)
		}
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warn: %s\n", w)
	}
}
