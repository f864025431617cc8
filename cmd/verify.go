package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/backup"
	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/model"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [backup-id]",
	Short: "Check a backup's files against its manifest checksums",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	backupRoot := cfg.BackupRoot(projectDir)

	var m *model.BackupManifest
	if len(args) == 1 {
		m, err = backup.Load(backupRoot, args[0])
	} else {
		m, err = backup.Newest(backupRoot)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	res := backup.Verify(m)
	printVerify(res)
	if !res.OK {
		return fmt.Errorf("backup %s failed verification", res.Backup)
	}
	return nil
}

func printVerify(res *backup.VerifyResult) {
	fmt.Printf("Backup %s: %d files checked\n", res.Backup, res.FilesChecked)
	for _, f := range res.Failures {
		fmt.Printf("  FAIL  %s\n", f)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warn  %s\n", w)
	}
	if res.OK {
		fmt.Println("Backup verified.")
	}
}
