package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/config"
	"github.com/flowforge-dev/flowmigrate/internal/lock"
)

var (
	projectDir string
	verbose    bool
)

var osExit = os.Exit

// fatal reports err and exits with the storage-failure code. os.Exit
// skips deferred releases, so a held migration lock is released here.
func fatal(lk *lock.Lock, err error) {
	fmt.Fprintln(os.Stderr, err)
	if lk != nil {
		lk.Release()
	}
	osExit(2)
}

var rootCmd = &cobra.Command{
	Use:   "flowmigrate",
	Short: "FlowForge legacy time-tracking migration tool",
	Long: `flowmigrate moves legacy markdown time tracking (TIME_TRACKING.md,
MILESTONES.md, TODO.md) into the FlowForge .flowforge/ state directory,
isolates each user's session data into a private store, and keeps
checksummed backups so any migration can be rolled back.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		// The config file can turn on verbose logging for a project; a
		// load error here is ignored and reported by the command itself.
		if cfg, err := config.Load(projectDir); err == nil && cfg.Verbose {
			level = slog.LevelDebug
		}
		if verbose || os.Getenv("FLOWMIGRATE_DEBUG") != "" {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(extractUserCmd)
	rootCmd.AddCommand(reportCmd)
}
