package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/flowforge-dev/flowmigrate/internal/state"
	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
	"github.com/flowforge-dev/flowmigrate/internal/userstore"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show per-user totals across the migrated stores",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

func runReport(cmd *cobra.Command, args []string) error {
	rep, err := userstore.Report(state.UsersRoot(projectDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	stamp, err := state.ReadStamp(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	tasks, err := state.ReadTasks(projectDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	switch reportFormat {
	case "csv":
		fmt.Println("user,sessions,duration_minutes")
		for _, u := range rep.Users {
			fmt.Printf("%s,%d,%d\n", u.User, u.Sessions, u.TotalMinutes)
		}
	case "json":
		fmt.Println("{")
		if stamp != nil {
			fmt.Printf("  \"migrated_at\": %q,\n", stamp.CompletedAt.Format(time.RFC3339))
			fmt.Printf("  \"backup\": %q,\n", stamp.Backup)
		}
		fmt.Println("  \"users\": [")
		for i, u := range rep.Users {
			comma := ","
			if i == len(rep.Users)-1 {
				comma = ""
			}
			fmt.Printf("    {\"user\": %q, \"sessions\": %d, \"duration_minutes\": %d}%s\n",
				u.User, u.Sessions, u.TotalMinutes, comma)
		}
		fmt.Println("  ],")
		fmt.Printf("  \"tasks\": %d,\n", len(tasks))
		fmt.Printf("  \"total_minutes\": %d\n", rep.TotalMinutes)
		fmt.Println("}")
	default: // md
		if rep.UserCount == 0 && len(rep.Unreadable) == 0 {
			fmt.Println("No user stores found.")
			return nil
		}
		if stamp != nil {
			fmt.Printf("Migrated %s (backup %s)\n",
				stamp.CompletedAt.Format("2006-01-02 15:04"), stamp.Backup)
		}
		fmt.Println("--------------------------------")
		for _, u := range rep.Users {
			fmt.Printf("%-20s%4d sessions  %s\n", u.User, u.Sessions, timecalc.FormatMinutes(u.TotalMinutes))
		}
		fmt.Println("--------------------------------")
		fmt.Printf("%-20s%4d sessions  %s\n", "Total", rep.SessionCount, timecalc.FormatMinutes(rep.TotalMinutes))
		if len(tasks) > 0 {
			fmt.Printf("Tasks in shared store: %d\n", len(tasks))
		}
		for _, u := range rep.Unreadable {
			fmt.Printf("! %s: store unreadable or failed validation\n", u)
		}
	}

	return nil
}
