package userstore

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
)

// StoreReport aggregates every readable user store under the isolation
// root. Stores that cannot be read are listed, not fatal: a report is a
// read-only operation and should describe as much as it can.
type StoreReport struct {
	Users          []UserOutcome `json:"users"`
	UserCount      int           `json:"user_count"`
	TotalMinutes   int           `json:"total_minutes"`
	SessionCount   int           `json:"session_count"`
	AvgUserMinutes int           `json:"avg_user_minutes"`
	Unreadable     []string      `json:"unreadable,omitempty"`
}

// ListUsers returns the user directories under root, sorted. A missing
// root means no users have been extracted yet.
func ListUsers(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing users in %s: %w", root, err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() {
			users = append(users, e.Name())
		}
	}
	sort.Strings(users)
	return users, nil
}

// Report reads every user store under root and aggregates totals. Each
// store is validated; a totals mismatch or unreadable file downgrades to
// a warning here so inspection never blocks on one bad user.
func Report(root string) (*StoreReport, error) {
	users, err := ListUsers(root)
	if err != nil {
		return nil, err
	}

	rep := &StoreReport{}
	for _, user := range users {
		if !fsutil.Exists(StorePath(root, user)) {
			continue
		}
		store, err := ReadStore(root, user)
		if err != nil {
			slog.Warn("skipping unreadable user store", "user", user, "error", err)
			rep.Unreadable = append(rep.Unreadable, user)
			continue
		}
		if err := Validate(store); err != nil {
			slog.Warn("user store failed integrity check", "user", user, "error", err)
			rep.Unreadable = append(rep.Unreadable, user)
			continue
		}
		rep.Users = append(rep.Users, UserOutcome{
			User:         user,
			Sessions:     store.SessionCount,
			TotalMinutes: store.TotalMinutes,
		})
		rep.TotalMinutes += store.TotalMinutes
		rep.SessionCount += store.SessionCount
	}

	rep.UserCount = len(rep.Users)
	if rep.UserCount > 0 {
		rep.AvgUserMinutes = rep.TotalMinutes / rep.UserCount
	}
	return rep, nil
}

// UserSessions returns one user's sessions sorted by ID for display.
func UserSessions(root, user string) ([]model.Session, error) {
	store, err := ReadStore(root, user)
	if err != nil {
		return nil, err
	}
	sessions := append([]model.Session(nil), store.Sessions...)
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}
