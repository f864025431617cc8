package userstore

import (
	"fmt"
	"sort"

	"github.com/flowforge-dev/flowmigrate/internal/model"
)

// UserGroup is one user's slice of a parsed legacy record, ready to merge.
type UserGroup struct {
	User         string
	Sessions     []model.Session
	TotalMinutes int
	TaskIDs      []int
	DateRange    model.DateRange
}

// UserOutcome is the per-user result of an extraction or a report pass.
// Added, Updated and Unchanged stay zero when the store was only read.
type UserOutcome struct {
	User         string `json:"user"`
	Added        int    `json:"added"`
	Updated      int    `json:"updated"`
	Unchanged    int    `json:"unchanged"`
	Sessions     int    `json:"sessions"`
	TotalMinutes int    `json:"total_minutes"`
}

// GroupByUser partitions sessions into per-user groups in a single pass.
// Groups come back sorted by user, each with distinct sorted task IDs and
// the covered date range, so callers get stable output.
func GroupByUser(sessions []model.Session) []UserGroup {
	byUser := make(map[string]*UserGroup)
	tasks := make(map[string]map[int]bool)

	for _, s := range sessions {
		g, ok := byUser[s.User]
		if !ok {
			g = &UserGroup{User: s.User}
			byUser[s.User] = g
			tasks[s.User] = make(map[int]bool)
		}
		g.Sessions = append(g.Sessions, s)
		g.TotalMinutes += s.DurationMinutes
		tasks[s.User][s.TaskID] = true

		if s.Date != "" {
			if g.DateRange.Start == "" || s.Date < g.DateRange.Start {
				g.DateRange.Start = s.Date
			}
			if g.DateRange.End == "" || s.Date > g.DateRange.End {
				g.DateRange.End = s.Date
			}
		}
	}

	groups := make([]UserGroup, 0, len(byUser))
	for user, g := range byUser {
		for id := range tasks[user] {
			g.TaskIDs = append(g.TaskIDs, id)
		}
		sort.Ints(g.TaskIDs)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].User < groups[j].User })
	return groups
}

// ExtractAll merges every group into its user's store under root and
// verifies each written store before moving on. The first failure stops
// the extraction; outcomes for users already written are still returned
// so the caller can report how far it got.
func ExtractAll(root string, groups []UserGroup) ([]UserOutcome, error) {
	outcomes := make([]UserOutcome, 0, len(groups))
	for _, g := range groups {
		store, res, err := Merge(root, g.User, g.Sessions)
		if err != nil {
			return outcomes, fmt.Errorf("extracting user %q: %w", g.User, err)
		}
		if err := Validate(store); err != nil {
			return outcomes, fmt.Errorf("extracting user %q: %w", g.User, err)
		}
		outcomes = append(outcomes, UserOutcome{
			User:         g.User,
			Added:        res.Added,
			Updated:      res.Updated,
			Unchanged:    res.Unchanged,
			Sessions:     store.SessionCount,
			TotalMinutes: store.TotalMinutes,
		})
	}
	return outcomes, nil
}
