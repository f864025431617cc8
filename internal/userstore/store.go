// Package userstore partitions parsed sessions by user and maintains the
// per-user persistent stores: append-with-dedup merges, owner-only file
// modes, an exclusion marker so isolated data stays out of broader backups
// and version control, and the total-minutes integrity check.
package userstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
)

// StoreFileName is the per-user store file inside each user directory.
const StoreFileName = "time-tracking.json"

// excludeMarker keeps isolated user data out of version control and broad
// backups, while excluding itself from that exclusion.
const excludeMarker = "*\n!.gitignore\n"

// StorePath returns the store file path for a user under root.
func StorePath(root, user string) string {
	return filepath.Join(root, user, StoreFileName)
}

func validUser(user string) error {
	if user == "" || strings.ContainsAny(user, `/\`) || user == "." || user == ".." {
		return fmt.Errorf("%w: %q", ErrBadUser, user)
	}
	return nil
}

// ReadStore loads a user's store without mutating anything on disk.
// A missing file yields an empty store. A file that is not valid JSON
// yields ErrCorruptStore with the offending path. Stores written by the v1
// tooling ("entries" plus "total_hours") are converted on the fly.
func ReadStore(root, user string) (*model.UserStore, error) {
	store, _, err := readStore(root, user)
	return store, err
}

// readStore additionally reports whether the file used the v1 shape, so
// Merge can rewrite it in the current schema even when no session changed.
func readStore(root, user string) (*model.UserStore, bool, error) {
	if err := validUser(user); err != nil {
		return nil, false, err
	}
	path := StorePath(root, user)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &model.UserStore{User: user, Sessions: []model.Session{}}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading user store %s: %w", path, err)
	}

	if !gjson.ValidBytes(data) {
		return nil, false, fmt.Errorf("%w: %s", ErrCorruptStore, path)
	}

	doc := gjson.ParseBytes(data)
	if !doc.Get("sessions").Exists() && doc.Get("entries").Exists() {
		slog.Debug("converting v1-format user store", "path", path, "user", user)
		return convertV1(doc, user), true, nil
	}

	var store model.UserStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrCorruptStore, path)
	}
	if store.User == "" {
		store.User = user
	}
	if store.Sessions == nil {
		store.Sessions = []model.Session{}
	}
	return &store, false, nil
}

// convertV1 maps the v1 store shape ("entries" with fractional hours) onto
// the current model through an explicit field list. Fields the v1 format
// carried that have no current counterpart are deliberately dropped.
// Entries without an id get one rederived with the parser's date plus
// per-date sequence rule; v1 stores kept file order, so re-ingesting the
// same source merges onto the converted entries instead of duplicating.
func convertV1(doc gjson.Result, user string) *model.UserStore {
	store := &model.UserStore{User: user, Sessions: []model.Session{}}
	if u := doc.Get("user").String(); u != "" {
		store.User = u
	}

	seq := make(map[string]int)
	doc.Get("entries").ForEach(func(_, entry gjson.Result) bool {
		date := entry.Get("date").String()
		seq[date]++

		minutes := 0
		switch {
		case entry.Get("minutes").Exists():
			minutes = int(entry.Get("minutes").Int())
		case entry.Get("hours").Exists():
			minutes = timecalc.HoursToMinutes(entry.Get("hours").Float())
		}

		id := entry.Get("id").String()
		if id == "" {
			id = timecalc.SessionID(date, seq[date])
		}

		taskID := int(entry.Get("issue").Int())
		if entry.Get("task_id").Exists() {
			taskID = int(entry.Get("task_id").Int())
		}

		desc := entry.Get("description").String()
		if desc == "" {
			desc = entry.Get("note").String()
		}

		source := entry.Get("source").String()
		if source == "" {
			source = model.SourceLegacyText
		}

		store.Sessions = append(store.Sessions, model.Session{
			ID:              id,
			TaskID:          taskID,
			User:            store.User,
			DurationMinutes: minutes,
			Description:     desc,
			Date:            date,
			Timestamp:       timecalc.DefaultTimestamp(date),
			Source:          source,
		})
		return true
	})

	recompute(store)
	return store
}

// recompute rebuilds the derived store fields from the final session list.
// Totals are never accumulated incrementally, so repeated runs cannot drift.
func recompute(store *model.UserStore) {
	store.TotalMinutes = store.SumMinutes()
	store.SessionCount = len(store.Sessions)

	var start, end string
	for _, s := range store.Sessions {
		if s.Date == "" {
			continue
		}
		if start == "" || s.Date < start {
			start = s.Date
		}
		if end == "" || s.Date > end {
			end = s.Date
		}
	}
	store.DateRange = model.DateRange{Start: start, End: end}
}

// writeStore persists the store atomically and applies the access
// restrictions: owner-only modes on the file and directories, plus the
// exclusion marker at the isolation root.
func writeStore(root string, store *model.UserStore) error {
	path := StorePath(root, store.User)
	if err := fsutil.WriteJSON(path, store); err != nil {
		return err
	}
	if err := restrict(root, filepath.Dir(path), path); err != nil {
		return err
	}
	return writeExcludeMarker(root)
}

func restrict(root, userDir, file string) error {
	if err := os.Chmod(file, 0o600); err != nil {
		return fmt.Errorf("restricting %s: %w", file, err)
	}
	for _, dir := range []string{userDir, root} {
		if err := os.Chmod(dir, 0o700); err != nil {
			return fmt.Errorf("restricting %s: %w", dir, err)
		}
	}
	return nil
}

func writeExcludeMarker(root string) error {
	marker := filepath.Join(root, ".gitignore")
	if fsutil.Exists(marker) {
		return nil
	}
	return fsutil.WriteFileAtomic(marker, []byte(excludeMarker), 0o600)
}
