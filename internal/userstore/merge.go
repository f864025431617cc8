package userstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/fsutil"
	"github.com/flowforge-dev/flowmigrate/internal/model"
)

// MergeResult reports what a merge actually changed.
type MergeResult struct {
	Added     int
	Updated   int
	Unchanged int
}

func sameSession(a, b model.Session) bool {
	return a.TaskID == b.TaskID &&
		a.User == b.User &&
		a.DurationMinutes == b.DurationMinutes &&
		a.Description == b.Description &&
		a.Date == b.Date &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.Source == b.Source
}

// Merge folds incoming sessions into the user's store and writes it back.
// Sessions are matched by ID: unknown IDs append, identical duplicates are
// left alone, and an ID carrying different content is replaced by the
// incoming session, treating a re-exported record as a correction. Derived
// totals are recomputed from the final list, so merging the same input
// twice leaves the store byte-identical. A store still in the v1 shape is
// rewritten in the current schema on the way through.
//
// A store that fails to parse is moved aside under a .corrupt suffix
// before the error is returned.
func Merge(root, user string, incoming []model.Session) (*model.UserStore, MergeResult, error) {
	store, wasV1, err := readStore(root, user)
	if err != nil {
		if quarantined, qerr := quarantine(root, user, err); qerr == nil && quarantined != "" {
			return nil, MergeResult{}, fmt.Errorf("user store for %q moved to %s: %w", user, quarantined, err)
		}
		return nil, MergeResult{}, err
	}

	byID := make(map[string]int, len(store.Sessions))
	for i, s := range store.Sessions {
		byID[s.ID] = i
	}

	var res MergeResult
	for _, in := range incoming {
		in.User = store.User
		i, ok := byID[in.ID]
		switch {
		case !ok:
			byID[in.ID] = len(store.Sessions)
			store.Sessions = append(store.Sessions, in)
			res.Added++
		case sameSession(store.Sessions[i], in):
			res.Unchanged++
		default:
			slog.Debug("replacing session with re-exported record",
				"user", user, "id", in.ID)
			store.Sessions[i] = in
			res.Updated++
		}
	}

	sort.SliceStable(store.Sessions, func(i, j int) bool {
		return store.Sessions[i].ID < store.Sessions[j].ID
	})
	recompute(store)

	// An all-unchanged merge leaves an existing store byte-identical;
	// LastUpdated moves only when content did. A v1-shape file is
	// rewritten in the current schema regardless.
	if res.Added+res.Updated > 0 || wasV1 || !fsutil.Exists(StorePath(root, store.User)) {
		store.LastUpdated = time.Now().UTC()
		if err := writeStore(root, store); err != nil {
			return nil, MergeResult{}, err
		}
	}
	return store, res, nil
}

// quarantine renames an unreadable store aside so the migration can be
// retried without overwriting the evidence. Only structural corruption is
// quarantined; other read errors are returned untouched.
func quarantine(root, user string, readErr error) (string, error) {
	if !errors.Is(readErr, ErrCorruptStore) {
		return "", nil
	}
	src := StorePath(root, user)
	dst := src + ".corrupt"
	if err := os.Rename(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}
