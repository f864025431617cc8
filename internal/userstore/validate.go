package userstore

import (
	"fmt"

	"github.com/flowforge-dev/flowmigrate/internal/model"
)

// Validate checks the store's integrity invariant: the recorded total must
// equal the sum of the session durations, and the recorded count must match
// the session list. A mismatch is reported, never silently corrected.
func Validate(store *model.UserStore) error {
	sum := store.SumMinutes()
	if store.TotalMinutes != sum {
		return fmt.Errorf("%w for %q: recorded=%d, computed=%d",
			ErrTotalsMismatch, store.User, store.TotalMinutes, sum)
	}
	if store.SessionCount != len(store.Sessions) {
		return fmt.Errorf("%w for %q: recorded count=%d, sessions=%d",
			ErrTotalsMismatch, store.User, store.SessionCount, len(store.Sessions))
	}
	return nil
}
