package userstore

import "errors"

// Sentinel errors for store operations.
var (
	// ErrCorruptStore is returned when a store file exists but cannot be
	// parsed as JSON. This is structural corruption and is fatal to merges;
	// the aggregate report downgrades it to a warning and skips the user.
	ErrCorruptStore = errors.New("user store is not valid JSON")

	// ErrTotalsMismatch is returned when a store's recorded total_minutes
	// differs from the recomputed sum of its session durations. Never
	// silently corrected.
	ErrTotalsMismatch = errors.New("stored total does not match session sum")

	// ErrBadUser is returned for user handles that cannot name a storage
	// directory.
	ErrBadUser = errors.New("invalid user handle")
)
