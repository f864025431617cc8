package backup

import "errors"

var (
	// ErrNoBackups is returned when discovery finds no usable backup.
	ErrNoBackups = errors.New("no backups found")

	// ErrIntegrity is returned when backup content does not match its
	// manifest. Verification failures block a rollback unless forced.
	ErrIntegrity = errors.New("backup integrity check failed")

	// ErrCheckpointIncomplete is returned when a safety checkpoint cannot
	// be used because it was never fully written.
	ErrCheckpointIncomplete = errors.New("checkpoint incomplete")
)
