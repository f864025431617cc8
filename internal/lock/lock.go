// Package lock serializes migration runs against a project. One lock file
// guards the whole project; stale locks from crashed runs are detected by
// PID liveness and TTL expiry and broken automatically.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// LockFileName is the lock file inside the backup root. It lives there
// rather than in the state directory so a rollback that replaces the state
// directory wholesale cannot delete the lock out from under itself.
const LockFileName = "migration.lock"

// DefaultTTL bounds how long a lock is honored without the holding
// process being alive to renew it.
const DefaultTTL = time.Hour

// ErrLocked is returned when another live migration holds the lock.
var ErrLocked = errors.New("another migration is in progress")

// Info is the JSON payload written into the lock file, identifying the
// holder for debugging and staleness checks.
type Info struct {
	PID        int       `json:"pid"`
	SessionID  string    `json:"session_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Reason     string    `json:"reason,omitempty"`
}

// Expired reports whether the lock has outlived its TTL.
func (i Info) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Lock is a held migration lock. Release it when the run finishes.
type Lock struct {
	path string
	info Info
}

// SessionID identifies the run holding this lock.
func (l *Lock) SessionID() string { return l.info.SessionID }

// Acquire takes the project-wide migration lock in dir, creating dir if
// needed. A lock left behind by a crashed run, detected by a dead PID or
// an expired TTL, is broken and re-acquired. A lock held by a live run
// yields ErrLocked with the holder's details.
func Acquire(dir, reason string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path := filepath.Join(dir, LockFileName)

	now := time.Now().UTC()
	info := Info{
		PID:        os.Getpid(),
		SessionID:  uuid.NewString(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(DefaultTTL),
		Reason:     reason,
	}

	if err := tryCreate(path, info); err == nil {
		return &Lock{path: path, info: info}, nil
	} else if !os.IsExist(err) {
		return nil, fmt.Errorf("creating lock file: %w", err)
	}

	holder, readErr := readInfo(path)
	if readErr == nil && !holder.Expired() && processAlive(holder.PID) {
		return nil, fmt.Errorf("%w: held by pid %d (session %s) since %s",
			ErrLocked, holder.PID, holder.SessionID, holder.AcquiredAt.Format(time.RFC3339))
	}

	// Holder is dead, past TTL, or unreadable. Break the lock.
	slog.Warn("breaking stale migration lock", "path", path, "holder_pid", holder.PID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale lock: %w", err)
	}
	if err := tryCreate(path, info); err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: lock re-acquired while breaking stale lock", ErrLocked)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}
	return &Lock{path: path, info: info}, nil
}

// Release removes the lock file. Releasing an already-released lock is
// not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}

// tryCreate writes the lock atomically with respect to other creators:
// O_EXCL makes exactly one Acquire win the race.
func tryCreate(path string, info Info) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

func readInfo(path string) (Info, error) {
	var info Info
	data, err := os.ReadFile(path)
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, err
	}
	return info, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
