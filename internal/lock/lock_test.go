package lock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir, "migrate")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if l.SessionID() == "" {
		t.Error("lock has no session ID")
	}

	data, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("lock file not JSON: %v", err)
	}
	if info.PID != os.Getpid() || info.Reason != "migrate" {
		t.Errorf("lock info = %+v", info)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file still present after release")
	}

	// Releasing twice is harmless.
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestAcquireBlockedByLiveHolder(t *testing.T) {
	dir := t.TempDir()

	held, err := Acquire(dir, "first")
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	_, err = Acquire(dir, "second")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("Acquire() error = %v, want ErrLocked", err)
	}
}

func TestAcquireBreaksExpiredLock(t *testing.T) {
	dir := t.TempDir()

	// A lock whose TTL passed is stale even if the PID is still alive.
	stale := Info{
		PID:        os.Getpid(),
		SessionID:  "old-session",
		AcquiredAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	if err := tryCreate(filepath.Join(dir, LockFileName), stale); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(dir, "retry")
	if err != nil {
		t.Fatalf("Acquire() over expired lock error = %v", err)
	}
	defer l.Release()
	if l.SessionID() == "old-session" {
		t.Error("stale session survived re-acquire")
	}
}

func TestAcquireBreaksDeadHolderLock(t *testing.T) {
	dir := t.TempDir()

	stale := Info{
		PID:        999999,
		SessionID:  "crashed",
		AcquiredAt: time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := tryCreate(filepath.Join(dir, LockFileName), stale); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(dir, "after crash")
	if err != nil {
		t.Fatalf("Acquire() over dead holder error = %v", err)
	}
	defer l.Release()
}

func TestAcquireBreaksUnreadableLock(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(dir, "recover")
	if err != nil {
		t.Fatalf("Acquire() over unreadable lock error = %v", err)
	}
	defer l.Release()
}
