package relay

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPendingLockMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approve.lock")
	if PendingLock(path) {
		t.Error("expected no pending lock when file is absent")
	}
}

func TestPendingLockGarbageContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approve.lock")
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	if PendingLock(path) {
		t.Error("expected no pending lock for unparseable pid")
	}
}

func TestPendingLockStalePid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approve.lock")
	// Max pid plus a margin, very unlikely to be running.
	if err := os.WriteFile(path, []byte("4194304"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	if PendingLock(path) {
		t.Error("expected stale pid to be treated as no lock")
	}
}

func TestPendingLockLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approve.lock")
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	if !PendingLock(path) {
		t.Error("expected lock held by a live process to be pending")
	}
}
