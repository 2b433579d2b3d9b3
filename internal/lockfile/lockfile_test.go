package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	want := fmt.Sprintf("pid=%d\n", os.Getpid())
	if string(content) != want {
		t.Errorf("Lock file content = %q, want %q", string(content), want)
	}

	if err := lock.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("Lock file should be removed after release")
	}
	// Release is idempotent
	if err := lock.Release(); err != nil {
		t.Errorf("Second release failed: %v", err)
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()

	lock1, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := Acquire(dir)
	if err == nil {
		lock2.Release()
		t.Fatal("Second acquisition should have failed")
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockError, got %T", err)
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("Error should name the lock path: %s", err.Error())
	}
	if !strings.Contains(lockErr.Holder, "running") {
		t.Errorf("Holder should describe the owning process: %q", lockErr.Holder)
	}
}

func TestAcquireCreatesStateDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock in missing directory: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("State directory was not created: %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()

	lock1, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock1.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	lock2, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Failed to reacquire after release: %v", err)
	}
	lock2.Release()
}
