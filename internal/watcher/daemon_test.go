package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestIsDaemonRunning(t *testing.T) {
	tests := []struct {
		name        string
		content     string // empty means no PID file
		wantRunning bool
		wantRemoved bool
	}{
		{name: "no PID file"},
		{name: "current process", content: strconv.Itoa(os.Getpid()) + "\n", wantRunning: true},
		{name: "dead process", content: "999999\n", wantRemoved: true},
		{name: "invalid PID", content: "not-a-number\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidFile := filepath.Join(t.TempDir(), "watch.pid")
			if tt.content != "" {
				if err := os.WriteFile(pidFile, []byte(tt.content), 0644); err != nil {
					t.Fatalf("failed to write PID file: %v", err)
				}
			}

			running, err := IsDaemonRunning(pidFile)
			if err != nil {
				t.Fatalf("IsDaemonRunning() error = %v, want nil", err)
			}
			if running != tt.wantRunning {
				t.Errorf("IsDaemonRunning() = %v, want %v", running, tt.wantRunning)
			}
			if tt.wantRemoved {
				if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
					t.Error("stale PID file was not removed")
				}
			}
		})
	}
}

func TestStopDaemon_Errors(t *testing.T) {
	dir := t.TempDir()

	if err := StopDaemon(filepath.Join(dir, "missing.pid")); err == nil {
		t.Error("StopDaemon() expected error for missing PID file")
	}

	invalid := filepath.Join(dir, "invalid.pid")
	if err := os.WriteFile(invalid, []byte("invalid\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}
	if err := StopDaemon(invalid); err == nil {
		t.Error("StopDaemon() expected error for invalid PID")
	}
}

func TestStartDaemon_AlreadyRunning(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "watch.pid")
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	if _, err := StartDaemon(pidFile, nil); err == nil {
		t.Error("StartDaemon() expected error when a daemon is running")
	}
}

func TestRunUntil_RemovesPIDFile(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "watch.pid")
	if err := os.WriteFile(pidFile, []byte("1\n"), 0644); err != nil {
		t.Fatalf("failed to write PID file: %v", err)
	}

	w, err := New(newFakeHandler(), []string{dir}, Options{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := w.runUntil(ctx, pidFile); err != nil {
		t.Fatalf("runUntil() error = %v", err)
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("PID file should be removed on shutdown")
	}
}
