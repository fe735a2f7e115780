package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"default", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, Options{Verbose: tt.verbose})

			logger.Debug("Debug line", "stage", "abi")
			logger.Warn("Warn line", "stage", "sdk")

			out := buf.String()
			if got := strings.Contains(out, "Debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v: %s", got, tt.wantDebug, out)
			}
			if !strings.Contains(out, "stage=sdk") {
				t.Errorf("warn line missing attributes: %s", out)
			}
		})
	}
}

func TestSetupFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "watch.log")
	logger, closeFn := Setup(Options{File: path})

	logger.Info("Watcher started", "dirs", 2)
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !strings.Contains(string(data), "Watcher started") {
		t.Errorf("log file = %q", data)
	}
	if slog.Default() != logger {
		t.Error("Setup() did not install the default logger")
	}
}
