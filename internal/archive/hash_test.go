package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, []byte("ab01"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		hashType string
		want     string
	}{
		{"sha256", "cac7a9a6bae53a734ddcab67424d675bb0a81ec3ff07e6c8c64affff5a977d67"},
		{"SHA-256", "cac7a9a6bae53a734ddcab67424d675bb0a81ec3ff07e6c8c64affff5a977d67"},
		{"", "cac7a9a6bae53a734ddcab67424d675bb0a81ec3ff07e6c8c64affff5a977d67"},
		{"md5", "db148bf2b4a73e351266a6e60a446a7b"},
	}

	for _, tt := range tests {
		t.Run(tt.hashType, func(t *testing.T) {
			got, err := HashFile(path, tt.hashType)
			if err != nil {
				t.Fatalf("HashFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("HashFile() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHashFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := HashFile(filepath.Join(dir, "missing"), "sha256"); !errors.Is(err, apkerr.ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}

	if _, err := HashFile(filepath.Join(dir, "missing"), "crc32"); !errors.Is(err, ErrUnsupportedHash) {
		t.Errorf("unknown hash error = %v, want ErrUnsupportedHash", err)
	}
}
