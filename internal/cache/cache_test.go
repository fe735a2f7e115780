package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeAged(t *testing.T, path string, age time.Duration, now time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte("cached"), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	mtime := now.Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set times on %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestClearOldFiles(t *testing.T) {
	now := time.Now()
	root := t.TempDir()

	old := filepath.Join(root, "org.a", "old.apk")
	fresh := filepath.Join(root, "org.b", "fresh.apk")
	oldSibling := filepath.Join(root, "org.b", "old.apk")
	writeAged(t, old, 48*time.Hour, now)
	writeAged(t, fresh, time.Hour, now)
	writeAged(t, oldSibling, 48*time.Hour, now)

	st, err := ClearOldFiles(root, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("ClearOldFiles() failed: %v", err)
	}

	if exists(old) || exists(oldSibling) {
		t.Error("old files should be removed")
	}
	if !exists(fresh) {
		t.Error("fresh file should be kept")
	}
	if exists(filepath.Join(root, "org.a")) {
		t.Error("emptied directory should be removed")
	}
	if !exists(root) {
		t.Error("root should be kept")
	}
	if st.Files != 2 || st.Dirs != 1 || st.Bytes != int64(2*len("cached")) {
		t.Errorf("Stats = %+v, want 2 files, 1 dir", st)
	}
}

func TestClearOldFilesMissingRoot(t *testing.T) {
	st, err := ClearOldFiles(filepath.Join(t.TempDir(), "absent"), time.Hour, time.Now())
	if err != nil {
		t.Errorf("ClearOldFiles() error = %v, want nil", err)
	}
	if st != (Stats{}) {
		t.Errorf("Stats = %+v, want zero", st)
	}
}

func TestClean(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()

	expiredApk := filepath.Join(dir, ArchivesDir, "org.a_1.apk")
	keptApk := filepath.Join(dir, ArchivesDir, "org.a_2.apk")
	strayIndex := filepath.Join(dir, "index-123-downloaded")
	freshDownload := filepath.Join(dir, "dl-456")
	otherFile := filepath.Join(dir, "notes.txt")
	oldIcon := filepath.Join(dir, IconsDir, "old.png")
	icon := filepath.Join(dir, IconsDir, "recent.png")

	writeAged(t, expiredApk, 3*24*time.Hour, now)
	writeAged(t, keptApk, 12*time.Hour, now)
	writeAged(t, strayIndex, 2*time.Hour, now)
	writeAged(t, freshDownload, 10*time.Minute, now)
	writeAged(t, otherFile, 1000*24*time.Hour, now)
	writeAged(t, oldIcon, 400*24*time.Hour, now)
	writeAged(t, icon, 30*24*time.Hour, now)

	st, err := Clean(dir, 24*time.Hour, now)
	if err != nil {
		t.Fatalf("Clean() failed: %v", err)
	}

	for _, p := range []string{expiredApk, strayIndex, oldIcon} {
		if exists(p) {
			t.Errorf("%s should be removed", filepath.Base(p))
		}
	}
	for _, p := range []string{keptApk, freshDownload, otherFile, icon} {
		if !exists(p) {
			t.Errorf("%s should be kept", filepath.Base(p))
		}
	}
	if st.Files != 3 {
		t.Errorf("Stats.Files = %d, want 3", st.Files)
	}
}
