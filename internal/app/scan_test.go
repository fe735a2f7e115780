package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/apkident/internal/archive/archivetest"
	"github.com/blackwell-systems/apkident/internal/fingerprint"
	"github.com/blackwell-systems/apkident/internal/snapshots"
)

func TestScanCommandFlags(t *testing.T) {
	tests := []struct {
		flagName     string
		defaultValue string
	}{
		{"force", "false"},
		{"jobs", "0"},
		{"quiet", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := scanCmd.Flags().Lookup(tt.flagName)
			if flag == nil {
				t.Fatalf("expected flag '%s' to be registered", tt.flagName)
			}
			if flag.Usage == "" {
				t.Errorf("expected flag '%s' to have usage text", tt.flagName)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag '%s' default = %q, want %q", tt.flagName, flag.DefValue, tt.defaultValue)
			}
		})
	}
}

func TestScanWithoutDirectories(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "scan")
	if err == nil || !strings.Contains(err.Error(), "no archive directories") {
		t.Errorf("expected missing directories error, got %v", err)
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "scan", env.archiveDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "No archives found") {
		t.Errorf("expected no archives message, got:\n%s", out)
	}
}

func TestScanStatusExport(t *testing.T) {
	env := newTestEnv(t)
	cert := archivetest.NewCertificate(t, "Scan Test")

	env.writeApp(t, "notes.apk", "org.example.notes", 10, archivetest.Options{Signer: cert})
	env.writeApp(t, "plain.apk", "org.example.plain", 3, archivetest.Options{})
	if err := os.WriteFile(filepath.Join(env.archiveDir, "broken.apk"), []byte("not a zip"), 0644); err != nil {
		t.Fatalf("Failed to write broken archive: %v", err)
	}

	out, stderr, err := env.run(t, "scan", env.archiveDir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "3 archives: 2 built, 0 skipped, 1 failed") {
		t.Errorf("unexpected scan summary:\n%s", out)
	}
	if !strings.Contains(out, "broken.apk") {
		t.Errorf("failure should name the archive:\n%s", out)
	}
	if !strings.Contains(stderr, "3/3 Scanning archives") {
		t.Errorf("progress should go to stderr, got:\n%s", stderr)
	}

	out, stderr, err = env.run(t, "scan", "--quiet", env.archiveDir)
	if err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if !strings.Contains(out, "0 built, 2 skipped, 1 failed") {
		t.Errorf("known archives should be skipped:\n%s", out)
	}
	if strings.Contains(stderr, "Scanning archives") {
		t.Errorf("--quiet should suppress progress, got:\n%s", stderr)
	}

	out, _, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"Records:   2", "org.example.notes", "org.example.plain", "Watcher:   stopped", "1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}

	exportPath := filepath.Join(t.TempDir(), "export.json")
	out, _, err = env.run(t, "export", exportPath)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Exported 2 records") {
		t.Errorf("unexpected export output: %s", out)
	}

	snaps, err := snapshots.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("exported %d snapshots, want 2", len(snaps))
	}
	for _, s := range snaps {
		if s.PackageName == "org.example.notes" && s.Signer != fingerprint.Legacy(cert.Raw) {
			t.Errorf("exported signer = %q, want %q", s.Signer, fingerprint.Legacy(cert.Raw))
		}
	}
}

func TestScanForce(t *testing.T) {
	env := newTestEnv(t)
	env.writeApp(t, "a.apk", "org.example.a", 1, archivetest.Options{})

	if _, _, err := env.run(t, "scan", "-q", env.archiveDir); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	out, _, err := env.run(t, "scan", "-q", "--force", env.archiveDir)
	if err != nil {
		t.Fatalf("forced scan failed: %v", err)
	}
	if !strings.Contains(out, "1 built, 0 skipped") {
		t.Errorf("--force should rebuild known records:\n%s", out)
	}
}

func TestScanUsesConfiguredDirs(t *testing.T) {
	env := newTestEnv(t)
	env.writeApp(t, "a.apk", "org.example.a", 1, archivetest.Options{})
	env.writeConfig(t, "archive_dirs:\n  - "+env.archiveDir+"\njobs: 2\n")

	out, _, err := env.run(t, "scan", "-q")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "1 archives: 1 built") {
		t.Errorf("configured directory should be scanned:\n%s", out)
	}
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	cert := archivetest.NewCertificate(t, "Show Test")
	path := env.writeApp(t, "notes.apk", "org.example.notes", 10, archivetest.Options{
		Signer: cert,
		Entries: map[string][]byte{
			"classes.dex":               []byte("dex"),
			"lib/arm64-v8a/libnotes.so": []byte("elf"),
		},
	})

	out, _, err := env.run(t, "show", "--json", path)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}

	var snap snapshots.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("show --json output is not JSON: %v\n%s", err, out)
	}
	if snap.PackageName != "org.example.notes" || snap.VersionCode != 10 {
		t.Errorf("identity = %s/%d", snap.PackageName, snap.VersionCode)
	}
	if snap.MinSDK != 21 || snap.TargetSDK != 33 {
		t.Errorf("SDK = %d/%d, want 21/33", snap.MinSDK, snap.TargetSDK)
	}
	if snap.Signer != fingerprint.Legacy(cert.Raw) {
		t.Errorf("Signer = %q, want %q", snap.Signer, fingerprint.Legacy(cert.Raw))
	}
	if len(snap.NativeCode) != 1 || snap.NativeCode[0] != "arm64-v8a" {
		t.Errorf("NativeCode = %v, want [arm64-v8a]", snap.NativeCode)
	}

	out, _, err = env.run(t, "show", path)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "min 21, target 33, max 127") {
		t.Errorf("unexpected show output:\n%s", out)
	}
}

func TestShowMissingArchive(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "show", filepath.Join(env.archiveDir, "absent.apk"))
	if err == nil {
		t.Error("show of a missing archive should fail")
	}
}

func TestFingerprint(t *testing.T) {
	env := newTestEnv(t)
	cert := archivetest.NewCertificate(t, "Fingerprint Test")
	signed := env.writeApp(t, "signed.apk", "org.example.signed", 1, archivetest.Options{Signer: cert})
	unsigned := env.writeApp(t, "unsigned.apk", "org.example.unsigned", 1, archivetest.Options{})

	out, _, err := env.run(t, "fingerprint", signed)
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	want := fingerprint.Legacy(cert.Raw) + "  " + signed
	if strings.TrimSpace(out) != want {
		t.Errorf("fingerprint output = %q, want %q", strings.TrimSpace(out), want)
	}

	out, stderr, err := env.run(t, "fingerprint", signed, unsigned)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 archives") {
		t.Errorf("expected partial failure error, got %v", err)
	}
	if !strings.Contains(out, fingerprint.Legacy(cert.Raw)) {
		t.Errorf("signed archive should still be printed:\n%s", out)
	}
	if !strings.Contains(stderr, "unsigned.apk") {
		t.Errorf("unsigned archive should be reported on stderr:\n%s", stderr)
	}
}
