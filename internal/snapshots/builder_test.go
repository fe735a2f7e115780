package snapshots

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/archive/archivetest"
	"github.com/blackwell-systems/apkident/internal/axml/axmltest"
	"github.com/blackwell-systems/apkident/internal/fingerprint"
	"github.com/blackwell-systems/apkident/internal/manifest"
)

func testBuilder(storageRoot string) *Builder {
	b := NewBuilder(Options{StorageRoot: storageRoot}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	b.Now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func testInfo() PackageInfo {
	return PackageInfo{
		PackageName:          "org.example.game",
		VersionCode:          4,
		VersionName:          "1.4",
		RequestedPermissions: []string{"android.permission.INTERNET"},
	}
}

func TestBuild(t *testing.T) {
	// Create a signed archive with native code
	tempDir := t.TempDir()
	cert := archivetest.NewCertificate(t, "CN=game")
	archivePath := filepath.Join(tempDir, "game.apk")
	archivetest.Write(t, archivePath, archivetest.Options{
		Manifest: axmltest.Manifest(axmltest.ManifestSpec{
			Package:     "org.example.game",
			VersionCode: 4,
			MinSDK:      21,
			TargetSDK:   33,
		}),
		Entries: map[string][]byte{
			"lib/arm64-v8a/libgame.so":   []byte("elf"),
			"lib/armeabi-v7a/libgame.so": []byte("elf"),
		},
		Signer: cert,
	})

	// Place expansion files in shared storage
	storage := filepath.Join(tempDir, "storage")
	obb := filepath.Join(storage, "Android", "obb", "org.example.game")
	if err := os.MkdirAll(obb, 0755); err != nil {
		t.Fatalf("Failed to create obb dir: %v", err)
	}
	for _, name := range []string{"main.3.org.example.game.obb", "main.5.org.example.game.obb"} {
		if err := os.WriteFile(filepath.Join(obb, name), []byte(name), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	s, err := testBuilder(storage).Build(archivePath, testInfo())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if s.PackageName != "org.example.game" || s.VersionCode != 4 || s.VersionName != "1.4" {
		t.Errorf("identity = %s %d %s", s.PackageName, s.VersionCode, s.VersionName)
	}
	if got := s.SDK(); got != (manifest.SDKVersions{Min: 21, Target: 33, Max: manifest.UnboundedMaxSDK}) {
		t.Errorf("SDK() = %+v", got)
	}
	if want := []string{"arm64-v8a", "armeabi-v7a"}; !reflect.DeepEqual(s.NativeCode, want) {
		t.Errorf("NativeCode = %v, want %v", s.NativeCode, want)
	}
	if want := fingerprint.Legacy(cert.Raw); s.Signer != want {
		t.Errorf("Signer = %q, want %q", s.Signer, want)
	}
	if s.ExpansionMain == nil || s.ExpansionMain.Version != 3 {
		t.Errorf("ExpansionMain = %+v, want version 3", s.ExpansionMain)
	}
	if s.ExpansionPatch != nil {
		t.Errorf("ExpansionPatch = %+v, want nil", s.ExpansionPatch)
	}
	if s.HashType != "sha256" || len(s.Hash) != 64 {
		t.Errorf("hash = %s:%s", s.HashType, s.Hash)
	}
	if s.Size == 0 {
		t.Error("Size = 0, want archive size")
	}
	if len(s.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", s.Warnings)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "app.apk")
	archivetest.Write(t, archivePath, archivetest.Options{
		Manifest: axmltest.Manifest(axmltest.ManifestSpec{Package: "org.example", MinSDK: 19, MaxSDK: 28}),
		Entries:  map[string][]byte{"lib/x86/liba.so": nil, "lib/x86_64/liba.so": nil},
		Signer:   archivetest.NewCertificate(t, "CN=app"),
	})

	b := testBuilder("")
	first, err := b.Build(archivePath, PackageInfo{PackageName: "org.example", VersionCode: 1})
	if err != nil {
		t.Fatalf("first Build() failed: %v", err)
	}
	second, err := b.Build(archivePath, PackageInfo{PackageName: "org.example", VersionCode: 1})
	if err != nil {
		t.Fatalf("second Build() failed: %v", err)
	}

	if first.Signer != second.Signer {
		t.Errorf("Signer differs: %s vs %s", first.Signer, second.Signer)
	}
	if !reflect.DeepEqual(first.NativeCode, second.NativeCode) {
		t.Errorf("NativeCode differs: %v vs %v", first.NativeCode, second.NativeCode)
	}
	if first.SDK() != second.SDK() {
		t.Errorf("SDK differs: %+v vs %+v", first.SDK(), second.SDK())
	}
}

func TestBuildBestEffort(t *testing.T) {
	tempDir := t.TempDir()

	unsigned := filepath.Join(tempDir, "unsigned.apk")
	archivetest.Write(t, unsigned, archivetest.Options{
		Manifest: axmltest.Manifest(axmltest.ManifestSpec{Package: "org.example.game", OmitUsesSDK: true}),
	})

	corrupt := filepath.Join(tempDir, "corrupt.apk")
	if err := os.WriteFile(corrupt, []byte("not a zip"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt archive: %v", err)
	}

	tests := []struct {
		name         string
		path         string
		wantWarnings int
	}{
		{
			name:         "unsigned without uses-sdk",
			path:         unsigned,
			wantWarnings: 2,
		},
		{
			name:         "corrupt archive",
			path:         corrupt,
			wantWarnings: 1,
		},
		{
			name:         "missing archive",
			path:         filepath.Join(tempDir, "gone.apk"),
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := testBuilder("").Build(tt.path, testInfo())
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}

			if len(s.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", s.Warnings, tt.wantWarnings)
			}
			if s.Signed() {
				t.Errorf("Signer = %q, want empty", s.Signer)
			}
			if s.SDK() != manifest.DefaultSDKVersions() {
				t.Errorf("SDK() = %+v, want defaults", s.SDK())
			}
			if s.NativeCode == nil {
				t.Error("NativeCode = nil, want empty slice")
			}
			if s.PackageName != "org.example.game" {
				t.Errorf("PackageName = %q", s.PackageName)
			}
		})
	}
}

func TestBuildWithoutIdentity(t *testing.T) {
	_, err := testBuilder("").Build(filepath.Join(t.TempDir(), "app.apk"), PackageInfo{VersionCode: 3})
	if !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Build() error = %v, want ErrNoIdentity", err)
	}
	if !errors.Is(err, apkerr.ErrNotFound) {
		t.Errorf("Build() error = %v, want apkerr.ErrNotFound", err)
	}
}

func TestBuildFromArchive(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "app.apk")
	archivetest.Write(t, archivePath, archivetest.Options{
		Manifest: axmltest.Manifest(axmltest.ManifestSpec{
			Package:     "org.fdroid.fdroid",
			VersionCode: 1012050,
			VersionName: "1.12.5",
			Permissions: []string{"android.permission.INTERNET"},
			Features:    []string{"android.hardware.wifi"},
		}),
	})

	s, err := testBuilder("").BuildFromArchive(archivePath)
	if err != nil {
		t.Fatalf("BuildFromArchive() failed: %v", err)
	}
	if s.PackageName != "org.fdroid.fdroid" || s.VersionCode != 1012050 {
		t.Errorf("identity = %s %d", s.PackageName, s.VersionCode)
	}
	if !reflect.DeepEqual(s.Features, []string{"android.hardware.wifi"}) {
		t.Errorf("Features = %v", s.Features)
	}

	if _, err := testBuilder("").BuildFromArchive(filepath.Join(t.TempDir(), "gone.apk")); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("BuildFromArchive(missing) error = %v, want ErrNoIdentity", err)
	}
}
