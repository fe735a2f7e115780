package manifest

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/archive/archivetest"
	"github.com/blackwell-systems/apkident/internal/axml/axmltest"
)

func writeArchive(t *testing.T, manifest []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.apk")
	archivetest.Write(t, path, archivetest.Options{Manifest: manifest})
	return path
}

func TestScanSDK(t *testing.T) {
	tests := []struct {
		name string
		spec axmltest.ManifestSpec
		want SDKVersions
	}{
		{
			name: "all attributes",
			spec: axmltest.ManifestSpec{Package: "org.example", MinSDK: 21, TargetSDK: 33, MaxSDK: 34},
			want: SDKVersions{Min: 21, Target: 33, Max: 34},
		},
		{
			name: "target absent follows min",
			spec: axmltest.ManifestSpec{Package: "org.example", MinSDK: 19},
			want: SDKVersions{Min: 19, Target: 19, Max: UnboundedMaxSDK},
		},
		{
			name: "target below min is raised",
			spec: axmltest.ManifestSpec{Package: "org.example", MinSDK: 24, TargetSDK: 14},
			want: SDKVersions{Min: 24, Target: 24, Max: UnboundedMaxSDK},
		},
		{
			name: "empty uses-sdk",
			spec: axmltest.ManifestSpec{Package: "org.example"},
			want: DefaultSDKVersions(),
		},
		{
			name: "names resolved through resource ids",
			spec: axmltest.ManifestSpec{Package: "org.example", MinSDK: 16, TargetSDK: 30, StripNames: true},
			want: SDKVersions{Min: 16, Target: 30, Max: UnboundedMaxSDK},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArchive(t, axmltest.Manifest(tt.spec))

			got, err := ScanSDK(path)
			if err != nil {
				t.Fatalf("ScanSDK() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanSDK() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScanSDKDecimalString(t *testing.T) {
	doc := axmltest.New().
		Namespace("android", axmltest.AndroidNS).
		Start("manifest", axmltest.String("", "package", 0, "org.example")).
		Start("uses-sdk",
			axmltest.String(axmltest.AndroidNS, "minSdkVersion", 0x0101020c, "23"),
			axmltest.String(axmltest.AndroidNS, "targetSdkVersion", 0x01010270, "29"),
		).
		End("uses-sdk").
		End("manifest").
		Bytes()

	got, err := ScanSDKFrom(bytes.NewReader(doc))
	if err != nil {
		t.Fatalf("ScanSDKFrom() error = %v", err)
	}
	want := SDKVersions{Min: 23, Target: 29, Max: UnboundedMaxSDK}
	if got != want {
		t.Errorf("ScanSDKFrom() = %+v, want %+v", got, want)
	}
}

func TestScanSDKFallsBackToDefaults(t *testing.T) {
	codename := axmltest.New().
		Namespace("android", axmltest.AndroidNS).
		Start("manifest", axmltest.String("", "package", 0, "org.example")).
		Start("uses-sdk",
			axmltest.Int(axmltest.AndroidNS, "minSdkVersion", 0x0101020c, 21),
			axmltest.String(axmltest.AndroidNS, "targetSdkVersion", 0x01010270, "UpsideDownCake"),
		).
		End("uses-sdk").
		End("manifest").
		Bytes()

	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantKind error
	}{
		{
			name:     "missing archive",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.apk") },
			wantKind: apkerr.ErrNotFound,
		},
		{
			name: "no manifest entry",
			path: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "app.apk")
				archivetest.Write(t, path, archivetest.Options{
					Entries: map[string][]byte{"classes.dex": []byte("dex")},
				})
				return path
			},
			wantKind: apkerr.ErrNotFound,
		},
		{
			name:     "not binary xml",
			path:     func(t *testing.T) string { return writeArchive(t, []byte("<manifest/>")) },
			wantKind: apkerr.ErrMalformed,
		},
		{
			name: "no uses-sdk",
			path: func(t *testing.T) string {
				return writeArchive(t, axmltest.Manifest(axmltest.ManifestSpec{Package: "org.example", OmitUsesSDK: true}))
			},
			wantKind: apkerr.ErrNotFound,
		},
		{
			name:     "string pool start past chunk end",
			path:     func(t *testing.T) string { return writeArchive(t, axmltest.StringPoolPastEnd()) },
			wantKind: apkerr.ErrMalformed,
		},
		{
			name:     "preview codename",
			path:     func(t *testing.T) string { return writeArchive(t, codename) },
			wantKind: apkerr.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanSDK(tt.path(t))
			if err == nil {
				t.Fatal("ScanSDK() error = nil, want error")
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("ScanSDK() error = %v, want %v", err, tt.wantKind)
			}
			if got != DefaultSDKVersions() {
				t.Errorf("ScanSDK() = %+v, want defaults %+v", got, DefaultSDKVersions())
			}
		})
	}
}

func TestScanSDKFromStringPoolPastEnd(t *testing.T) {
	got, err := ScanSDKFrom(bytes.NewReader(axmltest.StringPoolPastEnd()))
	if !errors.Is(err, apkerr.ErrMalformed) {
		t.Errorf("ScanSDKFrom() error = %v, want ErrMalformed", err)
	}
	if got != DefaultSDKVersions() {
		t.Errorf("ScanSDKFrom() = %+v, want defaults %+v", got, DefaultSDKVersions())
	}
}
