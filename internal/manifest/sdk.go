// Package manifest reads the few fields of a compiled package manifest
// that the platform's package summary does not expose.
package manifest

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/axml"
)

const (
	// DefaultMinSDK is used when uses-sdk has no minSdkVersion.
	DefaultMinSDK = 0

	// UnboundedMaxSDK is used when uses-sdk has no maxSdkVersion.
	UnboundedMaxSDK = 127
)

// ErrNoUsesSDK indicates the manifest has no uses-sdk element.
var ErrNoUsesSDK = fmt.Errorf("no uses-sdk element: %w", apkerr.ErrNotFound)

// SDKVersions is the supported SDK range declared by a package.
type SDKVersions struct {
	Min    int
	Target int
	Max    int
}

// DefaultSDKVersions returns the triple used when the manifest cannot be
// read.
func DefaultSDKVersions() SDKVersions {
	return SDKVersions{Min: DefaultMinSDK, Target: DefaultMinSDK, Max: UnboundedMaxSDK}
}

// ScanSDK reads the SDK range from the archive's manifest.
//
// It never fails hard: on any problem it returns DefaultSDKVersions together
// with an error describing what went wrong, for the caller to log.
func ScanSDK(path string) (SDKVersions, error) {
	v := DefaultSDKVersions()
	err := archive.WithEntry(path, archive.ManifestEntry, func(r io.Reader) error {
		var err error
		v, err = ScanSDKFrom(r)
		return err
	})
	if err != nil {
		return DefaultSDKVersions(), err
	}
	return v, nil
}

// ScanSDKFrom streams a binary manifest up to its first uses-sdk element.
// The target is raised to the minimum when absent or lower.
func ScanSDKFrom(r io.Reader) (SDKVersions, error) {
	d := axml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return DefaultSDKVersions(), ErrNoUsesSDK
		}
		if err != nil {
			return DefaultSDKVersions(), fmt.Errorf("failed to read manifest: %w", err)
		}

		el, ok := tok.(axml.StartElement)
		if !ok || el.Name != "uses-sdk" {
			continue
		}

		v := DefaultSDKVersions()
		targetSet := false
		for _, a := range el.Attrs {
			var dst *int
			switch {
			case a.Is(axml.AttrMinSdkVersion):
				dst = &v.Min
			case a.Is(axml.AttrTargetSdkVersion):
				dst = &v.Target
				targetSet = true
			case a.Is(axml.AttrMaxSdkVersion):
				dst = &v.Max
			default:
				continue
			}

			n, err := a.Int()
			if err != nil {
				return DefaultSDKVersions(), fmt.Errorf("invalid uses-sdk: %w", err)
			}
			*dst = int(n)
		}

		if !targetSet || v.Target < v.Min {
			v.Target = v.Min
		}
		return v, nil
	}
}
