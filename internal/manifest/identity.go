package manifest

import (
	"fmt"
	"io"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/axml"
)

// ErrNoIdentity indicates the manifest does not name its package.
var ErrNoIdentity = fmt.Errorf("manifest has no package name: %w", apkerr.ErrNotFound)

// Identity is what the platform would otherwise report about an installed
// package. It is read from the archive only when no platform is available.
type Identity struct {
	PackageName string
	VersionCode int64
	VersionName string
	Permissions []string
	Features    []string
}

// ReadIdentity reads the package identity from the archive's manifest.
func ReadIdentity(path string) (Identity, error) {
	var id Identity
	err := archive.WithEntry(path, archive.ManifestEntry, func(r io.Reader) error {
		var err error
		id, err = ReadIdentityFrom(r)
		return err
	})
	return id, err
}

// ReadIdentityFrom reads the root manifest attributes and the requested
// permissions and features. If the document breaks after the package name
// was read, the partial identity is returned along with the error.
func ReadIdentityFrom(r io.Reader) (Identity, error) {
	var id Identity
	d := axml.NewDecoder(r)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return id, fmt.Errorf("failed to read manifest: %w", err)
		}

		el, ok := tok.(axml.StartElement)
		if !ok {
			continue
		}

		switch el.Name {
		case "manifest":
			if a, ok := el.AttrByName("package"); ok {
				id.PackageName = a.Value()
			}
			if a, ok := el.Attr(axml.AttrVersionCode); ok {
				n, err := a.Int()
				if err != nil {
					return id, fmt.Errorf("invalid versionCode: %w", err)
				}
				id.VersionCode = n
			}
			if a, ok := el.Attr(axml.AttrVersionName); ok {
				id.VersionName = a.Value()
			}
		case "uses-permission", "uses-permission-sdk-23":
			if a, ok := el.Attr(axml.AttrName); ok && a.Value() != "" {
				id.Permissions = append(id.Permissions, a.Value())
			}
		case "uses-feature":
			if a, ok := el.Attr(axml.AttrName); ok && a.Value() != "" {
				id.Features = append(id.Features, a.Value())
			}
		}
	}

	if id.PackageName == "" {
		return id, ErrNoIdentity
	}
	return id, nil
}
