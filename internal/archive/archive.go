// Package archive reads installed package archives: the signer certificate
// of the manifest entry, the native ABI directories and content hashes.
//
// Every function opens its own handle and releases it before returning, so
// scanners can run against the same archive independently.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/zip"

	"github.com/blackwell-systems/apkident/internal/apkerr"
)

// ManifestEntry is the canonical name of the binary manifest inside an
// archive. Its signers are the signers of the package.
const ManifestEntry = "AndroidManifest.xml"

var (
	// ErrArchiveUnreadable indicates the archive is missing or corrupt.
	ErrArchiveUnreadable = errors.New("archive unreadable")

	// ErrManifestEntryMissing indicates the archive has no manifest entry.
	ErrManifestEntryMissing = fmt.Errorf("manifest entry missing: %w", apkerr.ErrNotFound)

	// ErrNoCertificate indicates the manifest entry is present but unsigned.
	ErrNoCertificate = fmt.Errorf("no certificate: %w", apkerr.ErrUnsupported)
)

// Open opens the archive at path. Failures wrap ErrArchiveUnreadable and
// either apkerr.ErrNotFound (missing file) or apkerr.ErrMalformed.
func Open(path string) (*zip.ReadCloser, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		kind := apkerr.ErrMalformed
		if errors.Is(err, fs.ErrNotExist) {
			kind = apkerr.ErrNotFound
		}
		return nil, &apkerr.Error{
			Op:   "open archive",
			Path: path,
			Err:  fmt.Errorf("%w: %w: %w", ErrArchiveUnreadable, kind, err),
		}
	}
	return rc, nil
}

// findEntry returns the archive entry with the exact name, or nil.
func findEntry(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// WithEntry opens the archive, streams the named entry to fn and releases
// both handles before returning, whether fn succeeds or not.
func WithEntry(path, name string, fn func(io.Reader) error) error {
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	f := findEntry(&rc.Reader, name)
	if f == nil {
		return &apkerr.Error{Op: "open entry", Path: path, Err: fmt.Errorf("%w: %s", ErrManifestEntryMissing, name)}
	}

	er, err := f.Open()
	if err != nil {
		return &apkerr.Error{Op: "open entry", Path: path, Err: fmt.Errorf("%w: %w", apkerr.ErrMalformed, err)}
	}
	defer er.Close()

	return fn(er)
}
