// Package snapshots builds and persists records of installed packages.
package snapshots

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/blackwell-systems/apkident/internal/apkerr"
	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/expansion"
	"github.com/blackwell-systems/apkident/internal/fingerprint"
	"github.com/blackwell-systems/apkident/internal/manifest"
)

// ErrNoIdentity indicates the package identity could not be determined.
// It is the only error that makes Build fail.
var ErrNoIdentity = fmt.Errorf("package identity unavailable: %w", apkerr.ErrNotFound)

// Options configures a Builder.
type Options struct {
	// StorageRoot is the shared storage directory holding Android/obb.
	// Expansion files are not looked up when it is empty.
	StorageRoot string

	// HashType names the content hash algorithm, sha256 when empty.
	HashType string
}

// HashFunc hashes the file at path.
type HashFunc func(path, hashType string) (string, error)

// Builder builds snapshots from archives.
type Builder struct {
	Options Options
	Logger  *slog.Logger

	// Hash computes archive hashes. Defaults to archive.HashFile.
	Hash HashFunc

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a Builder. A nil logger uses slog.Default().
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HashType == "" {
		opts.HashType = archive.DefaultHashType
	}
	return &Builder{
		Options: opts,
		Logger:  logger,
		Hash:    archive.HashFile,
		Now:     time.Now,
	}
}

// Build builds the snapshot of the archive at path for the given identity.
//
// Stages run in order: identity and archive hash, native ABIs, SDK range,
// expansion files, signer certificate. A failing stage leaves its fields at
// their defaults, is logged, and is recorded in Warnings. Only a missing
// package name fails the build.
func (b *Builder) Build(path string, info PackageInfo) (*Snapshot, error) {
	if info.PackageName == "" {
		return nil, &apkerr.Error{Op: "build snapshot", Path: path, Err: ErrNoIdentity}
	}

	sdk := manifest.DefaultSDKVersions()
	s := &Snapshot{
		PackageName:          info.PackageName,
		VersionCode:          info.VersionCode,
		VersionName:          info.VersionName,
		MinSDK:               sdk.Min,
		TargetSDK:            sdk.Target,
		MaxSDK:               sdk.Max,
		RequestedPermissions: copyStrings(info.RequestedPermissions),
		Features:             copyStrings(info.Features),
		NativeCode:           []string{},
		HashType:             b.hashType(),
		ArchivePath:          path,
		ScannedAt:            b.now(),
	}

	readable := b.stageArchive(s)

	if readable {
		abis, err := archive.ScanNativeABIs(path)
		if err != nil {
			b.warn(s, "abi", err)
		} else {
			s.NativeCode = abis
		}

		v, err := manifest.ScanSDK(path)
		if err != nil {
			b.warn(s, "sdk", err)
		}
		s.MinSDK, s.TargetSDK, s.MaxSDK = v.Min, v.Target, v.Max
	}

	if b.Options.StorageRoot != "" {
		dir := expansion.Dir(b.Options.StorageRoot, s.PackageName)
		res := expansion.Resolve(dir, s.PackageName, s.VersionCode, s.HashType)
		s.ExpansionMain, s.ExpansionPatch = res.Main, res.Patch
	}

	if readable {
		raw, err := archive.ExtractSignerCertificate(path)
		if err != nil {
			b.warn(s, "certificate", err)
		} else {
			s.Signer = fingerprint.Legacy(raw)
		}
	}

	return s, nil
}

// BuildFromArchive builds a snapshot using the identity declared in the
// archive's own manifest.
func (b *Builder) BuildFromArchive(path string) (*Snapshot, error) {
	id, err := manifest.ReadIdentity(path)
	if err != nil && id.PackageName == "" {
		return nil, &apkerr.Error{Op: "build snapshot", Path: path, Err: fmt.Errorf("%w: %w", ErrNoIdentity, err)}
	}
	if err != nil {
		b.logger().Warn("Manifest partially read", "path", path, "error", err)
	}
	return b.Build(path, InfoFromIdentity(id))
}

// stageArchive records size and hash and reports whether the archive can
// be read at all.
func (b *Builder) stageArchive(s *Snapshot) bool {
	fi, err := os.Stat(s.ArchivePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %w", apkerr.ErrNotFound, err)
		}
		b.warn(s, "archive", err)
		return false
	}
	s.Size = fi.Size()

	rc, err := archive.Open(s.ArchivePath)
	if err != nil {
		b.warn(s, "archive", err)
		return false
	}
	rc.Close()

	hash := b.Hash
	if hash == nil {
		hash = archive.HashFile
	}
	sum, err := hash(s.ArchivePath, s.HashType)
	if err != nil {
		b.warn(s, "hash", err)
		return false
	}
	s.Hash = sum
	return true
}

func (b *Builder) warn(s *Snapshot, stage string, err error) {
	b.logger().Warn("Snapshot stage failed",
		"package", s.PackageName,
		"stage", stage,
		"error", err,
	)
	s.Warnings = append(s.Warnings, fmt.Sprintf("%s: %v", stage, err))
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

func (b *Builder) hashType() string {
	if b.Options.HashType == "" {
		return archive.DefaultHashType
	}
	return b.Options.HashType
}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

func copyStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append([]string(nil), in...)
}
