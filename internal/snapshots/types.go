package snapshots

import (
	"time"

	"github.com/blackwell-systems/apkident/internal/expansion"
	"github.com/blackwell-systems/apkident/internal/manifest"
)

// Snapshot is the record of one installed package at one point in time.
// It holds copies of everything it reports; the archive may disappear
// right after the snapshot is built.
type Snapshot struct {
	PackageName string `json:"package_name"`
	VersionCode int64  `json:"version_code"`
	VersionName string `json:"version_name"`

	MinSDK    int `json:"min_sdk"`
	TargetSDK int `json:"target_sdk"`
	MaxSDK    int `json:"max_sdk"`

	RequestedPermissions []string `json:"requested_permissions"`
	Features             []string `json:"features"`
	NativeCode           []string `json:"native_code"`

	// Signer is the legacy fingerprint of the signer certificate, empty
	// when it could not be read.
	Signer string `json:"signer,omitempty"`

	HashType string `json:"hash_type"`
	Hash     string `json:"hash,omitempty"`

	ExpansionMain  *expansion.File `json:"expansion_main,omitempty"`
	ExpansionPatch *expansion.File `json:"expansion_patch,omitempty"`

	ArchivePath string    `json:"archive_path"`
	Size        int64     `json:"size"`
	ScannedAt   time.Time `json:"scanned_at"`

	// Warnings lists the best-effort stages that failed.
	Warnings []string `json:"warnings,omitempty"`
}

// PackageInfo is the identity the platform reports for an installed
// package.
type PackageInfo struct {
	PackageName          string
	VersionCode          int64
	VersionName          string
	RequestedPermissions []string
	Features             []string
}

// InfoFromIdentity converts an identity read from the archive manifest.
func InfoFromIdentity(id manifest.Identity) PackageInfo {
	return PackageInfo{
		PackageName:          id.PackageName,
		VersionCode:          id.VersionCode,
		VersionName:          id.VersionName,
		RequestedPermissions: id.Permissions,
		Features:             id.Features,
	}
}

// SDK returns the snapshot's SDK range.
func (s *Snapshot) SDK() manifest.SDKVersions {
	return manifest.SDKVersions{Min: s.MinSDK, Target: s.TargetSDK, Max: s.MaxSDK}
}

// Signed reports whether a signer fingerprint was recorded.
func (s *Snapshot) Signed() bool {
	return s.Signer != ""
}
