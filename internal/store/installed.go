package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/apkident/internal/snapshots"
)

const installedColumns = `
	package_name, version_code, version_name, min_sdk, target_sdk, max_sdk,
	permissions, features, native_code, signer, hash_type, hash,
	expansion_main, expansion_patch, archive_path, size_bytes, scanned_at,
	warnings, scan_id`

// PutSnapshot inserts or replaces the record for the snapshot's package and
// version.
func (s *Store) PutSnapshot(snap *snapshots.Snapshot, scanID string) error {
	lists := map[string]any{}
	for name, v := range map[string]any{
		"permissions":     snap.RequestedPermissions,
		"features":        snap.Features,
		"native_code":     snap.NativeCode,
		"warnings":        snap.Warnings,
		"expansion_main":  snap.ExpansionMain,
		"expansion_patch": snap.ExpansionPatch,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal %s for %s: %w", name, snap.PackageName, err)
		}
		lists[name] = string(data)
	}

	query := `INSERT OR REPLACE INTO installed (` + installedColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		snap.PackageName,
		snap.VersionCode,
		snap.VersionName,
		snap.MinSDK,
		snap.TargetSDK,
		snap.MaxSDK,
		lists["permissions"],
		lists["features"],
		lists["native_code"],
		snap.Signer,
		snap.HashType,
		snap.Hash,
		lists["expansion_main"],
		lists["expansion_patch"],
		snap.ArchivePath,
		snap.Size,
		snap.ScannedAt.UTC().Format(timeLayout),
		lists["warnings"],
		scanID,
	)
	if err != nil {
		return wrapErr("insert snapshot "+snap.PackageName, err)
	}
	return nil
}

// GetSnapshot returns the record of a package version.
func (s *Store) GetSnapshot(packageName string, versionCode int64) (*snapshots.Snapshot, error) {
	query := `SELECT ` + installedColumns + ` FROM installed
		WHERE package_name = ? AND version_code = ?`

	snap, err := scanSnapshot(s.db.QueryRow(query, packageName, versionCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s@%d: %w", packageName, versionCode, ErrRecordNotFound)
	}
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get snapshot %s@%d", packageName, versionCode), err)
	}
	return snap, nil
}

// LatestSnapshot returns the record with the highest version code of a
// package.
func (s *Store) LatestSnapshot(packageName string) (*snapshots.Snapshot, error) {
	query := `SELECT ` + installedColumns + ` FROM installed
		WHERE package_name = ?
		ORDER BY version_code DESC
		LIMIT 1`

	snap, err := scanSnapshot(s.db.QueryRow(query, packageName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s: %w", packageName, ErrRecordNotFound)
	}
	if err != nil {
		return nil, wrapErr("get latest snapshot "+packageName, err)
	}
	return snap, nil
}

// ListSnapshots returns all records ordered by package and version.
func (s *Store) ListSnapshots() ([]*snapshots.Snapshot, error) {
	query := `SELECT ` + installedColumns + ` FROM installed
		ORDER BY package_name, version_code`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapErr("list snapshots", err)
	}
	defer rows.Close()

	var list []*snapshots.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		list = append(list, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return list, nil
}

// IsKnown reports whether a record exists for the package version with the
// given archive hash.
func (s *Store) IsKnown(packageName string, versionCode int64, hash string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM installed WHERE package_name = ? AND version_code = ? AND hash = ?`,
		packageName, versionCode, hash,
	).Scan(&count)
	if err != nil {
		return false, wrapErr("check known snapshot", err)
	}
	return count > 0, nil
}

// DeleteSnapshot removes a record. Deleting a missing record is not an
// error.
func (s *Store) DeleteSnapshot(packageName string, versionCode int64) error {
	_, err := s.db.Exec(`DELETE FROM installed WHERE package_name = ? AND version_code = ?`, packageName, versionCode)
	if err != nil {
		return wrapErr(fmt.Sprintf("delete snapshot %s@%d", packageName, versionCode), err)
	}
	return nil
}

// DeleteByArchive removes every record built from the archive at path.
func (s *Store) DeleteByArchive(path string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM installed WHERE archive_path = ?`, path)
	if err != nil {
		return 0, wrapErr("delete snapshots of "+path, err)
	}
	return res.RowsAffected()
}

// CountSnapshots returns the number of records.
func (s *Store) CountSnapshots() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM installed`).Scan(&count); err != nil {
		return 0, wrapErr("count snapshots", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*snapshots.Snapshot, error) {
	var snap snapshots.Snapshot
	var versionName, signer, hashType, hash, scanID sql.NullString
	var permissions, features, nativeCode, warnings, expMain, expPatch sql.NullString
	var size sql.NullInt64
	var scannedAt string

	err := row.Scan(
		&snap.PackageName,
		&snap.VersionCode,
		&versionName,
		&snap.MinSDK,
		&snap.TargetSDK,
		&snap.MaxSDK,
		&permissions,
		&features,
		&nativeCode,
		&signer,
		&hashType,
		&hash,
		&expMain,
		&expPatch,
		&snap.ArchivePath,
		&size,
		&scannedAt,
		&warnings,
		&scanID,
	)
	if err != nil {
		return nil, err
	}

	snap.VersionName = versionName.String
	snap.Signer = signer.String
	snap.HashType = hashType.String
	snap.Hash = hash.String
	snap.Size = size.Int64

	// Parse scanned_at timestamp
	snap.ScannedAt, err = time.Parse(timeLayout, scannedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scanned_at for %s: %w", snap.PackageName, err)
	}

	for _, f := range []struct {
		name string
		raw  sql.NullString
		dst  any
	}{
		{"permissions", permissions, &snap.RequestedPermissions},
		{"features", features, &snap.Features},
		{"native_code", nativeCode, &snap.NativeCode},
		{"warnings", warnings, &snap.Warnings},
		{"expansion_main", expMain, &snap.ExpansionMain},
		{"expansion_patch", expPatch, &snap.ExpansionPatch},
	} {
		if !f.raw.Valid || f.raw.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw.String), f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s for %s: %w", f.name, snap.PackageName, err)
		}
	}

	if snap.NativeCode == nil {
		snap.NativeCode = []string{}
	}
	return &snap, nil
}
