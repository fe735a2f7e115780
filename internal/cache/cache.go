// Package cache removes expired files from the apkident cache directory.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// StrayKeepTime applies to interrupted downloads and index files.
	StrayKeepTime = time.Hour

	// IconKeepTime applies to cached icons.
	IconKeepTime = 365 * 24 * time.Hour
)

// Cache subdirectories.
const (
	ArchivesDir = "apks"
	IconsDir    = "icons"
)

// Stats counts what a cleanup removed.
type Stats struct {
	Files int
	Dirs  int
	Bytes int64
}

func (s *Stats) add(o Stats) {
	s.Files += o.Files
	s.Dirs += o.Dirs
	s.Bytes += o.Bytes
}

// Clean removes archives older than keep, stray index and download files
// older than StrayKeepTime and icons older than IconKeepTime. A missing
// cache directory is not an error.
func Clean(cacheDir string, keep time.Duration, now time.Time) (Stats, error) {
	var total Stats
	var errs []error

	st, err := ClearOldFiles(filepath.Join(cacheDir, ArchivesDir), keep, now)
	total.add(st)
	errs = append(errs, err)

	entries, err := os.ReadDir(cacheDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("failed to read cache directory: %w", err))
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "index-") || strings.HasPrefix(name, "dl-") {
			st, err := ClearOldFiles(filepath.Join(cacheDir, name), StrayKeepTime, now)
			total.add(st)
			errs = append(errs, err)
		}
	}

	st, err = ClearOldFiles(filepath.Join(cacheDir, IconsDir), IconKeepTime, now)
	total.add(st)
	errs = append(errs, err)

	return total, errors.Join(errs...)
}

// ClearOldFiles removes the files below root last modified more than keep
// before now, and the directories left empty. root itself is kept when it
// is a directory; when it is a file it is removed if old. A missing root is
// not an error.
func ClearOldFiles(root string, keep time.Duration, now time.Time) (Stats, error) {
	fi, err := os.Lstat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	cutoff := now.Add(-keep)
	if !fi.IsDir() {
		return removeIfOld(root, fi, cutoff)
	}
	return clearDir(root, cutoff)
}

func clearDir(dir string, cutoff time.Time) (Stats, error) {
	var st Stats
	var errs []error

	entries, err := os.ReadDir(dir)
	if err != nil {
		return st, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			sub, err := clearDir(path, cutoff)
			st.add(sub)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			// Fails harmlessly when the directory still holds fresh files.
			if os.Remove(path) == nil {
				st.Dirs++
			}
			continue
		}

		fi, err := e.Info()
		if err != nil {
			continue
		}
		sub, err := removeIfOld(path, fi, cutoff)
		st.add(sub)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return st, errors.Join(errs...)
}

func removeIfOld(path string, fi os.FileInfo, cutoff time.Time) (Stats, error) {
	if !fi.ModTime().Before(cutoff) {
		return Stats{}, nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Stats{}, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return Stats{Files: 1, Bytes: fi.Size()}, nil
}
