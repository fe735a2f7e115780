package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/apkident/internal/archive"
	"github.com/blackwell-systems/apkident/internal/manifest"
	"github.com/blackwell-systems/apkident/internal/snapshots"
	"github.com/blackwell-systems/apkident/internal/store"
)

// Outcome is what happened to one archive during a scan.
type Outcome int

const (
	Built Outcome = iota
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Built:
		return "built"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Failure records an archive that could not be scanned.
type Failure struct {
	Path string
	Err  error
}

// Result summarizes a scan.
type Result struct {
	Run       *store.ScanRun
	Snapshots []*snapshots.Snapshot
	Failures  []Failure
}

// FindArchives returns the .apk files below dirs, sorted. Directories that
// do not exist are skipped.
func FindArchives(dirs []string) ([]string, error) {
	var found []string
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if !d.IsDir() && IsArchive(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
		}
	}
	sort.Strings(found)
	return found, nil
}

// IsArchive reports whether path names a package archive.
func IsArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".apk")
}

// ScanDirs scans every archive below dirs.
func (s *Scanner) ScanDirs(ctx context.Context, dirs []string) (*Result, error) {
	archives, err := FindArchives(dirs)
	if err != nil {
		return nil, err
	}
	return s.ScanFiles(ctx, archives)
}

// ScanFiles scans the given archives as one run. Archives are processed
// concurrently up to the configured job count. A failing archive is
// recorded in the result and does not stop the run; only cancellation of
// ctx or a store failure does.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (*Result, error) {
	run := store.NewScanRun(time.Now())
	if err := s.store.InsertScanRun(run); err != nil {
		return nil, err
	}
	run.ArchiveCount = len(paths)

	res := &Result{Run: run}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			snap, outcome, err := s.ScanArchive(path, run.ID)

			mu.Lock()
			switch outcome {
			case Built:
				run.BuiltCount++
				res.Snapshots = append(res.Snapshots, snap)
			case Skipped:
				run.SkippedCount++
			case Failed:
				run.FailedCount++
				res.Failures = append(res.Failures, Failure{Path: path, Err: err})
			}
			mu.Unlock()

			if s.opts.Progress != nil {
				s.opts.Progress(path, outcome)
			}

			if errors.Is(err, store.ErrNotInitialized) {
				return err
			}
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	sort.Slice(res.Snapshots, func(i, j int) bool {
		return res.Snapshots[i].ArchivePath < res.Snapshots[j].ArchivePath
	})
	sort.Slice(res.Failures, func(i, j int) bool {
		return res.Failures[i].Path < res.Failures[j].Path
	})

	run.FinishedAt = time.Now().UTC()
	if err := s.store.FinishScanRun(run); err != nil {
		return res, err
	}
	if waitErr != nil {
		return res, fmt.Errorf("scan interrupted: %w", waitErr)
	}
	return res, nil
}

// ScanArchive builds and stores the snapshot of one archive unless a record
// with the same package, version and hash is already known.
func (s *Scanner) ScanArchive(path, scanID string) (*snapshots.Snapshot, Outcome, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, Failed, fmt.Errorf("failed to stat archive: %w", err)
	}

	if !s.opts.Force {
		known, err := s.known(path)
		if err != nil {
			return nil, Failed, err
		}
		if known {
			s.logger.Debug("Archive already known", "path", path)
			return nil, Skipped, nil
		}
	}

	snap, err := s.builder.BuildFromArchive(path)
	if err != nil {
		s.logger.Warn("Failed to build snapshot", "path", path, "error", err)
		return nil, Failed, err
	}

	if err := s.store.PutSnapshot(snap, scanID); err != nil {
		return nil, Failed, err
	}
	return snap, Built, nil
}

// known reports whether the archive's package version is stored with the
// archive's current hash.
func (s *Scanner) known(path string) (bool, error) {
	id, err := manifest.ReadIdentity(path)
	if err != nil {
		// Unreadable identity: let the builder report it.
		return false, nil
	}

	hashType := s.builder.Options.HashType
	if hashType == "" {
		hashType = archive.DefaultHashType
	}
	hash, err := s.hash(path, hashType)
	if err != nil {
		return false, nil
	}
	return s.store.IsKnown(id.PackageName, id.VersionCode, hash)
}

// Forget removes the records built from an archive that no longer exists.
func (s *Scanner) Forget(path string) (int64, error) {
	return s.store.DeleteByArchive(path)
}
