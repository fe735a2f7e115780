package store

import (
	"time"

	"github.com/google/uuid"
)

// ScanRun records one pass of the scanner over the archive directories.
type ScanRun struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
	ArchiveCount int
	BuiltCount   int
	SkippedCount int
	FailedCount  int
}

// NewScanRun starts a run with a fresh ID.
func NewScanRun(now time.Time) *ScanRun {
	return &ScanRun{
		ID:        uuid.NewString(),
		StartedAt: now.UTC(),
	}
}

// Finished reports whether the run completed.
func (r *ScanRun) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns how long the run took, or zero while running.
func (r *ScanRun) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
