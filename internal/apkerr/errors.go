// Package apkerr defines the error taxonomy shared by the archive scanners.
//
// Component errors wrap one of the taxonomy sentinels so callers can branch
// on either the specific condition or its class:
//
//	if errors.Is(err, archive.ErrNoCertificate) { ... }
//	if errors.Is(err, apkerr.ErrNotFound) { ... }
package apkerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a missing archive, file or entry. Recoverable:
	// callers proceed with defaults.
	ErrNotFound = errors.New("not found")

	// ErrMalformed indicates structurally invalid data where valid data was
	// expected. Recoverable per field or per entry.
	ErrMalformed = errors.New("malformed")

	// ErrUnsupported indicates data that is present but cannot be used,
	// such as an entry without certificates.
	ErrUnsupported = errors.New("unsupported")
)

// Error wraps an error with the operation and path it occurred on.
type Error struct {
	Op   string // Operation that failed
	Path string // File or entry path if applicable
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy sentinel err belongs to, or nil if it is
// outside the taxonomy (I/O failures below this layer).
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrMalformed):
		return ErrMalformed
	case errors.Is(err, ErrUnsupported):
		return ErrUnsupported
	}
	return nil
}
