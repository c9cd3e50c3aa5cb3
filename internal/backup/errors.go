package backup

import (
	"errors"
	"fmt"
)

// Common backup errors
var (
	// ErrUnauthorized is returned by a Remote when its credentials were
	// rejected or could not be refreshed. The scheduler signs the remote out
	// when it sees this error.
	ErrUnauthorized = errors.New("remote rejected credentials")

	// ErrNotSignedIn is returned by manual operations when the remote has no
	// session.
	ErrNotSignedIn = errors.New("remote is not signed in")
)

// Error wraps a failure of one backup operation.
type Error struct {
	// Op is the operation that failed (e.g., "Upload", "Cleanup").
	Op string

	// Snapshot is the snapshot name or ID involved, if any.
	Snapshot string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Snapshot != "" {
		return fmt.Sprintf("backup: %s %s failed: %v", e.Op, e.Snapshot, e.Err)
	}
	return fmt.Sprintf("backup: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps err as an *Error unless it already is one.
func wrapError(op, snapshot string, err error) error {
	if err == nil {
		return nil
	}

	var backupErr *Error
	if errors.As(err, &backupErr) {
		return err
	}

	return &Error{Op: op, Snapshot: snapshot, Err: err}
}
