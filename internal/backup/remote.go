// Package backup mirrors the dataset to a remote object store.
//
// The Scheduler consumes the store's change channel and uploads a fresh
// snapshot once the data has been quiet for a configurable period. Every
// upload creates a new object; successful uploads are followed by a cleanup
// that deletes snapshots older than the retention window.
package backup

import (
	"context"
	"time"
)

// Snapshot describes one uploaded backup object.
type Snapshot struct {
	ID           string
	Name         string
	ModifiedTime time.Time
	Size         int64
}

// Remote is the backup target. Implementations return errors wrapping
// ErrUnauthorized when credentials are rejected.
type Remote interface {
	// Authenticated reports whether the remote has a usable session.
	Authenticated(ctx context.Context) bool

	// List returns the snapshots whose name starts with prefix.
	List(ctx context.Context, prefix string) ([]Snapshot, error)

	// Upload stores data as a new object named name.
	Upload(ctx context.Context, name string, data []byte) (Snapshot, error)

	// Download returns the content of the snapshot with id.
	Download(ctx context.Context, id string) ([]byte, error)

	// Delete removes the snapshot with id.
	Delete(ctx context.Context, id string) error

	// SignOut drops the session and any stored credentials.
	SignOut(ctx context.Context) error
}
