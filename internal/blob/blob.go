// Package blob abstracts attachment byte storage away from the
// registration workflow. The workflow stores only metadata; bytes live
// behind this interface.
package blob

import (
	"context"
	"io"
)

// Store persists attachment content under caller-chosen paths.
type Store interface {
	// Put writes the object and returns the public URL it is reachable at.
	Put(ctx context.Context, path, contentType string, body io.Reader, size int64) (string, error)

	// Get streams the object back. Returns sentinel.ErrNotFound for an
	// unknown path.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object. Deleting an absent path is a no-op.
	Delete(ctx context.Context, path string) error
}
