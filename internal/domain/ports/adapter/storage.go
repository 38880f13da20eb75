package adapter

import (
	"context"
	"io"
)

// ObjectInfo describes a stored artifact.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// ArtifactStore persists finished audio artifacts and serves them for download.
// Stat and Open return domain.ErrNotFound when the key is absent.
type ArtifactStore interface {
	Put(ctx context.Context, key, localPath, contentType string) (string, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
