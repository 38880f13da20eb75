// File: internal/infra/storage/local.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"echobook/internal/domain"
	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ArtifactStore = (*LocalStore)(nil)

// LocalStore keeps artifacts under a root directory. The locator returned by
// Put is the artifact's file path, so Stat and Open take paths.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Root() string { return s.root }

// Put moves localPath to <root>/<key> unless it already lives there.
func (s *LocalStore) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if filepath.Clean(localPath) == filepath.Clean(dst) {
		return dst, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.Rename(localPath, dst); err == nil {
		return dst, nil
	}
	// cross-device; fall back to copy
	if err := copyFile(localPath, dst); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	_ = os.Remove(localPath)
	return dst, nil
}

func (s *LocalStore) Stat(ctx context.Context, key string) (adapter.ObjectInfo, error) {
	fi, err := os.Stat(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return adapter.ObjectInfo{}, domain.ErrNotFound
		}
		return adapter.ObjectInfo{}, err
	}
	if fi.IsDir() {
		return adapter.ObjectInfo{}, domain.ErrNotFound
	}
	return adapter.ObjectInfo{Key: key, Size: fi.Size(), ContentType: contentTypeFor(key)}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// contentTypeFor maps an audio file name to its MIME type.
func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
