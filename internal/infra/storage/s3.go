// File: internal/infra/storage/s3.go
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"echobook/internal/config"
	"echobook/internal/domain"
	"echobook/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ArtifactStore = (*S3Store)(nil)

// S3Store publishes artifacts to an S3-compatible bucket. Locators are
// object keys.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: "audiobooks"}, nil
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(s.prefix, strings.TrimPrefix(key, "/"))
}

// Put uploads localPath under the store prefix and returns the object key.
func (s *S3Store) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	objKey := s.objectKey(key)
	_, err := s.client.FPutObject(ctx, s.bucket, objKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return objKey, nil
}

func (s *S3Store) Stat(ctx context.Context, key string) (adapter.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return adapter.ObjectInfo{}, mapS3Error(err)
	}
	return adapter.ObjectInfo{Key: key, Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapS3Error(err)
	}
	// GetObject is lazy; surface a missing key now rather than mid-stream.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapS3Error(err)
	}
	return obj, nil
}

func mapS3Error(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return err
}
