package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/Jan-H2M/vidsum/pkg/client/s3"
)

// S3Backend is the durable remote backend, talking to any S3-compatible
// object store.
type S3Backend struct {
	storage *s3.StorageS3
}

// NewS3Backend validates the configured credentials by checking the bucket
// exists before the backend is selected.
func NewS3Backend(ctx context.Context, storage *s3.StorageS3) (*S3Backend, error) {
	if storage == nil || storage.Client == nil {
		return nil, fmt.Errorf("s3 client not initialized")
	}
	ok, err := storage.Client.BucketExists(ctx, storage.Bucket)
	if err != nil {
		return nil, fmt.Errorf("s3 bucket check: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("s3 bucket %q does not exist", storage.Bucket)
	}
	return &S3Backend{storage: storage}, nil
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := b.storage.Client.PutObject(
		ctx,
		b.storage.Bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeFor(key)},
	)
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", b.storage.Bucket, key), nil
}

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.storage.Client.GetObject(ctx, b.storage.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ErrNotFound
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, ErrNotFound
	}
	return data, nil
}

func (b *S3Backend) Delete(ctx context.Context, key string) error {
	return b.storage.Client.RemoveObject(ctx, b.storage.Bucket, key, minio.RemoveObjectOptions{})
}

func contentTypeFor(key string) string {
	switch {
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	case strings.HasSuffix(key, ".jpg"), strings.HasSuffix(key, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
