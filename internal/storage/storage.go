// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStorage is the interface for storing and serving binary objects.
// The bucket is a per-call parameter because every metadata record carries
// the bucket its object lives in.
type ObjectStorage interface {
	// Upload streams data to the store under (bucket, key).
	Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes the object at (bucket, key).
	Delete(ctx context.Context, bucket, key string) error
	// PresignedURL returns a time-limited URL granting read access to (bucket, key).
	PresignedURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
	// EnsureBucket creates the bucket if it does not exist. Idempotent;
	// called once at startup, not per request.
	EnsureBucket(ctx context.Context, bucket string) error
}
