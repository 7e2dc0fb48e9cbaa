package storage

import (
	"context"
	"io"
)

// ObjectStorage is the write side of an object store used by the payload archive.
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// BucketInitializer is implemented by stores that can create their bucket on startup.
type BucketInitializer interface {
	EnsureBucket(ctx context.Context) error
}
