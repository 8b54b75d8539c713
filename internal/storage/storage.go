package storage

import (
	"context"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// FileStorage defines the interface for blob store operations. The rest of
// the system treats the store as opaque durable key-addressed storage; the
// S3 implementation is the production backend, tests use an in-memory fake.
type FileStorage interface {
	// Upload stores an object under key. size must match the reader's length.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// Copy duplicates an object within the store.
	Copy(ctx context.Context, srcKey, dstKey string) error

	// Compose concatenates the source objects, in the given order, into one
	// object at dstKey and returns its total size. Used by chunked upload
	// finalize to assemble the received chunks.
	Compose(ctx context.Context, dstKey string, srcKeys []string, contentType string) (int64, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for downloading/viewing an object directly from the provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// GeneratePresignedUploadURL creates a temporary URL that allows PUT
	// requests for uploading an object directly to the provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)
}
