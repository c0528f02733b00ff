package blobstore

import (
	"context"
	"io"
)

// PutResult describes one persisted blob payload.
type PutResult struct {
	Key       string
	SizeBytes int64
}

// BlobStore is the byte-storage abstraction used by FileService.
// Delete is idempotent: removing an absent key succeeds.
type BlobStore interface {
	Put(ctx context.Context, r io.Reader, suggestedExt string) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Size(ctx context.Context, key string) (int64, error)
}
