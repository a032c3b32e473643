package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// LedgerArchiver copies a user's ledger to cold storage and returns the
// object path and the number of events written.
type LedgerArchiver interface {
	ArchiveLedger(ctx context.Context, userID uuid.UUID) (path string, n int64, err error)
}
