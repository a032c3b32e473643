package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/satfolio/internal/blob/s3"
	"github.com/alanyoungcy/satfolio/internal/domain"
)

const backfillLockTTL = 10 * time.Minute

// CloseImporter stores a batch of historical closes.
type CloseImporter interface {
	ImportCloses(ctx context.Context, closes []domain.MonthlyClose) (int, error)
}

// CloseBackfill imports month-end closes from a JSONL object in the bucket.
type CloseBackfill struct {
	reader   domain.BlobReader
	importer CloseImporter
	locks    domain.LockManager
	logger   *slog.Logger
}

// NewCloseBackfill creates a CloseBackfill.
func NewCloseBackfill(reader domain.BlobReader, importer CloseImporter, locks domain.LockManager, logger *slog.Logger) *CloseBackfill {
	return &CloseBackfill{
		reader:   reader,
		importer: importer,
		locks:    locks,
		logger:   logger.With(slog.String("component", "close_backfill")),
	}
}

// Run imports every close in the object at path. Only one backfill runs at
// a time across processes.
func (b *CloseBackfill) Run(ctx context.Context, path string) (int, error) {
	unlock, err := b.locks.Acquire(ctx, "backfill:closes", backfillLockTTL)
	if err != nil {
		return 0, fmt.Errorf("backfill: %w", err)
	}
	defer unlock()

	started := time.Now()
	closes, err := s3blob.ReadCloses(ctx, b.reader, path)
	if err != nil {
		return 0, fmt.Errorf("backfill: read %s: %w", path, err)
	}
	if len(closes) == 0 {
		b.logger.Warn("backfill object holds no closes", slog.String("path", path))
		return 0, nil
	}

	n, err := b.importer.ImportCloses(ctx, closes)
	if err != nil {
		return 0, fmt.Errorf("backfill: import: %w", err)
	}

	b.logger.Info("backfill complete",
		slog.String("path", path),
		slog.Int("closes", n),
		slog.String("from", closes[0].Month.String()),
		slog.String("to", closes[len(closes)-1].Month.String()),
		slog.Duration("duration", time.Since(started)),
	)
	return n, nil
}
