package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// LedgerStore persists user ledger events.
type LedgerStore interface {
	Create(ctx context.Context, ev LedgerEvent) error
	Update(ctx context.Context, ev LedgerEvent) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (LedgerEvent, error)
	ListByUser(ctx context.Context, userID uuid.UUID, opts ListOpts) ([]LedgerEvent, error)
	// ListForValuation returns every buy, sell and interest event of the
	// user in ascending date order.
	ListForValuation(ctx context.Context, userID uuid.UUID) ([]LedgerEvent, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]LedgerEvent, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// MonthlyCloseStore persists month-end closes.
type MonthlyCloseStore interface {
	Upsert(ctx context.Context, c MonthlyClose) error
	UpsertBatch(ctx context.Context, closes []MonthlyClose) error
	Get(ctx context.Context, m Month) (MonthlyClose, error)
	ListRange(ctx context.Context, from, to Month) ([]MonthlyClose, error)
}

// SpotPriceStore persists the single latest spot price.
type SpotPriceStore interface {
	Upsert(ctx context.Context, s SpotPrice) error
	Latest(ctx context.Context) (SpotPrice, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
