package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/satfolio/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *pgxpool.Pool
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

// NewLedgerStore creates a new LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const ledgerSelectCols = `id, user_id, event_date, kind, btc_delta, fiat_cost,
	price_per_btc, note, created_at`

// ledgerOrder is the canonical event order; ties on date resolve by insert
// time and then id so reads are stable.
const ledgerOrder = ` ORDER BY event_date ASC, created_at ASC, id ASC`

func scanLedgerRow(row pgx.Row) (domain.LedgerEvent, error) {
	var (
		ev              domain.LedgerEvent
		kind            string
		delta, cost, pp pgtype.Numeric
	)
	if err := row.Scan(
		&ev.ID, &ev.UserID, &ev.Date, &kind, &delta, &cost,
		&pp, &ev.Note, &ev.CreatedAt,
	); err != nil {
		return domain.LedgerEvent{}, err
	}
	ev.Kind = domain.EventKind(kind)

	var err error
	if ev.BTCDelta, err = fromNumeric(delta); err != nil {
		return domain.LedgerEvent{}, err
	}
	if ev.FiatCost, err = fromNumeric(cost); err != nil {
		return domain.LedgerEvent{}, err
	}
	if ev.PricePerBTC, err = fromNullNumeric(pp); err != nil {
		return domain.LedgerEvent{}, err
	}
	ev.Date = ev.Date.UTC()
	return ev, nil
}

func scanLedgerRows(rows pgx.Rows) ([]domain.LedgerEvent, error) {
	events := []domain.LedgerEvent{}
	for rows.Next() {
		ev, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Create inserts a new ledger event.
func (s *LedgerStore) Create(ctx context.Context, ev domain.LedgerEvent) error {
	const query = `
		INSERT INTO ledger_events (
			id, user_id, event_date, kind, btc_delta, fiat_cost, price_per_btc, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query,
		ev.ID, ev.UserID, ev.Date, string(ev.Kind),
		toNumeric(ev.BTCDelta), toNumeric(ev.FiatCost), toNullNumeric(ev.PricePerBTC), ev.Note,
	)
	if err != nil {
		return fmt.Errorf("postgres: create ledger event %s: %w", ev.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: create ledger event %s: %w", ev.ID, domain.ErrAlreadyExists)
	}
	return nil
}

// Update overwrites the mutable fields of an event owned by ev.UserID.
func (s *LedgerStore) Update(ctx context.Context, ev domain.LedgerEvent) error {
	const query = `
		UPDATE ledger_events
		SET event_date = $3, kind = $4, btc_delta = $5, fiat_cost = $6,
			price_per_btc = $7, note = $8, updated_at = NOW()
		WHERE id = $1 AND user_id = $2`

	tag, err := s.pool.Exec(ctx, query,
		ev.ID, ev.UserID, ev.Date, string(ev.Kind),
		toNumeric(ev.BTCDelta), toNumeric(ev.FiatCost), toNullNumeric(ev.PricePerBTC), ev.Note,
	)
	if err != nil {
		return fmt.Errorf("postgres: update ledger event %s: %w", ev.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update ledger event %s: %w", ev.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes one event owned by userID.
func (s *LedgerStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ledger_events WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete ledger event %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete ledger event %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns one event owned by userID.
func (s *LedgerStore) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.LedgerEvent, error) {
	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_events WHERE id = $1 AND user_id = $2`
	ev, err := scanLedgerRow(s.pool.QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: get ledger event %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LedgerEvent{}, fmt.Errorf("postgres: get ledger event %s: %w", id, err)
	}
	return ev, nil
}

// ListByUser returns a page of the user's events, newest first.
func (s *LedgerStore) ListByUser(ctx context.Context, userID uuid.UUID, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	query, args := withListOpts(
		`SELECT `+ledgerSelectCols+` FROM ledger_events WHERE user_id = $1`, []any{userID},
		"event_date", "event_date DESC, created_at DESC, id DESC", opts,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ledger events for %s: %w", userID, err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan ledger events for %s: %w", userID, err)
	}
	return events, nil
}

// ListForValuation returns the user's buy, sell and interest events in
// ascending date order.
func (s *LedgerStore) ListForValuation(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	kinds := make([]string, 0, len(domain.ValuationKinds))
	for _, k := range domain.ValuationKinds {
		kinds = append(kinds, string(k))
	}

	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_events
		WHERE user_id = $1 AND kind = ANY($2)` + ledgerOrder
	rows, err := s.pool.Query(ctx, query, userID, kinds)
	if err != nil {
		return nil, fmt.Errorf("postgres: list valuation events for %s: %w", userID, err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan valuation events for %s: %w", userID, err)
	}
	return events, nil
}

// ListAll returns every event of the user in ascending date order.
func (s *LedgerStore) ListAll(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	query := `SELECT ` + ledgerSelectCols + ` FROM ledger_events WHERE user_id = $1` + ledgerOrder
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all ledger events for %s: %w", userID, err)
	}
	defer rows.Close()

	events, err := scanLedgerRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan ledger events for %s: %w", userID, err)
	}
	return events, nil
}

// DeleteByUser removes every event of the user and returns how many went.
func (s *LedgerStore) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ledger_events WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete ledger for %s: %w", userID, err)
	}
	return tag.RowsAffected(), nil
}
