package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/satfolio/internal/domain"
)

// MonthlyCloseStore implements domain.MonthlyCloseStore using PostgreSQL.
// Months are stored as the DATE of their first day.
type MonthlyCloseStore struct {
	pool *pgxpool.Pool
}

var _ domain.MonthlyCloseStore = (*MonthlyCloseStore)(nil)

// NewMonthlyCloseStore creates a new MonthlyCloseStore backed by the given
// connection pool.
func NewMonthlyCloseStore(pool *pgxpool.Pool) *MonthlyCloseStore {
	return &MonthlyCloseStore{pool: pool}
}

const upsertCloseQuery = `
	INSERT INTO monthly_closes (month, close_price, source, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (month) DO UPDATE SET
		close_price = EXCLUDED.close_price,
		source = EXCLUDED.source,
		updated_at = NOW()`

func scanClose(row pgx.Row) (domain.MonthlyClose, error) {
	var (
		c     domain.MonthlyClose
		month time.Time
		price pgtype.Numeric
	)
	if err := row.Scan(&month, &price, &c.Source, &c.UpdatedAt); err != nil {
		return domain.MonthlyClose{}, err
	}
	c.Month = domain.MonthOf(month)
	p, err := fromNumeric(price)
	if err != nil {
		return domain.MonthlyClose{}, err
	}
	c.Close = p
	return c, nil
}

// Upsert records or replaces the close for c.Month.
func (s *MonthlyCloseStore) Upsert(ctx context.Context, c domain.MonthlyClose) error {
	if _, err := s.pool.Exec(ctx, upsertCloseQuery, c.Month.Start(), toNumeric(c.Close), c.Source); err != nil {
		return fmt.Errorf("postgres: upsert close %s: %w", c.Month, err)
	}
	return nil
}

// UpsertBatch records many closes in one round trip.
func (s *MonthlyCloseStore) UpsertBatch(ctx context.Context, closes []domain.MonthlyClose) error {
	if len(closes) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range closes {
		batch.Queue(upsertCloseQuery, c.Month.Start(), toNumeric(c.Close), c.Source)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, c := range closes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: batch upsert close %s: %w", c.Month, err)
		}
	}
	return nil
}

// Get returns the close for m.
func (s *MonthlyCloseStore) Get(ctx context.Context, m domain.Month) (domain.MonthlyClose, error) {
	const query = `SELECT month, close_price, source, updated_at FROM monthly_closes WHERE month = $1`
	c, err := scanClose(s.pool.QueryRow(ctx, query, m.Start()))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MonthlyClose{}, fmt.Errorf("postgres: get close %s: %w", m, domain.ErrNotFound)
	}
	if err != nil {
		return domain.MonthlyClose{}, fmt.Errorf("postgres: get close %s: %w", m, err)
	}
	return c, nil
}

// ListRange returns the closes from..to inclusive, ascending.
func (s *MonthlyCloseStore) ListRange(ctx context.Context, from, to domain.Month) ([]domain.MonthlyClose, error) {
	const query = `
		SELECT month, close_price, source, updated_at FROM monthly_closes
		WHERE month >= $1 AND month <= $2
		ORDER BY month ASC`

	rows, err := s.pool.Query(ctx, query, from.Start(), to.Start())
	if err != nil {
		return nil, fmt.Errorf("postgres: list closes %s..%s: %w", from, to, err)
	}
	defer rows.Close()

	closes := []domain.MonthlyClose{}
	for rows.Next() {
		c, err := scanClose(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list closes rows: %w", err)
	}
	return closes, nil
}
