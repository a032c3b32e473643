package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/satfolio/internal/domain"
)

// SpotPriceStore implements domain.SpotPriceStore on the single-row
// spot_price table.
type SpotPriceStore struct {
	pool *pgxpool.Pool
}

var _ domain.SpotPriceStore = (*SpotPriceStore)(nil)

// NewSpotPriceStore creates a new SpotPriceStore backed by the given
// connection pool.
func NewSpotPriceStore(pool *pgxpool.Pool) *SpotPriceStore {
	return &SpotPriceStore{pool: pool}
}

// Upsert replaces the stored spot unless the stored one is newer.
func (s *SpotPriceStore) Upsert(ctx context.Context, sp domain.SpotPrice) error {
	const query = `
		INSERT INTO spot_price (id, price_usd, as_of, source, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			price_usd = EXCLUDED.price_usd,
			as_of = EXCLUDED.as_of,
			source = EXCLUDED.source,
			updated_at = NOW()
		WHERE spot_price.as_of <= EXCLUDED.as_of`

	if _, err := s.pool.Exec(ctx, query, toNumeric(sp.PriceUSD), sp.AsOf, sp.Source); err != nil {
		return fmt.Errorf("postgres: upsert spot price: %w", err)
	}
	return nil
}

// Latest returns the stored spot price.
func (s *SpotPriceStore) Latest(ctx context.Context) (domain.SpotPrice, error) {
	var (
		sp    domain.SpotPrice
		price pgtype.Numeric
	)
	err := s.pool.QueryRow(ctx,
		`SELECT price_usd, as_of, source FROM spot_price WHERE id = 1`,
	).Scan(&price, &sp.AsOf, &sp.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SpotPrice{}, fmt.Errorf("postgres: latest spot price: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("postgres: latest spot price: %w", err)
	}
	if sp.PriceUSD, err = fromNumeric(price); err != nil {
		return domain.SpotPrice{}, fmt.Errorf("postgres: latest spot price: %w", err)
	}
	return sp, nil
}
