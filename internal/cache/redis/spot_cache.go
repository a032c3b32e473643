package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// monthLastTTL keeps per-month last spots long enough for a late month close.
const monthLastTTL = 62 * 24 * time.Hour

// SpotCache implements domain.SpotCache using Redis hashes. The latest spot
// lives at "spot:{pair}" and the last spot of each month at
// "spot:{pair}:last:{YYYY-MM}", each with fields "price", "ts" (Unix nanos)
// and "source".
type SpotCache struct {
	c    *Client
	pair string
	ttl  time.Duration
}

// NewSpotCache creates a SpotCache for pair (e.g. "BTC-USD"). A ttl of zero
// keeps the latest spot until overwritten.
func NewSpotCache(c *Client, pair string, ttl time.Duration) *SpotCache {
	return &SpotCache{c: c, pair: pair, ttl: ttl}
}

func (sc *SpotCache) spotKey() string {
	return sc.c.Key("spot:" + sc.pair)
}

func (sc *SpotCache) monthKey(m domain.Month) string {
	return sc.c.Key("spot:" + sc.pair + ":last:" + m.String())
}

func spotFields(s domain.SpotPrice) map[string]any {
	return map[string]any{
		"price":  s.PriceUSD.String(),
		"ts":     strconv.FormatInt(s.AsOf.UnixNano(), 10),
		"source": s.Source,
	}
}

func parseSpot(vals map[string]string) (domain.SpotPrice, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return domain.SpotPrice{}, domain.ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("parse price: %w", err)
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return domain.SpotPrice{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("parse ts: %w", err)
	}
	return domain.SpotPrice{
		PriceUSD: price,
		AsOf:     time.Unix(0, tsNano).UTC(),
		Source:   vals["source"],
	}, nil
}

// SetSpot stores the latest spot price.
func (sc *SpotCache) SetSpot(ctx context.Context, s domain.SpotPrice) error {
	key := sc.spotKey()
	pipe := sc.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, spotFields(s))
	if sc.ttl > 0 {
		pipe.Expire(ctx, key, sc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set spot %s: %w", sc.pair, err)
	}
	return nil
}

// GetSpot returns the latest spot price or domain.ErrNotFound.
func (sc *SpotCache) GetSpot(ctx context.Context) (domain.SpotPrice, error) {
	return sc.get(ctx, sc.spotKey(), "spot "+sc.pair)
}

// SetMonthLast records s as the last spot seen in m, unless a later one is
// already stored.
func (sc *SpotCache) SetMonthLast(ctx context.Context, m domain.Month, s domain.SpotPrice) error {
	key := sc.monthKey(m)
	err := sc.c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "ts").Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && current > s.AsOf.UnixNano() {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, spotFields(s))
			pipe.Expire(ctx, key, monthLastTTL)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("redis: set month last %s %s: %w", sc.pair, m, err)
	}
	return nil
}

// GetMonthLast returns the last spot seen in m or domain.ErrNotFound.
func (sc *SpotCache) GetMonthLast(ctx context.Context, m domain.Month) (domain.SpotPrice, error) {
	return sc.get(ctx, sc.monthKey(m), "month last "+m.String())
}

func (sc *SpotCache) get(ctx context.Context, key, what string) (domain.SpotPrice, error) {
	vals, err := sc.c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("redis: get %s: %w", what, err)
	}
	if len(vals) == 0 {
		return domain.SpotPrice{}, fmt.Errorf("redis: get %s: %w", what, domain.ErrNotFound)
	}
	s, err := parseSpot(vals)
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("redis: get %s: %w", what, err)
	}
	return s, nil
}

// Compile-time interface check.
var _ domain.SpotCache = (*SpotCache)(nil)
