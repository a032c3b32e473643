package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// Close sources written by the service.
const (
	CloseSourceManual   = "manual"
	CloseSourceSpotLast = "spot_last"
	CloseSourceBackfill = "backfill"
)

// PriceService owns the spot price and month-end closes. It keeps the Redis
// spot cache and the Postgres tables in step and announces changes on the
// signal bus.
type PriceService struct {
	cache  domain.SpotCache
	spots  domain.SpotPriceStore
	closes domain.MonthlyCloseStore
	bus    domain.SignalBus
	logger *slog.Logger
	now    func() time.Time
}

// NewPriceService creates a PriceService with all required dependencies.
func NewPriceService(
	cache domain.SpotCache,
	spots domain.SpotPriceStore,
	closes domain.MonthlyCloseStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		cache:  cache,
		spots:  spots,
		closes: closes,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// HandleSpot records a new spot observation in the cache, as the running
// last spot of its month, and in Postgres, then publishes it.
func (s *PriceService) HandleSpot(ctx context.Context, spot domain.SpotPrice) error {
	if !spot.PriceUSD.IsPositive() {
		return fmt.Errorf("price_service: %w: spot %s", domain.ErrInvalidPrice, spot.PriceUSD)
	}
	if spot.AsOf.IsZero() {
		spot.AsOf = s.now()
	}
	spot.AsOf = spot.AsOf.UTC()

	if err := s.cache.SetSpot(ctx, spot); err != nil {
		return fmt.Errorf("price_service: cache spot: %w", err)
	}
	if err := s.cache.SetMonthLast(ctx, domain.MonthOf(spot.AsOf), spot); err != nil {
		return fmt.Errorf("price_service: cache month last: %w", err)
	}
	if err := s.spots.Upsert(ctx, spot); err != nil {
		return fmt.Errorf("price_service: store spot: %w", err)
	}

	s.publish(ctx, domain.ChannelSpot, "spot_updated", spotPayload(spot))
	return nil
}

// SpotPrice returns the latest spot, reading through the cache to Postgres.
// The error wraps domain.ErrNotFound when no spot has ever been recorded.
func (s *PriceService) SpotPrice(ctx context.Context) (domain.SpotPrice, error) {
	spot, err := s.cache.GetSpot(ctx)
	if err == nil {
		return spot, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "price_service: spot cache read failed",
			slog.String("error", err.Error()),
		)
	}

	spot, err = s.spots.Latest(ctx)
	if err != nil {
		return domain.SpotPrice{}, fmt.Errorf("price_service: latest spot: %w", err)
	}

	if cacheErr := s.cache.SetSpot(ctx, spot); cacheErr != nil {
		s.logger.WarnContext(ctx, "price_service: spot cache refill failed",
			slog.String("error", cacheErr.Error()),
		)
	}
	return spot, nil
}

// HistoricalCloses returns the recorded closes for months in [from, to].
// Months without a close are absent from the map.
func (s *PriceService) HistoricalCloses(ctx context.Context, from, to domain.Month) (map[domain.Month]decimal.Decimal, error) {
	list, err := s.closes.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("price_service: list closes %s..%s: %w", from, to, err)
	}
	out := make(map[domain.Month]decimal.Decimal, len(list))
	for _, c := range list {
		out[c.Month] = c.Close
	}
	return out, nil
}

// ListCloses returns the closes for months in [from, to] in month order.
func (s *PriceService) ListCloses(ctx context.Context, from, to domain.Month) ([]domain.MonthlyClose, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("price_service: %w: %s is after %s", domain.ErrInvalidTimeRange, from, to)
	}
	list, err := s.closes.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("price_service: list closes %s..%s: %w", from, to, err)
	}
	return list, nil
}

// HasClose reports whether a close has been recorded for m.
func (s *PriceService) HasClose(ctx context.Context, m domain.Month) (bool, error) {
	_, err := s.closes.Get(ctx, m)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("price_service: get close %s: %w", m, err)
	}
}

// RecordClose validates and stores a close for a month that has ended.
func (s *PriceService) RecordClose(ctx context.Context, c domain.MonthlyClose) (domain.MonthlyClose, error) {
	if err := s.checkClose(c); err != nil {
		return domain.MonthlyClose{}, err
	}
	if c.Source == "" {
		c.Source = CloseSourceManual
	}
	c.UpdatedAt = s.now().UTC()

	if err := s.closes.Upsert(ctx, c); err != nil {
		return domain.MonthlyClose{}, fmt.Errorf("price_service: upsert close %s: %w", c.Month, err)
	}

	s.publish(ctx, domain.ChannelCloses, "close_recorded", closePayload(c))
	s.logger.InfoContext(ctx, "price_service: close recorded",
		slog.String("month", c.Month.String()),
		slog.String("close", c.Close.String()),
		slog.String("source", c.Source),
	)
	return c, nil
}

// CloseMonth promotes the last spot observed during m to its close.
func (s *PriceService) CloseMonth(ctx context.Context, m domain.Month) (domain.MonthlyClose, error) {
	if !m.Before(domain.MonthOf(s.now())) {
		return domain.MonthlyClose{}, fmt.Errorf("price_service: %w: %s has not ended", domain.ErrInvalidPrice, m)
	}

	last, err := s.cache.GetMonthLast(ctx, m)
	if err != nil {
		return domain.MonthlyClose{}, fmt.Errorf("price_service: last spot of %s: %w", m, err)
	}

	return s.RecordClose(ctx, domain.MonthlyClose{
		Month:  m,
		Close:  last.PriceUSD,
		Source: CloseSourceSpotLast,
	})
}

// ImportCloses validates and upserts a batch of closes. Closes for months
// that have not ended are rejected as a whole.
func (s *PriceService) ImportCloses(ctx context.Context, closes []domain.MonthlyClose) (int, error) {
	if len(closes) == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	batch := make([]domain.MonthlyClose, len(closes))
	for i, c := range closes {
		if err := s.checkClose(c); err != nil {
			return 0, err
		}
		if c.Source == "" {
			c.Source = CloseSourceBackfill
		}
		c.UpdatedAt = now
		batch[i] = c
	}

	if err := s.closes.UpsertBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("price_service: upsert %d closes: %w", len(batch), err)
	}

	s.publish(ctx, domain.ChannelCloses, "closes_imported", map[string]any{
		"count": len(batch),
		"from":  batch[0].Month.String(),
		"to":    batch[len(batch)-1].Month.String(),
	})
	return len(batch), nil
}

func (s *PriceService) checkClose(c domain.MonthlyClose) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("price_service: %w", err)
	}
	if !c.Month.Before(domain.MonthOf(s.now())) {
		return fmt.Errorf("price_service: %w: %s has not ended", domain.ErrInvalidPrice, c.Month)
	}
	return nil
}

func (s *PriceService) publish(ctx context.Context, channel, typ string, data any) {
	evt, err := domain.NewBusEvent(channel, typ, data, s.now().UTC())
	if err != nil {
		s.logger.WarnContext(ctx, "price_service: encode event failed",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)
		return
	}
	if pubErr := s.bus.Publish(ctx, channel, evt); pubErr != nil {
		s.logger.WarnContext(ctx, "price_service: publish event failed",
			slog.String("channel", channel),
			slog.String("type", typ),
			slog.String("error", pubErr.Error()),
		)
	}
}

func spotPayload(s domain.SpotPrice) map[string]any {
	return map[string]any{
		"price":  s.PriceUSD.String(),
		"as_of":  s.AsOf.Format(time.RFC3339Nano),
		"source": s.Source,
	}
}

func closePayload(c domain.MonthlyClose) map[string]any {
	return map[string]any{
		"month":  c.Month.String(),
		"close":  c.Close.String(),
		"source": c.Source,
	}
}
