// Package valuation rebuilds a user's BTC holdings and cost basis month by
// month and values each month with a close or the live spot price.
package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// LedgerFetcher returns a user's valuation events in ascending date order.
type LedgerFetcher interface {
	FetchEvents(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error)
}

// PriceResolver supplies month-end closes and the current spot price. A spot
// error wrapping domain.ErrNotFound means no spot has been recorded yet.
type PriceResolver interface {
	HistoricalCloses(ctx context.Context, from, to domain.Month) (map[domain.Month]decimal.Decimal, error)
	SpotPrice(ctx context.Context) (domain.SpotPrice, error)
}

// Aggregator computes monthly snapshots. It holds no per-call state and is
// safe for concurrent use.
type Aggregator struct {
	ledger    LedgerFetcher
	prices    PriceResolver
	costBasis CostBasisPolicy
	gap       PriceGapPolicy
	now       func() time.Time
	logger    *slog.Logger
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithCostBasisPolicy replaces the default PreserveOnSell policy.
func WithCostBasisPolicy(p CostBasisPolicy) Option {
	return func(a *Aggregator) { a.costBasis = p }
}

// WithPriceGapPolicy replaces the default LatestInRange policy.
func WithPriceGapPolicy(p PriceGapPolicy) Option {
	return func(a *Aggregator) { a.gap = p }
}

// WithClock sets the source of "now" used to find the current month.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator.
func New(ledger LedgerFetcher, prices PriceResolver, logger *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger:    ledger,
		prices:    prices,
		costBasis: PreserveOnSell{},
		gap:       LatestInRange{},
		now:       time.Now,
		logger:    logger.With(slog.String("component", "valuation")),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CostBasisPolicy returns the configured policy.
func (a *Aggregator) CostBasisPolicy() CostBasisPolicy { return a.costBasis }

// marketData is the price side of a computation.
type marketData struct {
	closes   CloseSeries
	spot     domain.SpotPrice
	haveSpot bool
}

// ComputeMonthlySnapshots returns one snapshot per calendar month from the
// start of tr through the current month. An empty ledger yields an empty,
// non-nil slice. Fetch failures are returned wrapped in domain.ErrFetchFailed.
func (a *Aggregator) ComputeMonthlySnapshots(ctx context.Context, userID uuid.UUID, tr domain.TimeRange) ([]domain.MonthlySnapshot, error) {
	if !tr.Valid() {
		return nil, fmt.Errorf("valuation: %w: %q", domain.ErrInvalidTimeRange, tr)
	}

	started := time.Now()
	current := domain.MonthOf(a.now())
	logger := a.logger.With(
		slog.String("user_id", userID.String()),
		slog.String("range", string(tr)),
	)

	var (
		events []domain.LedgerEvent
		md     marketData
		start  domain.Month
	)

	if n, fixed := tr.MonthsBack(); fixed {
		start = current.AddMonths(-n)

		var ledgerErr error
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			events, ledgerErr = a.fetchEvents(gctx, logger, userID)
			return ledgerErr
		})
		a.goFetchMarket(gctx, g, logger, start, current, &md)
		err := g.Wait()
		if ledgerErr == nil && len(events) == 0 {
			logger.DebugContext(ctx, "valuation: empty ledger")
			return []domain.MonthlySnapshot{}, nil
		}
		if err != nil {
			return nil, err
		}
		events = sortEvents(events)
	} else {
		var err error
		events, err = a.fetchEvents(ctx, logger, userID)
		if err != nil {
			return nil, err
		}
		if len(events) == 0 {
			logger.DebugContext(ctx, "valuation: empty ledger")
			return []domain.MonthlySnapshot{}, nil
		}
		events = sortEvents(events)
		start = tr.StartMonth(current, events[0].Month())

		g, gctx := errgroup.WithContext(ctx)
		a.goFetchMarket(gctx, g, logger, start, current, &md)
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	snaps, fallbacks := a.build(events, start, current, md)

	logger.InfoContext(ctx, "valuation: snapshots computed",
		slog.Int("events", len(events)),
		slog.Int("months", len(snaps)),
		slog.Int("fallback_prices", fallbacks),
		slog.Bool("spot_available", md.haveSpot),
		slog.String("cost_basis_policy", a.costBasis.Name()),
		slog.String("gap_policy", a.gap.Name()),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()),
	)
	return snaps, nil
}

func (a *Aggregator) fetchEvents(ctx context.Context, logger *slog.Logger, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	t := time.Now()
	events, err := a.ledger.FetchEvents(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("valuation: fetch ledger: %w: %w", domain.ErrFetchFailed, err)
	}
	logger.DebugContext(ctx, "valuation: ledger fetched",
		slog.Int("events", len(events)),
		slog.Int64("duration_ms", time.Since(t).Milliseconds()),
	)
	return events, nil
}

// goFetchMarket schedules the closes and spot fetches on g, writing into md.
func (a *Aggregator) goFetchMarket(ctx context.Context, g *errgroup.Group, logger *slog.Logger, start, current domain.Month, md *marketData) {
	g.Go(func() error {
		t := time.Now()
		closes, err := a.prices.HistoricalCloses(ctx, start, current)
		if err != nil {
			return fmt.Errorf("valuation: fetch closes %s..%s: %w: %w", start, current, domain.ErrFetchFailed, err)
		}
		md.closes = NewCloseSeries(closes)
		logger.DebugContext(ctx, "valuation: closes fetched",
			slog.Int("closes", len(md.closes)),
			slog.Int64("duration_ms", time.Since(t).Milliseconds()),
		)
		return nil
	})
	g.Go(func() error {
		spot, err := a.prices.SpotPrice(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.WarnContext(ctx, "valuation: no spot price recorded")
			return nil
		case err != nil:
			return fmt.Errorf("valuation: fetch spot: %w: %w", domain.ErrFetchFailed, err)
		}
		if !spot.PriceUSD.IsPositive() {
			logger.WarnContext(ctx, "valuation: ignoring non-positive spot price",
				slog.String("price", spot.PriceUSD.String()),
			)
			return nil
		}
		md.spot, md.haveSpot = spot, true
		return nil
	})
}

// build folds the sorted ledger and emits the snapshot series. It returns the
// number of months priced through the gap policy.
func (a *Aggregator) build(events []domain.LedgerEvent, start, current domain.Month, md marketData) ([]domain.MonthlySnapshot, int) {
	opening := Holdings{BTC: decimal.Zero, CostBasis: decimal.Zero}
	states := make(map[domain.Month]Holdings)

	h := opening
	for _, ev := range events {
		if !ev.Kind.AffectsValuation() {
			continue
		}
		m := ev.Month()
		if m.After(current) {
			continue
		}
		h = a.costBasis.Apply(h, ev)
		if m.Before(start) {
			opening = h
			continue
		}
		states[m] = h
	}

	months := domain.MonthsBetween(start, current)
	out := make([]domain.MonthlySnapshot, 0, len(months))
	fallbacks := 0
	prev := opening
	for _, m := range months {
		if st, ok := states[m]; ok {
			prev = st
		}
		price, src := a.priceFor(m, current, md)
		if src == domain.PriceSourceFallback {
			fallbacks++
		}
		out = append(out, domain.MonthlySnapshot{
			Month:               m,
			MonthEnd:            m.LastDay(),
			CumulativeBTC:       prev.BTC,
			CumulativeCostBasis: prev.CostBasis,
			BTCPriceUsed:        price,
			PortfolioValueUSD:   decimal.Max(decimal.Zero, prev.BTC).Mul(price),
			IsCurrentMonth:      m == current,
			PriceSource:         src,
		})
	}
	return out, fallbacks
}

func (a *Aggregator) priceFor(m, current domain.Month, md marketData) (decimal.Decimal, domain.PriceSource) {
	if m == current && md.haveSpot {
		return md.spot.PriceUSD, domain.PriceSourceSpot
	}
	if c, ok := md.closes.Lookup(m); ok {
		return c, domain.PriceSourceClose
	}
	if c, ok := a.gap.Fallback(m, md.closes); ok {
		return c, domain.PriceSourceFallback
	}
	return decimal.Zero, domain.PriceSourceNone
}

// sortEvents returns the events in ascending date order, ties by creation
// time, without touching the caller's slice.
func sortEvents(events []domain.LedgerEvent) []domain.LedgerEvent {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(x, y domain.LedgerEvent) int {
		if c := x.Date.Compare(y.Date); c != 0 {
			return c
		}
		return x.CreatedAt.Compare(y.CreatedAt)
	})
	return out
}
