package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/valuation"
	"github.com/google/uuid"
)

// ValuationService serves snapshot series and summaries. It keeps one
// aggregator per cost basis policy so callers may pick a policy per request.
type ValuationService struct {
	aggregators   map[string]*valuation.Aggregator
	defaultPolicy string
	defaultRange  domain.TimeRange
	logger        *slog.Logger
}

// NewValuationService builds aggregators for every known cost basis policy.
// opts apply to all of them; defaultPolicy selects the one used when a
// request names none.
func NewValuationService(
	ledger valuation.LedgerFetcher,
	prices valuation.PriceResolver,
	defaultPolicy string,
	defaultRange domain.TimeRange,
	logger *slog.Logger,
	opts ...valuation.Option,
) (*ValuationService, error) {
	def, err := valuation.ParseCostBasisPolicy(defaultPolicy)
	if err != nil {
		return nil, fmt.Errorf("valuation_service: %w", err)
	}
	if defaultRange == "" {
		defaultRange = domain.RangeAll
	}
	if !defaultRange.Valid() {
		return nil, fmt.Errorf("valuation_service: %w: %q", domain.ErrInvalidTimeRange, defaultRange)
	}

	aggs := make(map[string]*valuation.Aggregator, 3)
	for _, name := range []string{
		valuation.PolicyPreserveOnSell,
		valuation.PolicyProportionalReduction,
		valuation.PolicyFIFO,
	} {
		p, _ := valuation.ParseCostBasisPolicy(name)
		withPolicy := append(append([]valuation.Option{}, opts...), valuation.WithCostBasisPolicy(p))
		aggs[name] = valuation.New(ledger, prices, logger, withPolicy...)
	}

	return &ValuationService{
		aggregators:   aggs,
		defaultPolicy: def.Name(),
		defaultRange:  defaultRange,
		logger:        logger,
	}, nil
}

// DefaultRange is the range used when a request names none.
func (s *ValuationService) DefaultRange() domain.TimeRange { return s.defaultRange }

func (s *ValuationService) aggregator(policy string) (*valuation.Aggregator, error) {
	if policy == "" {
		policy = s.defaultPolicy
	}
	p, err := valuation.ParseCostBasisPolicy(policy)
	if err != nil {
		return nil, fmt.Errorf("valuation_service: %w: %w", domain.ErrInvalidPolicy, err)
	}
	return s.aggregators[p.Name()], nil
}

// Snapshots returns the monthly series for the user. An empty policy uses
// the configured default.
func (s *ValuationService) Snapshots(ctx context.Context, userID uuid.UUID, tr domain.TimeRange, policy string) ([]domain.MonthlySnapshot, error) {
	agg, err := s.aggregator(policy)
	if err != nil {
		return nil, err
	}
	snaps, err := agg.ComputeMonthlySnapshots(ctx, userID, tr)
	if err != nil {
		return nil, fmt.Errorf("valuation_service: snapshots: %w", err)
	}
	return snaps, nil
}

// Summary condenses the user's series for tr into headline figures.
func (s *ValuationService) Summary(ctx context.Context, userID uuid.UUID, tr domain.TimeRange, policy string) (domain.PortfolioSummary, error) {
	snaps, err := s.Snapshots(ctx, userID, tr, policy)
	if err != nil {
		return domain.PortfolioSummary{}, err
	}
	return valuation.Summarize(snaps), nil
}
