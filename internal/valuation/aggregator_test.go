package valuation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedgerFetcher struct {
	mock.Mock
}

func (m *MockLedgerFetcher) FetchEvents(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEvent), args.Error(1)
}

type MockPriceResolver struct {
	mock.Mock
}

func (m *MockPriceResolver) HistoricalCloses(ctx context.Context, from, to domain.Month) (map[domain.Month]decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.Month]decimal.Decimal), args.Error(1)
}

func (m *MockPriceResolver) SpotPrice(ctx context.Context) (domain.SpotPrice, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.SpotPrice), args.Error(1)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func month(s string) domain.Month {
	m, err := domain.ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func buy(date, btc, cost string) domain.LedgerEvent {
	return domain.LedgerEvent{ID: uuid.New(), Date: day(date), Kind: domain.EventKindBuy, BTCDelta: dec(btc), FiatCost: dec(cost)}
}

func sell(date, btc string) domain.LedgerEvent {
	return domain.LedgerEvent{ID: uuid.New(), Date: day(date), Kind: domain.EventKindSell, BTCDelta: dec(btc).Neg(), FiatCost: decimal.Zero}
}

func interest(date, btc string) domain.LedgerEvent {
	return domain.LedgerEvent{ID: uuid.New(), Date: day(date), Kind: domain.EventKindInterest, BTCDelta: dec(btc), FiatCost: decimal.Zero}
}

func spotAt(price string, asOf time.Time) domain.SpotPrice {
	return domain.SpotPrice{PriceUSD: dec(price), AsOf: asOf}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestAggregator(ledger LedgerFetcher, prices PriceResolver, now time.Time, opts ...Option) *Aggregator {
	return New(ledger, prices, quietLogger(), append([]Option{WithClock(fixedClock(now))}, opts...)...)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func TestComputeMonthlySnapshots_SingleBuyCurrentMonth(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-01-20")

	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{buy("2024-01-15", "0.01", "500")}, nil)
	prices.On("HistoricalCloses", mock.Anything, month("2024-01"), month("2024-01")).Return(map[domain.Month]decimal.Decimal{}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("60000", now), nil)

	agg := newTestAggregator(ledger, prices, now)
	snaps, err := agg.ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	s := snaps[0]
	assert.Equal(t, "2024-01", s.Month.String())
	assert.Equal(t, day("2024-01-31"), s.MonthEnd)
	assertDec(t, "0.01", s.CumulativeBTC)
	assertDec(t, "500", s.CumulativeCostBasis)
	assertDec(t, "60000", s.BTCPriceUsed)
	assertDec(t, "600", s.PortfolioValueUSD)
	assert.True(t, s.IsCurrentMonth)
	assert.Equal(t, domain.PriceSourceSpot, s.PriceSource)

	ledger.AssertExpectations(t)
	prices.AssertExpectations(t)
}

func TestComputeMonthlySnapshots_SellKeepsCostBasis(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-03-10")

	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{
		buy("2023-06-01", "1", "10000"),
		sell("2023-07-01", "0.5"),
	}, nil)
	prices.On("HistoricalCloses", mock.Anything, month("2023-06"), month("2024-03")).Return(map[domain.Month]decimal.Decimal{
		month("2023-06"): dec("27000"),
		month("2023-07"): dec("30000"),
		month("2023-08"): dec("26000"),
		month("2023-09"): dec("27000"),
		month("2023-10"): dec("34500"),
		month("2023-11"): dec("37700"),
		month("2023-12"): dec("42300"),
		month("2024-01"): dec("42600"),
		month("2024-02"): dec("61200"),
	}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("60000", now), nil)

	agg := newTestAggregator(ledger, prices, now)
	snaps, err := agg.ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 10)

	june, july := snaps[0], snaps[1]
	assert.Equal(t, "2023-06", june.Month.String())
	assertDec(t, "1", june.CumulativeBTC)
	assertDec(t, "10000", june.CumulativeCostBasis)
	assertDec(t, "27000", june.PortfolioValueUSD)

	assert.Equal(t, "2023-07", july.Month.String())
	assertDec(t, "0.5", july.CumulativeBTC)
	assertDec(t, "10000", july.CumulativeCostBasis)
	assertDec(t, "15000", july.PortfolioValueUSD)

	for _, s := range snaps[2:] {
		assertDec(t, "0.5", s.CumulativeBTC, s.Month.String())
		assertDec(t, "10000", s.CumulativeCostBasis, s.Month.String())
	}
	assertDec(t, "21150", snaps[6].PortfolioValueUSD) // 2023-12 at 42300

	last := snaps[len(snaps)-1]
	assert.True(t, last.IsCurrentMonth)
	assertDec(t, "60000", last.BTCPriceUsed)
	assertDec(t, "30000", last.PortfolioValueUSD)
}

func TestComputeMonthlySnapshots_NoPricesAnywhere(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-04-02")

	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{buy("2024-02-10", "2", "80000")}, nil)
	prices.On("HistoricalCloses", mock.Anything, month("2024-02"), month("2024-04")).Return(map[domain.Month]decimal.Decimal{}, nil)
	prices.On("SpotPrice", mock.Anything).Return(domain.SpotPrice{}, domain.ErrNotFound)

	agg := newTestAggregator(ledger, prices, now)
	snaps, err := agg.ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for _, s := range snaps {
		assertDec(t, "2", s.CumulativeBTC)
		assertDec(t, "0", s.BTCPriceUsed)
		assertDec(t, "0", s.PortfolioValueUSD)
		assert.Equal(t, domain.PriceSourceNone, s.PriceSource)
	}
}

func TestComputeMonthlySnapshots_EmptyLedger(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-04-02")

	for _, tr := range []domain.TimeRange{domain.RangeAll, domain.Range1Y} {
		t.Run(string(tr), func(t *testing.T) {
			ledger := new(MockLedgerFetcher)
			prices := new(MockPriceResolver)
			ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{}, nil)
			prices.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(map[domain.Month]decimal.Decimal{}, nil).Maybe()
			prices.On("SpotPrice", mock.Anything).Return(spotAt("1", now), nil).Maybe()

			snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, tr)
			require.NoError(t, err)
			assert.NotNil(t, snaps)
			assert.Empty(t, snaps)
		})
	}
}

func TestComputeMonthlySnapshots_AllRangeSkipsPriceFetchForEmptyLedger(t *testing.T) {
	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	user := uuid.New()
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{}, nil)

	snaps, err := newTestAggregator(ledger, prices, day("2024-01-01")).ComputeMonthlySnapshots(context.Background(), user, domain.RangeAll)
	require.NoError(t, err)
	assert.Empty(t, snaps)
	prices.AssertNotCalled(t, "HistoricalCloses", mock.Anything, mock.Anything, mock.Anything)
	prices.AssertNotCalled(t, "SpotPrice", mock.Anything)
}

func TestComputeMonthlySnapshots_FixedRangeCarriesOpeningBalance(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-07-15")

	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{
		buy("2022-03-01", "1", "40000"),
		buy("2024-03-05", "0.5", "30000"),
		interest("2024-05-31", "0.01"),
	}, nil)
	prices.On("HistoricalCloses", mock.Anything, month("2024-01"), month("2024-07")).Return(map[domain.Month]decimal.Decimal{
		month("2024-01"): dec("42000"),
	}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("65000", now), nil)

	snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, domain.Range6M)
	require.NoError(t, err)
	require.Len(t, snaps, 7)

	assert.Equal(t, "2024-01", snaps[0].Month.String())
	assertDec(t, "1", snaps[0].CumulativeBTC)
	assertDec(t, "40000", snaps[0].CumulativeCostBasis)
	assertDec(t, "1", snaps[1].CumulativeBTC)
	assertDec(t, "1.5", snaps[2].CumulativeBTC)
	assertDec(t, "70000", snaps[2].CumulativeCostBasis)
	assertDec(t, "1.51", snaps[4].CumulativeBTC)
	assertDec(t, "70000", snaps[4].CumulativeCostBasis)
	assertDec(t, "1.51", snaps[6].CumulativeBTC)

	// Months without a close use the latest close in range.
	assert.Equal(t, domain.PriceSourceFallback, snaps[1].PriceSource)
	assertDec(t, "42000", snaps[1].BTCPriceUsed)
	assert.Equal(t, domain.PriceSourceSpot, snaps[6].PriceSource)
}

func TestComputeMonthlySnapshots_IgnoresFutureAndTransferEvents(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-02-15")

	deposit := domain.LedgerEvent{Date: day("2024-01-20"), Kind: domain.EventKindDeposit, BTCDelta: dec("5")}
	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{
		buy("2024-01-10", "1", "40000"),
		deposit,
		buy("2024-06-01", "3", "1"),
	}, nil)
	prices.On("HistoricalCloses", mock.Anything, month("2024-01"), month("2024-02")).Return(map[domain.Month]decimal.Decimal{month("2024-01"): dec("42000")}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("50000", now), nil)

	snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assertDec(t, "1", snaps[1].CumulativeBTC)
	assertDec(t, "40000", snaps[1].CumulativeCostBasis)
}

func TestComputeMonthlySnapshots_SortsUnorderedLedger(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-03-15")

	events := []domain.LedgerEvent{sell("2024-02-10", "0.4"), buy("2024-01-10", "1", "100")}
	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return(events, nil)
	prices.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(map[domain.Month]decimal.Decimal{}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("10", now), nil)

	snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assertDec(t, "1", snaps[0].CumulativeBTC)
	assertDec(t, "0.6", snaps[1].CumulativeBTC)
	assert.Equal(t, domain.EventKindSell, events[0].Kind, "caller slice must not be reordered")
}

func TestComputeMonthlySnapshots_NegativeBalanceValuedAtZero(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-01-20")

	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{sell("2024-01-02", "0.3")}, nil)
	prices.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(map[domain.Month]decimal.Decimal{}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("50000", now), nil)

	snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assertDec(t, "-0.3", snaps[0].CumulativeBTC)
	assertDec(t, "0", snaps[0].PortfolioValueUSD)
}

func TestComputeMonthlySnapshots_FetchFailures(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2024-05-01")
	boom := errors.New("connection refused")
	events := []domain.LedgerEvent{buy("2024-01-10", "1", "100")}

	tests := []struct {
		name  string
		tr    domain.TimeRange
		setup func(l *MockLedgerFetcher, p *MockPriceResolver)
	}{
		{"ledger ALL", domain.RangeAll, func(l *MockLedgerFetcher, p *MockPriceResolver) {
			l.On("FetchEvents", mock.Anything, user).Return(nil, boom)
		}},
		{"ledger 1Y", domain.Range1Y, func(l *MockLedgerFetcher, p *MockPriceResolver) {
			l.On("FetchEvents", mock.Anything, user).Return(nil, boom)
			p.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(map[domain.Month]decimal.Decimal{}, nil).Maybe()
			p.On("SpotPrice", mock.Anything).Return(spotAt("1", now), nil).Maybe()
		}},
		{"closes", domain.RangeAll, func(l *MockLedgerFetcher, p *MockPriceResolver) {
			l.On("FetchEvents", mock.Anything, user).Return(events, nil)
			p.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)
			p.On("SpotPrice", mock.Anything).Return(spotAt("1", now), nil).Maybe()
		}},
		{"spot", domain.Range6M, func(l *MockLedgerFetcher, p *MockPriceResolver) {
			l.On("FetchEvents", mock.Anything, user).Return(events, nil).Maybe()
			p.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(map[domain.Month]decimal.Decimal{}, nil).Maybe()
			p.On("SpotPrice", mock.Anything).Return(domain.SpotPrice{}, boom)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(MockLedgerFetcher)
			prices := new(MockPriceResolver)
			tt.setup(ledger, prices)

			snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, tt.tr)
			require.Error(t, err)
			assert.Nil(t, snaps)
			assert.ErrorIs(t, err, domain.ErrFetchFailed)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestComputeMonthlySnapshots_InvalidRange(t *testing.T) {
	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)

	_, err := newTestAggregator(ledger, prices, day("2024-05-01")).ComputeMonthlySnapshots(context.Background(), uuid.New(), domain.TimeRange("9Y"))
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
	ledger.AssertNotCalled(t, "FetchEvents", mock.Anything, mock.Anything)
}

func TestComputeMonthlySnapshots_Properties(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2025-02-11")
	events := []domain.LedgerEvent{
		buy("2023-01-03", "0.25", "4200"),
		interest("2023-02-28", "0.0004"),
		buy("2023-05-19", "0.1", "2700"),
		sell("2023-09-01", "0.2"),
		buy("2024-03-15", "0.05", "3500"),
		sell("2024-11-30", "0.1"),
		interest("2025-01-31", "0.0011"),
	}
	closes := map[domain.Month]decimal.Decimal{
		month("2023-01"): dec("23100"),
		month("2023-06"): dec("30400"),
		month("2024-06"): dec("62700"),
	}

	run := func() []domain.MonthlySnapshot {
		ledger := new(MockLedgerFetcher)
		prices := new(MockPriceResolver)
		ledger.On("FetchEvents", mock.Anything, user).Return(events, nil)
		prices.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(closes, nil)
		prices.On("SpotPrice", mock.Anything).Return(spotAt("97000", now), nil)
		snaps, err := newTestAggregator(ledger, prices, now).ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
		require.NoError(t, err)
		return snaps
	}
	snaps := run()

	require.Len(t, snaps, 26)
	total := decimal.Zero
	for _, ev := range events {
		total = total.Add(ev.BTCDelta)
	}
	assertDec(t, total.String(), snaps[len(snaps)-1].CumulativeBTC)

	for i, s := range snaps {
		if i > 0 {
			assert.Equal(t, snaps[i-1].Month.Next(), s.Month, "months must be contiguous")
			assert.True(t, s.CumulativeCostBasis.GreaterThanOrEqual(snaps[i-1].CumulativeCostBasis), "basis never drops under preserve-on-sell")
		}
		assert.False(t, s.PortfolioValueUSD.IsNegative())
		assert.Equal(t, i == len(snaps)-1, s.IsCurrentMonth)
	}

	assert.Equal(t, snaps, run(), "identical inputs must give identical output")
}

func TestComputeMonthlySnapshots_ProportionalPolicy(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	now := day("2023-08-15")

	ledger := new(MockLedgerFetcher)
	prices := new(MockPriceResolver)
	ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{
		buy("2023-06-01", "1", "10000"),
		sell("2023-07-01", "0.5"),
	}, nil)
	prices.On("HistoricalCloses", mock.Anything, mock.Anything, mock.Anything).Return(map[domain.Month]decimal.Decimal{}, nil)
	prices.On("SpotPrice", mock.Anything).Return(spotAt("30000", now), nil)

	agg := newTestAggregator(ledger, prices, now, WithCostBasisPolicy(ProportionalReduction{}))
	snaps, err := agg.ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assertDec(t, "10000", snaps[0].CumulativeCostBasis)
	assertDec(t, "5000", snaps[1].CumulativeCostBasis)
	assertDec(t, "5000", snaps[2].CumulativeCostBasis)
}

func TestComputeMonthlySnapshots_PriceResolution(t *testing.T) {
	now := day("2024-04-20")
	jan, mar, apr := month("2024-01"), month("2024-03"), month("2024-04")
	gapped := map[domain.Month]decimal.Decimal{jan: dec("40000"), mar: dec("45000")}
	withCurrent := map[domain.Month]decimal.Decimal{jan: dec("40000"), mar: dec("45000"), apr: dec("47000")}
	const (
		srcSpot     = domain.PriceSourceSpot
		srcClose    = domain.PriceSourceClose
		srcFallback = domain.PriceSourceFallback
	)

	tests := []struct {
		name        string
		closes      map[domain.Month]decimal.Decimal
		spot        domain.SpotPrice
		spotErr     error
		opts        []Option
		wantPrices  []string
		wantSources []domain.PriceSource
	}{
		{
			name:        "no spot recorded, current month falls back to latest close",
			closes:      gapped,
			spotErr:     domain.ErrNotFound,
			wantPrices:  []string{"40000", "45000", "45000", "45000"},
			wantSources: []domain.PriceSource{srcClose, srcFallback, srcClose, srcFallback},
		},
		{
			name:        "no spot recorded, current month has a close",
			closes:      withCurrent,
			spotErr:     domain.ErrNotFound,
			wantPrices:  []string{"40000", "47000", "45000", "47000"},
			wantSources: []domain.PriceSource{srcClose, srcFallback, srcClose, srcClose},
		},
		{
			name:        "non-positive spot is ignored",
			closes:      gapped,
			spot:        spotAt("0", now),
			wantPrices:  []string{"40000", "45000", "45000", "45000"},
			wantSources: []domain.PriceSource{srcClose, srcFallback, srcClose, srcFallback},
		},
		{
			name:        "carry forward with spot",
			closes:      gapped,
			spot:        spotAt("60000", now),
			opts:        []Option{WithPriceGapPolicy(CarryForward{})},
			wantPrices:  []string{"40000", "40000", "45000", "60000"},
			wantSources: []domain.PriceSource{srcClose, srcFallback, srcClose, srcSpot},
		},
		{
			name:        "carry forward without spot",
			closes:      gapped,
			spotErr:     domain.ErrNotFound,
			opts:        []Option{WithPriceGapPolicy(CarryForward{})},
			wantPrices:  []string{"40000", "40000", "45000", "45000"},
			wantSources: []domain.PriceSource{srcClose, srcFallback, srcClose, srcFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			user := uuid.New()

			ledger := new(MockLedgerFetcher)
			prices := new(MockPriceResolver)
			ledger.On("FetchEvents", mock.Anything, user).Return([]domain.LedgerEvent{buy("2024-01-10", "1", "40000")}, nil)
			prices.On("HistoricalCloses", mock.Anything, jan, apr).Return(tt.closes, nil)
			prices.On("SpotPrice", mock.Anything).Return(tt.spot, tt.spotErr)

			agg := newTestAggregator(ledger, prices, now, tt.opts...)
			snaps, err := agg.ComputeMonthlySnapshots(ctx, user, domain.RangeAll)
			require.NoError(t, err)
			require.Len(t, snaps, len(tt.wantPrices))

			for i, s := range snaps {
				assertDec(t, tt.wantPrices[i], s.BTCPriceUsed, s.Month.String())
				assertDec(t, tt.wantPrices[i], s.PortfolioValueUSD, s.Month.String())
				assert.Equal(t, tt.wantSources[i], s.PriceSource, s.Month.String())
			}
			prices.AssertExpectations(t)
		})
	}
}
