package valuation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// CloseSeries is a set of positive monthly closes in ascending month order.
type CloseSeries []domain.MonthlyClose

// NewCloseSeries orders closes by month and drops non-positive values.
func NewCloseSeries(closes map[domain.Month]decimal.Decimal) CloseSeries {
	out := make(CloseSeries, 0, len(closes))
	for m, c := range closes {
		if c.IsPositive() {
			out = append(out, domain.MonthlyClose{Month: m, Close: c})
		}
	}
	slices.SortFunc(out, func(a, b domain.MonthlyClose) int {
		switch {
		case a.Month.Before(b.Month):
			return -1
		case b.Month.Before(a.Month):
			return 1
		}
		return 0
	})
	return out
}

// Lookup returns the close recorded for m.
func (s CloseSeries) Lookup(m domain.Month) (decimal.Decimal, bool) {
	i, found := slices.BinarySearchFunc(s, m, compareMonth)
	if !found {
		return decimal.Zero, false
	}
	return s[i].Close, true
}

func compareMonth(c domain.MonthlyClose, m domain.Month) int {
	switch {
	case c.Month.Before(m):
		return -1
	case c.Month.After(m):
		return 1
	}
	return 0
}

// PriceGapPolicy picks a price for a month that has no close of its own.
type PriceGapPolicy interface {
	Name() string
	Fallback(m domain.Month, closes CloseSeries) (decimal.Decimal, bool)
}

const (
	GapLatestInRange = "latest_in_range"
	GapCarryForward  = "carry_forward"
)

// ParsePriceGapPolicy returns the gap policy registered under name.
func ParsePriceGapPolicy(name string) (PriceGapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", GapLatestInRange:
		return LatestInRange{}, nil
	case GapCarryForward:
		return CarryForward{}, nil
	}
	return nil, fmt.Errorf("unknown price gap policy: %q", name)
}

// LatestInRange uses the chronologically latest close of the fetched range
// for every gap.
type LatestInRange struct{}

func (LatestInRange) Name() string { return GapLatestInRange }

func (LatestInRange) Fallback(_ domain.Month, closes CloseSeries) (decimal.Decimal, bool) {
	if len(closes) == 0 {
		return decimal.Zero, false
	}
	return closes[len(closes)-1].Close, true
}

// CarryForward uses the most recent close before the gap, or the earliest
// close after it when the gap precedes every close.
type CarryForward struct{}

func (CarryForward) Name() string { return GapCarryForward }

func (CarryForward) Fallback(m domain.Month, closes CloseSeries) (decimal.Decimal, bool) {
	if len(closes) == 0 {
		return decimal.Zero, false
	}
	i, _ := slices.BinarySearchFunc(closes, m, compareMonth)
	if i > 0 {
		return closes[i-1].Close, true
	}
	return closes[0].Close, true
}
