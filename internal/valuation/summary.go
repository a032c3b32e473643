package valuation

import (
	"github.com/Rhymond/go-money"
	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summarize derives headline figures from the last snapshot of a series.
func Summarize(snaps []domain.MonthlySnapshot) domain.PortfolioSummary {
	s := domain.PortfolioSummary{
		HoldingsBTC:    decimal.Zero,
		TotalInvested:  decimal.Zero,
		CurrentValue:   decimal.Zero,
		UnrealizedGain: decimal.Zero,
		GainPercent:    decimal.Zero,
		PriceUsed:      decimal.Zero,
	}
	if len(snaps) > 0 {
		last := snaps[len(snaps)-1]
		s.AsOf = last.Month
		s.HoldingsBTC = last.CumulativeBTC
		s.TotalInvested = last.CumulativeCostBasis
		s.CurrentValue = last.PortfolioValueUSD
		s.PriceUsed = last.BTCPriceUsed
		s.UnrealizedGain = s.CurrentValue.Sub(s.TotalInvested)
		if s.TotalInvested.IsPositive() {
			s.GainPercent = s.UnrealizedGain.Div(s.TotalInvested).Mul(hundred).Round(2)
		}
	}
	s.Display = map[string]string{
		"totalInvested":  FormatUSD(s.TotalInvested),
		"currentValue":   FormatUSD(s.CurrentValue),
		"unrealizedGain": FormatUSD(s.UnrealizedGain),
		"priceUsed":      FormatUSD(s.PriceUsed),
	}
	return s
}

// FormatUSD renders an amount as a dollar string, e.g. "$1,234.56".
func FormatUSD(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, "USD").Display()
}
