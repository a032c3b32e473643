package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource records where a snapshot's price came from.
type PriceSource string

const (
	PriceSourceSpot     PriceSource = "spot"
	PriceSourceClose    PriceSource = "close"
	PriceSourceFallback PriceSource = "fallback"
	PriceSourceNone     PriceSource = "none"
)

// MonthlySnapshot is the valuation of a user's holdings at one month end.
type MonthlySnapshot struct {
	Month               Month           `json:"monthKey"`
	MonthEnd            time.Time       `json:"monthEndDate"`
	CumulativeBTC       decimal.Decimal `json:"cumulativeBtc"`
	CumulativeCostBasis decimal.Decimal `json:"cumulativeCostBasis"`
	BTCPriceUsed        decimal.Decimal `json:"btcPriceUsed"`
	PortfolioValueUSD   decimal.Decimal `json:"portfolioValueUsd"`
	IsCurrentMonth      bool            `json:"isCurrentMonth"`
	PriceSource         PriceSource     `json:"priceSource"`
}

// PortfolioSummary condenses a snapshot series into headline figures.
type PortfolioSummary struct {
	AsOf           Month             `json:"asOf"`
	HoldingsBTC    decimal.Decimal   `json:"holdingsBtc"`
	TotalInvested  decimal.Decimal   `json:"totalInvested"`
	CurrentValue   decimal.Decimal   `json:"currentValue"`
	UnrealizedGain decimal.Decimal   `json:"unrealizedGain"`
	GainPercent    decimal.Decimal   `json:"gainPercent"`
	PriceUsed      decimal.Decimal   `json:"priceUsed"`
	Display        map[string]string `json:"display"`
}
