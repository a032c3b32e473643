package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyClose is the BTC/USD close recorded for a finished month.
type MonthlyClose struct {
	Month     Month
	Close     decimal.Decimal
	Source    string
	UpdatedAt time.Time
}

// MonthEnd returns the last calendar day of the close's month.
func (c MonthlyClose) MonthEnd() time.Time {
	return c.Month.LastDay()
}

// Validate rejects zero months and non-positive closes.
func (c MonthlyClose) Validate() error {
	if c.Month.IsZero() {
		return fmt.Errorf("%w: month is required", ErrInvalidPrice)
	}
	if !c.Close.IsPositive() {
		return fmt.Errorf("%w: close for %s must be positive", ErrInvalidPrice, c.Month)
	}
	return nil
}

// SpotPrice is the latest observed BTC/USD price.
type SpotPrice struct {
	PriceUSD decimal.Decimal
	AsOf     time.Time
	Source   string
}

// Age returns how old the observation is relative to now.
func (s SpotPrice) Age(now time.Time) time.Duration {
	return now.Sub(s.AsOf)
}
