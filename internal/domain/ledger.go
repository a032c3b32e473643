package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind classifies a ledger entry.
type EventKind string

const (
	EventKindBuy        EventKind = "buy"
	EventKindSell       EventKind = "sell"
	EventKindInterest   EventKind = "interest"
	EventKindDeposit    EventKind = "deposit"    // transfer in, no P&L
	EventKindWithdrawal EventKind = "withdrawal" // transfer out, no P&L
)

// Stored precision of ledger amounts. Values with more decimal places are
// rejected rather than rounded by the database.
const (
	BTCPlaces  int32 = 8 // satoshi
	FiatPlaces int32 = 2 // cent
)

// ValuationKinds are the kinds that move holdings or cost basis in a valuation.
var ValuationKinds = []EventKind{EventKindBuy, EventKindSell, EventKindInterest}

// ParseEventKind maps a string onto a known EventKind.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case EventKindBuy, EventKindSell, EventKindInterest, EventKindDeposit, EventKindWithdrawal:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, s)
}

// AffectsValuation reports whether the kind takes part in the monthly fold.
func (k EventKind) AffectsValuation() bool {
	return k == EventKindBuy || k == EventKindSell || k == EventKindInterest
}

// LedgerEvent is a single dated change to a user's BTC holdings.
type LedgerEvent struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Date        time.Time
	Kind        EventKind
	BTCDelta    decimal.Decimal  // signed; negative for sells and withdrawals
	FiatCost    decimal.Decimal  // USD paid, buys only
	PricePerBTC *decimal.Decimal // informational
	Note        string
	CreatedAt   time.Time
}

// Month returns the calendar month the event falls in.
func (e LedgerEvent) Month() Month {
	return MonthOf(e.Date)
}

// Validate checks the sign and cost rules for the event kind.
func (e LedgerEvent) Validate() error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id is required", ErrInvalidEvent)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if e.BTCDelta.IsZero() {
		return fmt.Errorf("%w: btc delta must be non-zero", ErrInvalidEvent)
	}
	if e.FiatCost.IsNegative() {
		return fmt.Errorf("%w: fiat cost must not be negative", ErrInvalidEvent)
	}
	if e.PricePerBTC != nil && !e.PricePerBTC.IsPositive() {
		return fmt.Errorf("%w: price per btc must be positive", ErrInvalidEvent)
	}
	if !fitsPlaces(e.BTCDelta, BTCPlaces) {
		return fmt.Errorf("%w: btc delta has more than %d decimal places", ErrInvalidEvent, BTCPlaces)
	}
	if !fitsPlaces(e.FiatCost, FiatPlaces) {
		return fmt.Errorf("%w: fiat cost has more than %d decimal places", ErrInvalidEvent, FiatPlaces)
	}
	if e.PricePerBTC != nil && !fitsPlaces(*e.PricePerBTC, BTCPlaces) {
		return fmt.Errorf("%w: price per btc has more than %d decimal places", ErrInvalidEvent, BTCPlaces)
	}

	switch e.Kind {
	case EventKindBuy, EventKindInterest, EventKindDeposit:
		if e.BTCDelta.IsNegative() {
			return fmt.Errorf("%w: %s must add btc", ErrInvalidEvent, e.Kind)
		}
	case EventKindSell, EventKindWithdrawal:
		if e.BTCDelta.IsPositive() {
			return fmt.Errorf("%w: %s must remove btc", ErrInvalidEvent, e.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}

	if e.Kind != EventKindBuy && !e.FiatCost.IsZero() {
		return fmt.Errorf("%w: fiat cost only applies to buys", ErrInvalidEvent)
	}
	return nil
}

// fitsPlaces reports whether d is exact at the given number of decimal places.
// Trailing zeros do not count.
func fitsPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}
