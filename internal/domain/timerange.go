package domain

import (
	"fmt"
	"strings"
)

// TimeRange selects how far back a valuation chart reaches.
type TimeRange string

const (
	Range6M  TimeRange = "6M"
	Range1Y  TimeRange = "1Y"
	Range2Y  TimeRange = "2Y"
	Range3Y  TimeRange = "3Y"
	Range5Y  TimeRange = "5Y"
	RangeAll TimeRange = "ALL"
)

var rangeMonths = map[TimeRange]int{
	Range6M: 6,
	Range1Y: 12,
	Range2Y: 24,
	Range3Y: 36,
	Range5Y: 60,
}

// ParseTimeRange accepts the range labels case-insensitively.
func ParseTimeRange(s string) (TimeRange, error) {
	tr := TimeRange(strings.ToUpper(strings.TrimSpace(s)))
	if tr == RangeAll {
		return tr, nil
	}
	if _, ok := rangeMonths[tr]; ok {
		return tr, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
}

// Valid reports whether tr is a known range.
func (tr TimeRange) Valid() bool {
	_, ok := rangeMonths[tr]
	return ok || tr == RangeAll
}

// MonthsBack returns how many months before the current month the range
// starts. ok is false for ALL, whose start depends on the ledger.
func (tr TimeRange) MonthsBack() (n int, ok bool) {
	n, ok = rangeMonths[tr]
	return n, ok
}

// StartMonth resolves the first month of the range. firstEvent is only
// consulted for ALL.
func (tr TimeRange) StartMonth(current, firstEvent Month) Month {
	if n, ok := tr.MonthsBack(); ok {
		return current.AddMonths(-n)
	}
	if firstEvent.IsZero() || firstEvent.After(current) {
		return current
	}
	return firstEvent
}
