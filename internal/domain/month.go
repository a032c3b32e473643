package domain

import (
	"fmt"
	"time"
)

// MonthLayout is the wire format of a month key.
const MonthLayout = "2006-01"

// Month is a calendar month in UTC. The zero value is not a valid month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" key.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether m is the zero Month.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the last instant of the month.
func (m Month) End() time.Time {
	return m.Next().Start().Add(-time.Nanosecond)
}

// LastDay returns midnight UTC on the last calendar day of the month.
func (m Month) LastDay() time.Time {
	return m.Next().Start().AddDate(0, 0, -1)
}

// AddMonths returns the month n months away from m.
func (m Month) AddMonths(n int) Month {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

func (m Month) Next() Month { return m.AddMonths(1) }
func (m Month) Prev() Month { return m.AddMonths(-1) }

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

func (m Month) After(o Month) bool { return o.Before(m) }

// Contains reports whether t falls in m.
func (m Month) Contains(t time.Time) bool {
	return MonthOf(t) == m
}

// MonthsBetween lists every month from start to end inclusive. It returns nil
// when end is before start.
func MonthsBetween(start, end Month) []Month {
	if end.Before(start) {
		return nil
	}
	var out []Month
	for m := start; !m.After(end); m = m.Next() {
		out = append(out, m)
	}
	return out
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(text []byte) error {
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
