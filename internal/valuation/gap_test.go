package valuation

import (
	"testing"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries() CloseSeries {
	return NewCloseSeries(map[domain.Month]decimal.Decimal{
		month("2023-05"): dec("27000"),
		month("2023-01"): dec("23000"),
		month("2023-03"): dec("28000"),
		month("2023-04"): decimal.Zero,
	})
}

func TestNewCloseSeries(t *testing.T) {
	s := testSeries()
	require.Len(t, s, 3)
	assert.Equal(t, "2023-01", s[0].Month.String())
	assert.Equal(t, "2023-05", s[2].Month.String())

	c, ok := s.Lookup(month("2023-03"))
	assert.True(t, ok)
	assertDec(t, "28000", c)
	_, ok = s.Lookup(month("2023-04"))
	assert.False(t, ok)
}

func TestLatestInRange(t *testing.T) {
	for _, m := range []string{"2022-12", "2023-02", "2023-04", "2023-07"} {
		p, ok := LatestInRange{}.Fallback(month(m), testSeries())
		assert.True(t, ok)
		assertDec(t, "27000", p, m)
	}
	_, ok := LatestInRange{}.Fallback(month("2023-02"), nil)
	assert.False(t, ok)
}

func TestCarryForward(t *testing.T) {
	tests := map[string]string{
		"2022-12": "23000", // before every close: earliest later close
		"2023-02": "23000",
		"2023-04": "28000",
		"2023-09": "27000",
	}
	for m, want := range tests {
		p, ok := CarryForward{}.Fallback(month(m), testSeries())
		assert.True(t, ok)
		assertDec(t, want, p, m)
	}
	_, ok := CarryForward{}.Fallback(month("2023-02"), CloseSeries{})
	assert.False(t, ok)
}

func TestParsePriceGapPolicy(t *testing.T) {
	p, err := ParsePriceGapPolicy("")
	require.NoError(t, err)
	assert.Equal(t, GapLatestInRange, p.Name())

	p, err = ParsePriceGapPolicy("carry_forward")
	require.NoError(t, err)
	assert.Equal(t, GapCarryForward, p.Name())

	_, err = ParsePriceGapPolicy("interpolate")
	assert.Error(t, err)
}
