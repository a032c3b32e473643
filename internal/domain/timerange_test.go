package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		in     string
		want   TimeRange
		months int
	}{
		{"6M", Range6M, 6},
		{"1y", Range1Y, 12},
		{"2Y", Range2Y, 24},
		{"3Y", Range3Y, 36},
		{" 5Y ", Range5Y, 60},
		{"all", RangeAll, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tr, err := ParseTimeRange(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr)
			n, ok := tr.MonthsBack()
			assert.Equal(t, tt.months, n)
			assert.Equal(t, tt.want != RangeAll, ok)
		})
	}
}

func TestParseTimeRangeInvalid(t *testing.T) {
	for _, in := range []string{"", "7M", "10Y", "forever"} {
		_, err := ParseTimeRange(in)
		assert.ErrorIs(t, err, ErrInvalidTimeRange, in)
	}
	assert.False(t, TimeRange("4Y").Valid())
}

func TestStartMonth(t *testing.T) {
	current := Month{Year: 2024, Month: time.July}
	first := Month{Year: 2020, Month: time.March}

	assert.Equal(t, Month{2024, time.January}, Range6M.StartMonth(current, first))
	assert.Equal(t, Month{2023, time.July}, Range1Y.StartMonth(current, first))
	assert.Equal(t, Month{2019, time.July}, Range5Y.StartMonth(current, first))
	assert.Equal(t, first, RangeAll.StartMonth(current, first))
	assert.Equal(t, current, RangeAll.StartMonth(current, Month{}))
	assert.Equal(t, current, RangeAll.StartMonth(current, Month{2025, time.January}))
}
