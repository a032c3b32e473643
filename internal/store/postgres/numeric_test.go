package postgres

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "0.00000001", "-0.5", "60123.45", "21000000"} {
		d := decimal.RequireFromString(s)
		got, err := fromNumeric(toNumeric(d))
		require.NoError(t, err)
		assert.True(t, d.Equal(got), s)
	}
}

func TestNullNumeric(t *testing.T) {
	n := toNullNumeric(nil)
	assert.False(t, n.Valid)

	got, err := fromNullNumeric(n)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = fromNumeric(pgtype.Numeric{NaN: true, Valid: true})
	assert.Error(t, err)
}
