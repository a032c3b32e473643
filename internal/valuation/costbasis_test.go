package valuation

import (
	"testing"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fold(p CostBasisPolicy, events ...domain.LedgerEvent) Holdings {
	var h Holdings
	for _, ev := range events {
		h = p.Apply(h, ev)
	}
	return h
}

func TestParseCostBasisPolicy(t *testing.T) {
	tests := map[string]string{
		"":                 PolicyPreserveOnSell,
		"preserve_on_sell": PolicyPreserveOnSell,
		"Proportional":     PolicyProportionalReduction,
		"fifo":             PolicyFIFO,
	}
	for in, want := range tests {
		p, err := ParseCostBasisPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, p.Name())
	}

	_, err := ParseCostBasisPolicy("lifo")
	assert.EqualError(t, err, `unknown cost basis policy: "lifo"`)
}

func TestPreserveOnSell(t *testing.T) {
	h := fold(PreserveOnSell{},
		buy("2023-01-01", "1", "10000"),
		interest("2023-02-01", "0.1"),
		sell("2023-03-01", "0.6"),
	)
	assertDec(t, "0.5", h.BTC)
	assertDec(t, "10000", h.CostBasis)
}

func TestProportionalReduction(t *testing.T) {
	h := fold(ProportionalReduction{},
		buy("2023-01-01", "2", "30000"),
		sell("2023-02-01", "0.5"),
	)
	assertDec(t, "1.5", h.BTC)
	assertDec(t, "22500", h.CostBasis)

	h = ProportionalReduction{}.Apply(h, sell("2023-03-01", "2"))
	assertDec(t, "-0.5", h.BTC)
	assertDec(t, "0", h.CostBasis)

	// Selling from an empty position leaves the basis alone.
	h = fold(ProportionalReduction{}, sell("2023-01-01", "1"))
	assertDec(t, "0", h.CostBasis)
}

func TestFIFO(t *testing.T) {
	h := fold(FIFO{},
		buy("2023-01-01", "1", "20000"),
		buy("2023-02-01", "1", "30000"),
		interest("2023-02-15", "0.5"),
		sell("2023-03-01", "1.5"),
	)
	assertDec(t, "1", h.BTC)
	// Whole first lot (20000) plus half of the second (15000).
	assertDec(t, "15000", h.CostBasis)

	h = FIFO{}.Apply(h, sell("2023-04-01", "0.5"))
	assertDec(t, "0.5", h.BTC)
	assertDec(t, "0", h.CostBasis)
	require.Len(t, h.lots, 1)
	assertDec(t, "0.5", h.lots[0].qty)
}

func TestFIFODoesNotShareLots(t *testing.T) {
	base := fold(FIFO{}, buy("2023-01-01", "1", "100"))
	a := FIFO{}.Apply(base, buy("2023-02-01", "1", "200"))
	b := FIFO{}.Apply(base, sell("2023-02-01", "0.5"))

	require.Len(t, base.lots, 1)
	assertDec(t, "1", base.lots[0].qty)
	assert.Len(t, a.lots, 2)
	assertDec(t, "50", b.CostBasis)
}
