package valuation

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/shopspring/decimal"
)

// Holdings is the running position after some prefix of the ledger. Values
// are never mutated in place; policies return a new Holdings.
type Holdings struct {
	BTC       decimal.Decimal
	CostBasis decimal.Decimal
	lots      []lot // open acquisition lots, oldest first; FIFO only
}

type lot struct {
	qty  decimal.Decimal
	cost decimal.Decimal // USD attributed to qty
}

// CostBasisPolicy decides how each ledger event moves the running cost basis.
type CostBasisPolicy interface {
	Name() string
	Apply(h Holdings, ev domain.LedgerEvent) Holdings
}

const (
	PolicyPreserveOnSell        = "preserve_on_sell"
	PolicyProportionalReduction = "proportional"
	PolicyFIFO                  = "fifo"
)

// ParseCostBasisPolicy returns the policy registered under name.
func ParseCostBasisPolicy(name string) (CostBasisPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyPreserveOnSell:
		return PreserveOnSell{}, nil
	case PolicyProportionalReduction:
		return ProportionalReduction{}, nil
	case PolicyFIFO:
		return FIFO{}, nil
	}
	return nil, fmt.Errorf("unknown cost basis policy: %q", name)
}

// PreserveOnSell keeps the cost basis untouched when BTC is sold, so the
// basis reads as "total fiat ever invested".
type PreserveOnSell struct{}

func (PreserveOnSell) Name() string { return PolicyPreserveOnSell }

func (PreserveOnSell) Apply(h Holdings, ev domain.LedgerEvent) Holdings {
	out := Holdings{BTC: h.BTC.Add(ev.BTCDelta), CostBasis: h.CostBasis}
	if ev.Kind == domain.EventKindBuy {
		out.CostBasis = out.CostBasis.Add(ev.FiatCost)
	}
	return out
}

// ProportionalReduction is average-cost relief: a sale removes the share of
// the basis equal to the share of the balance sold.
type ProportionalReduction struct{}

func (ProportionalReduction) Name() string { return PolicyProportionalReduction }

func (ProportionalReduction) Apply(h Holdings, ev domain.LedgerEvent) Holdings {
	out := Holdings{BTC: h.BTC.Add(ev.BTCDelta), CostBasis: h.CostBasis}
	switch ev.Kind {
	case domain.EventKindBuy:
		out.CostBasis = out.CostBasis.Add(ev.FiatCost)
	case domain.EventKindSell:
		if !h.BTC.IsPositive() {
			return out
		}
		if !out.BTC.IsPositive() {
			out.CostBasis = decimal.Zero
			return out
		}
		out.CostBasis = h.CostBasis.Mul(out.BTC).Div(h.BTC)
	}
	return out
}

// FIFO relieves the cost of the oldest lots first. Interest opens a
// zero-cost lot.
type FIFO struct{}

func (FIFO) Name() string { return PolicyFIFO }

func (FIFO) Apply(h Holdings, ev domain.LedgerEvent) Holdings {
	out := Holdings{BTC: h.BTC.Add(ev.BTCDelta), CostBasis: h.CostBasis}
	switch ev.Kind {
	case domain.EventKindBuy, domain.EventKindInterest:
		cost := decimal.Zero
		if ev.Kind == domain.EventKindBuy {
			cost = ev.FiatCost
		}
		out.CostBasis = out.CostBasis.Add(cost)
		out.lots = make([]lot, len(h.lots), len(h.lots)+1)
		copy(out.lots, h.lots)
		out.lots = append(out.lots, lot{qty: ev.BTCDelta, cost: cost})
	case domain.EventKindSell:
		remaining := ev.BTCDelta.Neg()
		relieved := decimal.Zero
		var kept []lot
		for _, l := range h.lots {
			switch {
			case !remaining.IsPositive():
				kept = append(kept, l)
			case l.qty.LessThanOrEqual(remaining):
				relieved = relieved.Add(l.cost)
				remaining = remaining.Sub(l.qty)
			default:
				partCost := l.cost.Mul(remaining).Div(l.qty)
				relieved = relieved.Add(partCost)
				kept = append(kept, lot{qty: l.qty.Sub(remaining), cost: l.cost.Sub(partCost)})
				remaining = decimal.Zero
			}
		}
		out.CostBasis = decimal.Max(decimal.Zero, h.CostBasis.Sub(relieved))
		out.lots = kept
	default:
		out.lots = h.lots
	}
	return out
}
