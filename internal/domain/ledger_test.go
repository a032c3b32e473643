package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedgerEventValidate(t *testing.T) {
	user := uuid.New()
	when := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	neg := decimal.RequireFromString("-1")

	base := func(kind EventKind, delta, cost string) LedgerEvent {
		return LedgerEvent{
			UserID:   user,
			Date:     when,
			Kind:     kind,
			BTCDelta: decimal.RequireFromString(delta),
			FiatCost: decimal.RequireFromString(cost),
		}
	}

	tests := []struct {
		name    string
		ev      LedgerEvent
		wantErr bool
	}{
		{"buy", base(EventKindBuy, "0.5", "20000"), false},
		{"interest", base(EventKindInterest, "0.001", "0"), false},
		{"sell", base(EventKindSell, "-0.2", "0"), false},
		{"withdrawal", base(EventKindWithdrawal, "-0.2", "0"), false},
		{"buy removing btc", base(EventKindBuy, "-0.5", "20000"), true},
		{"sell adding btc", base(EventKindSell, "0.2", "0"), true},
		{"zero delta", base(EventKindBuy, "0", "100"), true},
		{"negative cost", base(EventKindBuy, "0.1", "-5"), true},
		{"cost on interest", base(EventKindInterest, "0.1", "5"), true},
		{"unknown kind", base(EventKind("gift"), "0.1", "0"), true},
		{"missing user", func() LedgerEvent { e := base(EventKindBuy, "1", "1"); e.UserID = uuid.Nil; return e }(), true},
		{"missing date", func() LedgerEvent { e := base(EventKindBuy, "1", "1"); e.Date = time.Time{}; return e }(), true},
		{"satoshi precision", base(EventKindSell, "-0.00000001", "0"), false},
		{"trailing zeros", base(EventKindBuy, "0.100000000000", "100.5000"), false},
		{"sub-satoshi delta", base(EventKindBuy, "0.000000001", "1"), true},
		{"sub-cent cost", base(EventKindBuy, "0.1", "100.005"), true},
		{"sub-satoshi price", func() LedgerEvent {
			e := base(EventKindBuy, "1", "1")
			p := decimal.RequireFromString("60000.123456789")
			e.PricePerBTC = &p
			return e
		}(), true},
		{"bad price", func() LedgerEvent { e := base(EventKindBuy, "1", "1"); e.PricePerBTC = &neg; return e }(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseEventKind(t *testing.T) {
	k, err := ParseEventKind("interest")
	assert.NoError(t, err)
	assert.Equal(t, EventKindInterest, k)
	assert.True(t, k.AffectsValuation())
	assert.False(t, EventKindDeposit.AffectsValuation())

	_, err = ParseEventKind("airdrop")
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
