package domain

import (
	"context"
	"encoding/json"
	"time"
)

// SpotCache provides fast access to the latest spot price and to the last
// spot observed in each month.
type SpotCache interface {
	SetSpot(ctx context.Context, s SpotPrice) error
	GetSpot(ctx context.Context) (SpotPrice, error)
	SetMonthLast(ctx context.Context, m Month, s SpotPrice) error
	GetMonthLast(ctx context.Context, m Month) (SpotPrice, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// Bus channels.
const (
	ChannelSpot         = "spot"
	ChannelCloses       = "closes"
	ChannelLedgerPrefix = "ledger:"
	StreamLedgerChanges = "stream:ledger"
)

// BusEvent is the envelope published on every bus channel.
type BusEvent struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	At      time.Time       `json:"at"`
}

// NewBusEvent marshals data into an envelope for channel.
func NewBusEvent(channel, typ string, data any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(BusEvent{Channel: channel, Type: typ, Data: raw, At: at})
}
