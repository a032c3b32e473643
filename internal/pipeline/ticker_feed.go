package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/platform/coinbase"
	"github.com/cenkalti/backoff/v4"
)

// SpotHandler stores a spot observation.
type SpotHandler interface {
	HandleSpot(ctx context.Context, s domain.SpotPrice) error
}

// TickerFeed streams spot prices from the exchange ticker WebSocket into a
// SpotHandler. The underlying client reconnects on its own once connected;
// TickerFeed retries the initial connection with backoff.
type TickerFeed struct {
	wsURL     string
	product   string
	handler   SpotHandler
	heartbeat *Heartbeat
	logger    *slog.Logger

	newBackoff func() backoff.BackOff
}

// NewTickerFeed creates a feed for product, e.g. "BTC-USD".
func NewTickerFeed(wsURL, product string, handler SpotHandler, heartbeat *Heartbeat, logger *slog.Logger) *TickerFeed {
	return &TickerFeed{
		wsURL:     wsURL,
		product:   product,
		handler:   handler,
		heartbeat: heartbeat,
		logger:    logger.With(slog.String("component", "ticker_feed")),

		newBackoff: coinbase.NewReconnectBackoff,
	}
}

// Run connects and forwards ticks until ctx is cancelled.
func (f *TickerFeed) Run(ctx context.Context) error {
	client := coinbase.NewTickerClient(f.wsURL, f.product)
	defer client.Close()

	client.OnTicker(func(s domain.SpotPrice) {
		f.heartbeat.Beat(s.AsOf)
		if err := f.handler.HandleSpot(ctx, s); err != nil && ctx.Err() == nil {
			f.logger.Warn("handle spot failed",
				slog.String("price", s.PriceUSD.String()),
				slog.String("error", err.Error()),
			)
		}
	})

	connect := func() error {
		connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return client.Connect(connCtx)
	}
	retrying := func(err error, delay time.Duration) {
		f.logger.Warn("ticker connect failed, retrying",
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(f.newBackoff(), ctx), retrying); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	f.logger.Info("ticker feed subscribed", slog.String("product", f.product))
	<-ctx.Done()
	f.logger.Info("ticker feed stopped")
	return ctx.Err()
}
