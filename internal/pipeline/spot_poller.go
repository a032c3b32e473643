package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
)

// SpotFetcher fetches the current spot price of a product.
type SpotFetcher interface {
	Spot(ctx context.Context, product string) (domain.SpotPrice, error)
}

// SpotPoller polls the REST spot endpoint as a fallback for the ticker feed.
// A poll is skipped while the heartbeat is younger than the interval.
type SpotPoller struct {
	fetcher   SpotFetcher
	product   string
	handler   SpotHandler
	heartbeat *Heartbeat
	interval  time.Duration
	limiter   domain.RateLimiter
	now       func() time.Time
	logger    *slog.Logger
}

// NewSpotPoller creates a poller. limiter may be nil; when set, every REST
// call waits for a slot under the "spot_rest" key so several processes share
// the upstream quota.
func NewSpotPoller(fetcher SpotFetcher, product string, handler SpotHandler, heartbeat *Heartbeat, interval time.Duration, limiter domain.RateLimiter, logger *slog.Logger) *SpotPoller {
	return &SpotPoller{
		fetcher:   fetcher,
		product:   product,
		handler:   handler,
		heartbeat: heartbeat,
		interval:  interval,
		limiter:   limiter,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "spot_poller")),
	}
}

// Poll fetches and stores one spot price unless the feed is fresh. It
// reports whether a price was stored.
func (p *SpotPoller) Poll(ctx context.Context) (bool, error) {
	if age, ok := p.heartbeat.Age(p.now()); ok && age < p.interval {
		return false, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, "spot_rest"); err != nil {
			return false, fmt.Errorf("poll spot: wait for rate limit: %w", err)
		}
	}

	spot, err := p.fetcher.Spot(ctx, p.product)
	if err != nil {
		return false, fmt.Errorf("poll spot: %w", err)
	}
	if err := p.handler.HandleSpot(ctx, spot); err != nil {
		return false, fmt.Errorf("store polled spot: %w", err)
	}
	p.heartbeat.Beat(spot.AsOf)

	p.logger.Debug("spot polled",
		slog.String("price", spot.PriceUSD.String()),
	)
	return true, nil
}

// RunLoop polls immediately and then on every interval until ctx is
// cancelled.
func (p *SpotPoller) RunLoop(ctx context.Context) error {
	if _, err := p.Poll(ctx); err != nil {
		p.logger.Error("spot poll failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("spot poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil {
				p.logger.Error("spot poll failed", slog.String("error", err.Error()))
			}
		}
	}
}
