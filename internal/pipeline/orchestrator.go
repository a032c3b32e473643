package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/notify"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the price pipeline: the ticker feed, the REST poller,
// the month closer and the feed staleness watch.
type Orchestrator struct {
	feed       *TickerFeed
	poller     *SpotPoller
	closer     *MonthCloser
	closeCron  Schedule
	heartbeat  *Heartbeat
	staleAfter time.Duration
	alerter    Alerter
	now        func() time.Time
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator. feed and poller may be nil to
// disable them.
func NewOrchestrator(
	feed *TickerFeed,
	poller *SpotPoller,
	closer *MonthCloser,
	closeCron Schedule,
	heartbeat *Heartbeat,
	staleAfter time.Duration,
	alerter Alerter,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		feed:       feed,
		poller:     poller,
		closer:     closer,
		closeCron:  closeCron,
		heartbeat:  heartbeat,
		staleAfter: staleAfter,
		alerter:    alerter,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "pipeline")),
	}
}

// Run starts every enabled loop in an errgroup. Any loop failing with a
// non-context error cancels the others and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Bool("ticker_feed", o.feed != nil),
		slog.Bool("spot_poller", o.poller != nil),
		slog.String("close_cron", o.closeCron.String()),
		slog.Duration("stale_after", o.staleAfter),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.feed != nil {
		g.Go(func() error {
			err := o.feed.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("ticker feed: %w", err)
		})
	}

	if o.poller != nil {
		g.Go(func() error {
			err := o.poller.RunLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("spot poller: %w", err)
		})
	}

	g.Go(func() error {
		err := o.closer.RunCron(ctx, o.closeCron)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("month closer: %w", err)
	})

	if o.staleAfter > 0 {
		g.Go(func() error {
			o.watchStale(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// watchStale alerts once when no spot has arrived for staleAfter and again
// after the feed recovers and goes stale anew.
func (o *Orchestrator) watchStale(ctx context.Context) {
	started := o.now()
	stale := false

	ticker := time.NewTicker(max(o.staleAfter/4, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale = o.checkStale(ctx, started, stale)
		}
	}
}

// checkStale returns the new stale state, alerting on the transition into it.
func (o *Orchestrator) checkStale(ctx context.Context, started time.Time, wasStale bool) bool {
	now := o.now()
	age, ok := o.heartbeat.Age(now)
	if !ok {
		age = now.Sub(started)
	}

	if age < o.staleAfter {
		if wasStale {
			o.logger.Info("spot feed recovered")
		}
		return false
	}
	if wasStale {
		return true
	}

	msg := fmt.Sprintf("no spot price for %s", age.Truncate(time.Second))
	if !ok {
		msg = fmt.Sprintf("no spot price since start-up %s ago", age.Truncate(time.Second))
	}
	o.logger.Warn("spot feed stale", slog.Duration("age", age))
	if err := o.alerter.Notify(ctx, notify.EventFeedStale, "Spot feed stale", msg); err != nil {
		o.logger.Warn("stale notification failed", slog.String("error", err.Error()))
	}
	return true
}
