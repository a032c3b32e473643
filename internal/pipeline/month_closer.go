package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/notify"
	"github.com/alanyoungcy/satfolio/internal/valuation"
)

// CloseRecorder is the part of the price service the closer needs.
type CloseRecorder interface {
	HasClose(ctx context.Context, m domain.Month) (bool, error)
	CloseMonth(ctx context.Context, m domain.Month) (domain.MonthlyClose, error)
}

// Alerter forwards operator notifications.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// MonthCloser records the close of the previous month from the last spot
// seen during it. Checks are idempotent, so it runs once at start-up and
// then on a cron schedule.
type MonthCloser struct {
	prices  CloseRecorder
	alerter Alerter
	now     func() time.Time
	logger  *slog.Logger
}

// NewMonthCloser creates a MonthCloser.
func NewMonthCloser(prices CloseRecorder, alerter Alerter, logger *slog.Logger) *MonthCloser {
	return &MonthCloser{
		prices:  prices,
		alerter: alerter,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "month_closer")),
	}
}

// Check closes the previous month if it has no close yet. It reports
// whether a close was written.
func (c *MonthCloser) Check(ctx context.Context) (bool, error) {
	prev := domain.MonthOf(c.now()).Prev()

	has, err := c.prices.HasClose(ctx, prev)
	if err != nil {
		return false, fmt.Errorf("month closer: %w", err)
	}
	if has {
		return false, nil
	}

	closed, err := c.prices.CloseMonth(ctx, prev)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("no spot observed for month, close left open",
			slog.String("month", prev.String()),
		)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("month closer: close %s: %w", prev, err)
	}

	msg := fmt.Sprintf("%s closed at %s", closed.Month, valuation.FormatUSD(closed.Close))
	if err := c.alerter.Notify(ctx, notify.EventMonthClosed, "Month closed", msg); err != nil {
		c.logger.Warn("month closed notification failed", slog.String("error", err.Error()))
	}
	return true, nil
}

// RunCron checks at start-up and then at every match of sched until ctx is
// cancelled.
func (c *MonthCloser) RunCron(ctx context.Context, sched Schedule) error {
	c.logger.Info("month closer started", slog.String("cron", sched.String()))

	if _, err := c.Check(ctx); err != nil {
		c.logger.Error("month close check failed", slog.String("error", err.Error()))
	}

	for {
		next, err := sched.Next(c.now())
		if err != nil {
			return err
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("month closer stopped")
			return ctx.Err()
		case <-timer.C:
			if _, err := c.Check(ctx); err != nil {
				c.logger.Error("month close check failed", slog.String("error", err.Error()))
			}
		}
	}
}
