package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/satfolio/internal/domain"
	"github.com/alanyoungcy/satfolio/internal/pipeline"
	"github.com/alanyoungcy/satfolio/internal/platform/coinbase"
	"github.com/alanyoungcy/satfolio/internal/server"
	"github.com/alanyoungcy/satfolio/internal/server/handler"
	"github.com/alanyoungcy/satfolio/internal/server/ws"
	"github.com/alanyoungcy/satfolio/internal/service"
	"github.com/alanyoungcy/satfolio/internal/valuation"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// services groups the service layer built on top of Dependencies.
type services struct {
	prices    *service.PriceService
	ledger    *service.LedgerService
	valuation *service.ValuationService
	accounts  *service.AccountService // nil without a ledger archiver
}

// buildServices constructs the service layer from the wired dependencies.
func (a *App) buildServices(deps *Dependencies) (*services, error) {
	prices := service.NewPriceService(deps.SpotCache, deps.SpotStore, deps.CloseStore, deps.SignalBus, a.logger)
	ledger := service.NewLedgerService(deps.LedgerStore, deps.SignalBus, deps.AuditStore, a.logger)

	gap, err := valuation.ParsePriceGapPolicy(a.cfg.Valuation.GapPolicy)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	var defaultRange domain.TimeRange
	if a.cfg.Valuation.DefaultRange != "" {
		if defaultRange, err = domain.ParseTimeRange(a.cfg.Valuation.DefaultRange); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	val, err := service.NewValuationService(ledger, prices,
		a.cfg.Valuation.CostBasisPolicy, defaultRange, a.logger,
		valuation.WithPriceGapPolicy(gap),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	svcs := &services{prices: prices, ledger: ledger, valuation: val}
	if deps.LedgerArchiver != nil {
		svcs.accounts = service.NewAccountService(
			deps.LockManager,
			deps.LedgerArchiver,
			deps.LedgerStore,
			deps.AuditStore,
			deps.Notifier,
			a.logger,
		)
	}
	return svcs, nil
}

// ServerMode runs the HTTP API and the WebSocket hub.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, svcs)
	return g.Wait()
}

// FeedMode runs the price pipeline only.
func (a *App) FeedMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting feed mode")

	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}
	orch, err := a.buildOrchestrator(deps, svcs)
	if err != nil {
		return err
	}
	return orch.Run(ctx)
}

// FullMode runs the price pipeline next to the HTTP API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.cfg.Feed.Enabled {
		orch, err := a.buildOrchestrator(deps, svcs)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return orch.Run(ctx)
		})
	} else {
		a.logger.WarnContext(ctx, "feed.enabled is false; spot prices will not be refreshed")
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}

	return g.Wait()
}

// BackfillMode imports month-end closes from the configured S3 object and
// returns once the import finishes.
func (a *App) BackfillMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backfill mode", slog.String("path", a.cfg.Backfill.Path))

	if deps.BlobReader == nil {
		return fmt.Errorf("backfill mode: blob storage not wired")
	}
	svcs, err := a.buildServices(deps)
	if err != nil {
		return err
	}

	backfill := pipeline.NewCloseBackfill(deps.BlobReader, svcs.prices, deps.LockManager, a.logger)
	n, err := backfill.Run(ctx, a.cfg.Backfill.Path)
	if err != nil {
		return fmt.Errorf("backfill mode: %w", err)
	}

	a.logger.InfoContext(ctx, "backfill finished", slog.Int("closes", n))
	return nil
}

// buildOrchestrator wires the ticker feed, REST poller and month closer.
// Either price source may be disabled by leaving its URL empty.
func (a *App) buildOrchestrator(deps *Dependencies, svcs *services) (*pipeline.Orchestrator, error) {
	fc := a.cfg.Feed

	sched, err := pipeline.ParseSchedule(fc.CloseCron)
	if err != nil {
		return nil, fmt.Errorf("app: close_cron: %w", err)
	}

	heartbeat := &pipeline.Heartbeat{}

	var feed *pipeline.TickerFeed
	if fc.WsURL != "" {
		feed = pipeline.NewTickerFeed(fc.WsURL, fc.Product, svcs.prices, heartbeat, a.logger)
	}

	var poller *pipeline.SpotPoller
	if fc.RestURL != "" {
		var limiter domain.RateLimiter
		if fc.RestRateLimit > 0 {
			limiter = deps.RateLimiter
		}
		poller = pipeline.NewSpotPoller(
			coinbase.NewSpotClient(fc.RestURL),
			fc.Product,
			svcs.prices,
			heartbeat,
			fc.PollInterval.Duration,
			limiter,
			a.logger,
		)
	}

	closer := pipeline.NewMonthCloser(svcs.prices, deps.Notifier, a.logger)

	return pipeline.NewOrchestrator(feed, poller, closer, sched, heartbeat, fc.StaleAfter.Duration, deps.Notifier, a.logger), nil
}

// startHTTPServer adds the WebSocket hub and the HTTP server to the given
// errgroup. The server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      startedAt,
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, svcs.prices, a.cfg.Feed.StaleAfter.Duration, a.logger),
		Valuation: handler.NewValuationHandler(svcs.valuation, a.logger),
		Ledger:    handler.NewLedgerHandler(svcs.ledger, a.logger),
		Prices:    handler.NewPriceHandler(svcs.prices, a.logger),
	}
	if svcs.accounts != nil {
		handlers.Account = handler.NewAccountHandler(svcs.accounts, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	if a.cfg.Server.APIKey == "" {
		a.logger.WarnContext(ctx, "server.api_key is empty; API authentication is disabled")
	}

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
