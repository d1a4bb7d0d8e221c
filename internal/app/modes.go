package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poolbet/poolbet/internal/pipeline"
	"github.com/poolbet/poolbet/internal/server"
	"github.com/poolbet/poolbet/internal/server/handler"
	"github.com/poolbet/poolbet/internal/server/ws"
	"github.com/poolbet/poolbet/internal/service"
)

// ServerMode runs the HTTP API, the WebSocket hub, and nothing else.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode runs only the settlement archiver on its configured interval.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	arch, err := a.buildArchiver(deps)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return arch.RunEvery(ctx, a.archiveInterval())
	})
	return g.Wait()
}

// FullMode runs the HTTP API plus the settlement archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	a.startHTTPServer(ctx, g, deps)

	if a.cfg.Archive.Enabled {
		arch, err := a.buildArchiver(deps)
		if err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
		g.Go(func() error {
			return arch.RunEvery(ctx, a.archiveInterval())
		})
	} else {
		a.logger.InfoContext(ctx, "archive.enabled is false, settlement archiver not started")
	}

	return g.Wait()
}

// startHTTPServer builds the service layer and HTTP server and adds their
// goroutines to the errgroup. The server shuts down gracefully when the
// context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	marketSvc := service.NewMarketService(
		deps.MarketStore, deps.SettlementStore, deps.MarketCache,
		deps.LockManager, deps.SignalBus, deps.AuditStore,
		deps.Clock, deps.Notifier, deps.Metrics, a.logger,
	)
	betSvc := service.NewBetService(
		deps.MarketStore, deps.BetStore, deps.SettlementStore,
		deps.LeaderboardStore, deps.LockManager, deps.SignalBus,
		deps.AuditStore, deps.Clock, deps.Notifier, deps.Metrics, a.logger,
	)
	ledgerSvc := service.NewLedgerService(
		deps.LedgerStore, a.cfg.Faucet.Enabled, a.cfg.Faucet.MaxDeposit, a.logger,
	)

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:            a.cfg.Server.Port,
			CORSOrigins:     a.cfg.Server.CORSOrigins,
			RateLimit:       a.cfg.Server.RateLimit,
			RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(deps.Pool, a.logger),
			Markets: handler.NewMarketHandler(marketSvc, a.logger),
			Bets:    handler.NewBetHandler(betSvc, a.logger),
			Ledger:  handler.NewLedgerHandler(ledgerSvc, a.logger),
		},
		hub,
		deps.RateLimiter,
		deps.Metrics,
		deps.Clock,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

func (a *App) buildArchiver(deps *Dependencies) (*pipeline.Archiver, error) {
	if deps.BlobWriter == nil {
		return nil, fmt.Errorf("archiver requires blob storage; enable [s3] configuration")
	}
	return pipeline.NewArchiver(
		deps.MarketStore, deps.BetStore, deps.BlobWriter, deps.Clock,
		a.cfg.Archive.RetentionDays, a.cfg.Archive.BatchSize, a.logger,
	), nil
}

func (a *App) archiveInterval() time.Duration {
	interval := a.cfg.Archive.Interval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	a.logger.Info("settlement archiver scheduled",
		slog.Duration("interval", interval),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)
	return interval
}
