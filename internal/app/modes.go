package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/spreadbot/internal/arbitrage"
	"github.com/alanyoungcy/spreadbot/internal/domain"
	"github.com/alanyoungcy/spreadbot/internal/notify"
	"github.com/alanyoungcy/spreadbot/internal/render"
	"github.com/alanyoungcy/spreadbot/internal/server"
	"github.com/alanyoungcy/spreadbot/internal/server/handler"
	"github.com/alanyoungcy/spreadbot/internal/server/ws"
	"github.com/alanyoungcy/spreadbot/internal/service"
)

const (
	// eventBuffer bounds the side-channel queue between runners and the
	// publisher; a full queue drops events instead of stalling a cycle.
	eventBuffer     = 1024
	shutdownTimeout = 5 * time.Second
)

// PaperMode runs the full decision loop with simulated fills. With Redis
// enabled each symbol is leased so only one process trades it.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode")
	return a.runSpread(ctx, deps, false)
}

// MonitorMode samples and renders spreads without taking positions.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.runSpread(ctx, deps, true)
}

func (a *App) runSpread(ctx context.Context, deps *Dependencies, monitor bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	symbols := a.cfg.Trading.SymbolList()
	ledger := arbitrage.NewLedger()
	events := make(chan domain.CycleEvent, eventBuffer)

	var console *render.Console
	if a.cfg.Console.Enabled {
		console = render.NewConsole(os.Stdout, a.cfg.Console.Color, a.cfg.Trading.EntryThresholdPct,
			deps.SourceA.Venue(), deps.SourceB.Venue())
	}

	var (
		hub    *ws.Hub
		status *service.StatusService
	)
	if a.cfg.Server.Enabled {
		hub = ws.NewHub(func() any { return status.Status() }, a.logger)
	}
	publisher := service.NewEventPublisher(a.sinks(deps, console, hub), a.logger)
	status = service.NewStatusService(a.cfg.Mode, symbols, ledger, publisher, deps.TradeStore).
		WithAuditStore(deps.AuditStore).
		WithPriceCache(deps.PriceCache, deps.SourceA.Venue(), deps.SourceB.Venue())

	g, gctx := errgroup.WithContext(ctx)

	if !monitor && deps.LockManager != nil {
		if err := a.leaseSymbols(gctx, g, deps.LockManager, symbols); err != nil {
			return err
		}
	}

	runners := make([]*arbitrage.Runner, 0, len(symbols))
	for _, sym := range symbols {
		engine := arbitrage.NewEngine(arbitrage.EngineConfig{
			Symbol:            sym,
			EntryThresholdPct: a.cfg.Trading.EntryThresholdPct,
			ExitThresholdPct:  a.cfg.Trading.ExitThresholdPct,
			TradeSizeUSD:      a.cfg.Trading.TradeSizeUSD,
			TakerFeePctA:      a.cfg.Trading.TakerFeePctA,
			TakerFeePctB:      a.cfg.Trading.TakerFeePctB,
		}, ledger)
		runners = append(runners, arbitrage.NewRunner(
			arbitrage.RunnerConfig{Interval: a.cfg.Trading.PollInterval(), Monitor: monitor},
			arbitrage.NewSampler(deps.SourceA, deps.SourceB),
			engine, events, deps.Metrics, a.logger,
		))
	}

	a.audit(ctx, deps, "session.started", map[string]any{
		"mode":    a.cfg.Mode,
		"symbols": symbols,
	})

	// Runners close the event queue once they have all stopped; the
	// publisher then drains it to the end regardless of cancellation.
	g.Go(func() error {
		defer close(events)
		rg, rctx := errgroup.WithContext(gctx)
		for _, r := range runners {
			rg.Go(func() error {
				if err := r.Run(rctx); err != nil {
					a.alertFatal(deps, r.Symbol(), err)
					return fmt.Errorf("app: runner %s: %w", r.Symbol(), err)
				}
				return nil
			})
		}
		return rg.Wait()
	})
	g.Go(func() error {
		return publisher.Run(context.WithoutCancel(gctx), events)
	})

	if deps.Archiver != nil {
		g.Go(func() error { return deps.Archiver.Run(gctx) })
	}

	if hub != nil {
		g.Go(func() error { return hub.Run(gctx) })
		a.startHTTPServer(gctx, g, deps, status, hub)
	}

	err := g.Wait()

	// Samples published after the archiver's final flush.
	if deps.Archiver != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if ferr := deps.Archiver.Flush(flushCtx); ferr != nil {
			a.logger.Warn("final archive flush failed", slog.String("error", ferr.Error()))
		}
		flushCancel()
	}

	if !monitor {
		trades, wins, pnl := status.Summary()
		if console != nil {
			console.Summary(trades, wins, pnl)
		}
		a.logger.Info("session summary",
			slog.Int("trades", trades),
			slog.Int("wins", wins),
			slog.Float64("realized_pnl_usd", pnl),
			slog.Int("open_positions", len(ledger.Snapshot().Open)),
		)
		a.audit(context.Background(), deps, "session.stopped", map[string]any{
			"trades":           trades,
			"wins":             wins,
			"realized_pnl_usd": pnl,
		})
	}
	return err
}

// sinks selects the publisher consumers that are configured. Typed nil
// pointers are kept out of the interface fields.
func (a *App) sinks(deps *Dependencies, console *render.Console, hub *ws.Hub) service.Sinks {
	s := service.Sinks{
		Prices:   deps.PriceCache,
		Bus:      deps.SignalBus,
		Trades:   deps.TradeStore,
		Audit:    deps.AuditStore,
		Notifier: deps.Notifier,
	}
	if deps.Archiver != nil {
		s.Archive = deps.Archiver
	}
	if console != nil {
		s.Console = console
	}
	if hub != nil {
		s.Hub = hub
	}
	return s
}

// leaseSymbols holds a Redis lease per symbol for the life of ctx. Losing a
// lease stops the whole mode.
func (a *App) leaseSymbols(ctx context.Context, g *errgroup.Group, locks domain.LockManager, symbols []string) error {
	ttl := a.cfg.Redis.LockTTL.Duration
	for _, sym := range symbols {
		lost, err := locks.Hold(ctx, "runner:"+sym, ttl)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return fmt.Errorf("app: %s is already traded by another process: %w", sym, err)
			}
			return fmt.Errorf("app: lease %s: %w", sym, err)
		}
		a.logger.InfoContext(ctx, "symbol lease acquired", slog.String("symbol", sym), slog.Duration("ttl", ttl))
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-lost:
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("app: lease for %s lost", sym)
			}
		})
	}
	return nil
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, status *service.StatusService, hub *ws.Hub) {
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(deps.Checks, a.logger),
		Status:  handler.NewStatusHandler(status, a.logger),
		Metrics: deps.Metrics.Handler(),
	}, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

func (a *App) audit(ctx context.Context, deps *Dependencies, event string, detail map[string]any) {
	if deps.AuditStore == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := deps.AuditStore.Log(ctx, event, detail); err != nil {
		a.logger.Warn("audit log failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}

func (a *App) alertFatal(deps *Dependencies, symbol string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if nerr := deps.Notifier.Notify(ctx, notify.EventError, "Runner stopped", symbol+": "+err.Error()); nerr != nil {
		a.logger.Warn("error alert failed", slog.String("error", nerr.Error()))
	}
}
