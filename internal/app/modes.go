package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbmonitor/internal/config"
	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/feed"
	"github.com/alanyoungcy/arbmonitor/internal/monitor"
	"github.com/alanyoungcy/arbmonitor/internal/present"
	"github.com/alanyoungcy/arbmonitor/internal/server"
	"github.com/alanyoungcy/arbmonitor/internal/server/handler"
	"github.com/alanyoungcy/arbmonitor/internal/server/ws"
)

// ConsoleMode runs the monitor with terminal output and, when configured,
// alerts.
func (a *App) ConsoleMode(ctx context.Context, deps *Dependencies, pair Pair) error {
	a.logger.InfoContext(ctx, "starting console mode")
	return a.runMonitor(ctx, deps, pair, a.consoleSinks(deps, pair))
}

// MonitorMode adds the Redis quote mirror and the signal bus.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies, pair Pair) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	sinks, err := a.monitorSinks(deps, pair)
	if err != nil {
		return err
	}
	return a.runMonitor(ctx, deps, pair, sinks)
}

// FullMode adds the Postgres journal on top of monitor mode and always
// serves HTTP.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, pair Pair) error {
	a.logger.InfoContext(ctx, "starting full mode")
	sinks, err := a.fullSinks(deps, pair)
	if err != nil {
		return err
	}
	return a.runMonitor(ctx, deps, pair, sinks)
}

// consoleSinks is the terminal table plus alerts. The console is always
// first and synchronous; every other sink runs off the loop goroutine.
func (a *App) consoleSinks(deps *Dependencies, pair Pair) present.Fanout {
	sinks := present.Fanout{
		present.NewConsole(a.out, domain.VenuePolymarket, domain.VenueKalshi, pair.Anchor, a.cfg.Monitor.Color),
	}
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		sinks = append(sinks, present.NewAlertSink(deps.Notifier, a.logger))
	}
	return sinks
}

func (a *App) monitorSinks(deps *Dependencies, pair Pair) (present.Fanout, error) {
	if deps.SignalBus == nil {
		return nil, fmt.Errorf("app: monitor mode: %w: redis signal bus not wired", domain.ErrConfig)
	}
	bus := present.NewQueuedSink("bus",
		present.NewBusSink(deps.QuoteCache, deps.SignalBus, a.logger), 0, a.logger)
	return append(a.consoleSinks(deps, pair), bus), nil
}

func (a *App) fullSinks(deps *Dependencies, pair Pair) (present.Fanout, error) {
	if deps.OpportunityStore == nil {
		return nil, fmt.Errorf("app: full mode: %w: postgres store not wired", domain.ErrConfig)
	}
	sinks, err := a.monitorSinks(deps, pair)
	if err != nil {
		return nil, err
	}
	journal := present.NewQueuedSink("journal",
		present.NewJournalSink(deps.OpportunityStore, a.logger), 0, a.logger)
	return append(sinks, journal), nil
}

// monitorConfig maps the [monitor] section onto the loop settings.
func monitorConfig(cfg *config.Config) monitor.Config {
	return monitor.Config{
		PollInterval:     cfg.Monitor.PollInterval.Duration,
		PullTimeout:      cfg.Monitor.PullTimeout.Duration,
		PushReadTimeout:  cfg.Monitor.PushReadTimeout.Duration,
		ReconnectTimeout: cfg.Monitor.ReconnectTimeout.Duration,
		TickDelay:        cfg.Monitor.TickDelay.Duration,
		DisplayInterval:  cfg.Monitor.DisplayInterval.Duration,
		DisplayEvery:     cfg.Monitor.DisplayEvery,
		Verbose:          cfg.Verbose,
	}
}

// runMonitor starts the synchronizer and, when configured, the HTTP server,
// and waits for both.
func (a *App) runMonitor(ctx context.Context, deps *Dependencies, pair Pair, sinks present.Fanout) error {
	pull := feed.NewKalshiPull(deps.Kalshi, pair.KalshiTicker, a.logger)
	push := feed.NewPolymarketPush(deps.Updates, pair.AssetID, a.logger)
	syncer := monitor.New(pull, push, sinks, monitorConfig(a.cfg), a.logger)
	defer sinks.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncer.Run(ctx)
	})
	if a.cfg.ServesHTTP() {
		a.startHTTPServer(ctx, g, deps, pair, syncer)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startHTTPServer adds the server goroutines to g. The WebSocket hub is only
// registered when a signal bus is wired. The server is shut down gracefully
// when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, pair Pair, src handler.StateSource) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(),
		State:  handler.NewStateHandler(src, domain.VenueKalshi, domain.VenuePolymarket),
	}
	if deps.OpportunityStore != nil {
		handlers.Opportunities = handler.NewOpportunityHandler(deps.OpportunityStore, a.logger)
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Instruments: pair.Instruments(),
			StartedAt:   time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http server shutdown", slog.String("error", err.Error()))
		}
		return nil
	})
}
