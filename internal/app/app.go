// Package app wires the venue clients, the monitor loop and the optional
// Redis, Postgres, notification and HTTP layers, then runs the configured
// mode until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbmonitor/internal/config"
)

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	closers []func()
}

// New creates an App. out receives the console tables; logs go to logger.
func New(cfg *config.Config, logger *slog.Logger, out io.Writer) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
		out:    out,
	}
}

// Run wires all dependencies, resolves the monitored pair, and runs the
// selected mode. It blocks until the context is cancelled or a component
// fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Bool("verbose", a.cfg.Verbose),
		slog.Bool("debug", a.cfg.Debug),
	)
	if a.cfg.Verbose || a.cfg.Debug {
		a.logger.InfoContext(ctx, "configuration", slog.Any("config", config.RedactedConfig(a.cfg)))
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	pair, err := resolvePair(ctx, a.cfg, deps.Gamma, deps.Kalshi, a.logger)
	if err != nil {
		return fmt.Errorf("app: resolve markets: %w", err)
	}

	switch strings.ToLower(a.cfg.Mode) {
	case "console":
		return a.ConsoleMode(ctx, deps, pair)
	case "monitor":
		return a.MonitorMode(ctx, deps, pair)
	case "full":
		return a.FullMode(ctx, deps, pair)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
