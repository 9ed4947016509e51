// Command arbmonitor watches one binary outcome on Kalshi and Polymarket and
// reports cross-venue arbitrage. It loads configuration, validates it, wires
// dependencies, sets up signal handling, and runs the configured mode.
//
// Usage:
//
//	arbmonitor [-config config.toml]
//	arbmonitor encrypt-key -in kalshi.pem -out kalshi.enc
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/arbmonitor/internal/app"
	"github.com/alanyoungcy/arbmonitor/internal/config"
	"github.com/alanyoungcy/arbmonitor/internal/crypto"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "encrypt-key" {
		if err := encryptKey(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "encrypt-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	configPath := flag.String("config", "config.toml", "path to configuration file (empty to use defaults and environment only)")
	flag.Parse()

	// Logs go to stderr; stdout carries the console tables.
	logger := newLogger("info")
	slog.SetDefault(logger)

	path := *configPath
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !flagSet("config") {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger = newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("arbmonitor starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", path),
	)

	application := app.New(cfg, logger, os.Stdout)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		application.Close()
		os.Exit(1)
	}

	logger.Info("arbmonitor stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// flagSet reports whether name was given on the command line.
func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// encryptKey writes an encrypted copy of a PEM key for use as
// kalshi.encrypted_key_path.
func encryptKey(args []string) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ContinueOnError)
	in := fs.String("in", "", "plain PEM private key")
	out := fs.String("out", "", "encrypted key file to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("both -in and -out are required")
	}
	password := os.Getenv("ARBMON_KALSHI_KEY_PASSWORD")
	if password == "" {
		return errors.New("set ARBMON_KALSHI_KEY_PASSWORD")
	}

	pemBytes, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	if _, err := crypto.ParseRSAPrivateKey(pemBytes); err != nil {
		return err
	}
	blob, err := crypto.EncryptKey(pemBytes, password)
	if err != nil {
		return err
	}
	return os.WriteFile(*out, blob, 0o600)
}
