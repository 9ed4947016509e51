package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbmonitor/internal/cache/redis"
	"github.com/alanyoungcy/arbmonitor/internal/config"
	"github.com/alanyoungcy/arbmonitor/internal/crypto"
	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/notify"
	"github.com/alanyoungcy/arbmonitor/internal/platform/kalshi"
	"github.com/alanyoungcy/arbmonitor/internal/platform/polymarket"
	"github.com/alanyoungcy/arbmonitor/internal/store/postgres"
)

// Dependencies bundles the clients and backends the modes use. Backends a
// mode does not need are nil.
type Dependencies struct {
	// Venues
	Kalshi  *kalshi.Client
	Gamma   *polymarket.GammaClient
	Updates *polymarket.WSClient

	// Redis (monitor, full)
	QuoteCache domain.QuoteCache
	SignalBus  domain.SignalBus

	// Postgres (full)
	OpportunityStore domain.OpportunityStore

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Kalshi (pull) ---
	signer, err := crypto.LoadRSASigner(crypto.KeyConfig{
		PEMPath:          cfg.Kalshi.PrivateKeyPath,
		EncryptedKeyPath: cfg.Kalshi.EncryptedKeyPath,
		KeyPassword:      cfg.Kalshi.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: kalshi key: %w: %w", domain.ErrConfig, err)
	}
	kc, err := kalshi.NewClient(cfg.Kalshi.BaseURL, cfg.Kalshi.APIKey, signer)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: kalshi: %w", err)
	}
	if cfg.Kalshi.HTTPTimeout.Duration > 0 {
		kc.SetHTTPTimeout(cfg.Kalshi.HTTPTimeout.Duration)
	}
	kc.SetDebug(logger, cfg.Debug)
	deps.Kalshi = kc

	// --- Polymarket (push) ---
	deps.Gamma = polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	deps.Updates = polymarket.NewWSClient(cfg.Polymarket.WSURL, logger)
	deps.Updates.SetDebug(cfg.Debug)

	// --- PostgreSQL (only for modes that journal) ---
	if cfg.UsesPostgres() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.OpportunityStore = postgres.NewOpportunityStore(pgClient.Pool())
	}

	// --- Redis ---
	if cfg.UsesRedis() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Redis.QuoteTTL.Duration)
		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPIBase,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL, cfg.Notify.DiscordUsername))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.Cooldown.Duration, logger)

	return deps, cleanup, nil
}
