package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, loads .env, applies environment overrides and returns
// the final Config. An empty path skips the file. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w: %w", path, domain.ErrConfig, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if cfg.Debug {
		cfg.Monitor.PollInterval = Duration{debugPollInterval}
	}
	return &cfg, nil
}

// applyEnvOverrides reads the bare variable names the monitor has always
// accepted, then ARBMON_* variables, so the namespaced form wins when both are
// set. Empty variables are ignored.
func applyEnvOverrides(cfg *Config) {
	// ── Legacy names ──
	setStr(&cfg.Kalshi.APIKey, "KALSHI_API_KEY")
	setStr(&cfg.Kalshi.PrivateKeyPath, "KALSHI_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.EventTicker, "KALSHI_TICKER")
	setStr(&cfg.Polymarket.Slug, "POLYMARKET_SLUG")
	setStr(&cfg.Polymarket.WSURL, "POLYMARKET_WS_URL")
	setDuration(&cfg.Monitor.PollInterval, "POLL_INTERVAL")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.Debug, "DEBUG")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.APIKey, "ARBMON_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.PrivateKeyPath, "ARBMON_KALSHI_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.EncryptedKeyPath, "ARBMON_KALSHI_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Kalshi.KeyPassword, "ARBMON_KALSHI_KEY_PASSWORD")
	setStr(&cfg.Kalshi.BaseURL, "ARBMON_KALSHI_BASE_URL")
	setStr(&cfg.Kalshi.EventTicker, "ARBMON_KALSHI_EVENT_TICKER")
	setStr(&cfg.Kalshi.MarketTicker, "ARBMON_KALSHI_MARKET_TICKER")
	setDuration(&cfg.Kalshi.HTTPTimeout, "ARBMON_KALSHI_HTTP_TIMEOUT")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "ARBMON_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WSURL, "ARBMON_POLYMARKET_WS_URL")
	setStr(&cfg.Polymarket.Slug, "ARBMON_POLYMARKET_SLUG")
	setStr(&cfg.Polymarket.AssetID, "ARBMON_POLYMARKET_ASSET_ID")
	setStr(&cfg.Polymarket.Anchor, "ARBMON_POLYMARKET_ANCHOR")

	// ── Monitor ──
	setDuration(&cfg.Monitor.PollInterval, "ARBMON_MONITOR_POLL_INTERVAL")
	setDuration(&cfg.Monitor.PullTimeout, "ARBMON_MONITOR_PULL_TIMEOUT")
	setDuration(&cfg.Monitor.PushReadTimeout, "ARBMON_MONITOR_PUSH_READ_TIMEOUT")
	setDuration(&cfg.Monitor.ReconnectTimeout, "ARBMON_MONITOR_RECONNECT_TIMEOUT")
	setDuration(&cfg.Monitor.TickDelay, "ARBMON_MONITOR_TICK_DELAY")
	setDuration(&cfg.Monitor.DisplayInterval, "ARBMON_MONITOR_DISPLAY_INTERVAL")
	setInt(&cfg.Monitor.DisplayEvery, "ARBMON_MONITOR_DISPLAY_EVERY")
	setBool(&cfg.Monitor.Color, "ARBMON_MONITOR_COLOR")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ARBMON_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBMON_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBMON_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBMON_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBMON_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBMON_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.QuoteTTL, "ARBMON_REDIS_QUOTE_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "ARBMON_REDIS_STREAM_MAX_LEN")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ARBMON_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ARBMON_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBMON_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBMON_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBMON_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBMON_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBMON_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBMON_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBMON_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBMON_POSTGRES_RUN_MIGRATIONS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBMON_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBMON_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBMON_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBMON_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ARBMON_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBMON_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBMON_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ARBMON_NOTIFY_EVENTS")
	setDuration(&cfg.Notify.Cooldown, "ARBMON_NOTIFY_COOLDOWN")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBMON_MODE")
	setStr(&cfg.LogLevel, "ARBMON_LOG_LEVEL")
	setBool(&cfg.Verbose, "ARBMON_VERBOSE")
	setBool(&cfg.Debug, "ARBMON_DEBUG")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present, non-empty and parses.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
