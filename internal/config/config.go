// Package config defines the monitor's configuration and validation helpers.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBMON_* environment variables.
type Config struct {
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Redis      RedisConfig      `toml:"redis"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
	Verbose    bool             `toml:"verbose"`
	Debug      bool             `toml:"debug"`
}

// KalshiConfig holds the pull venue's credentials and market selection.
// MarketTicker, when set, skips resolution from EventTicker.
type KalshiConfig struct {
	APIKey           string   `toml:"api_key"`
	PrivateKeyPath   string   `toml:"private_key_path"`
	EncryptedKeyPath string   `toml:"encrypted_key_path"`
	KeyPassword      string   `toml:"key_password"`
	BaseURL          string   `toml:"base_url"`
	EventTicker      string   `toml:"event_ticker"`
	MarketTicker     string   `toml:"market_ticker"`
	HTTPTimeout      Duration `toml:"http_timeout"`
}

// PolymarketConfig holds the push venue's endpoints and market selection.
// AssetID, when set, skips resolution from Slug; Anchor then names the
// outcome used to pick the Kalshi market.
type PolymarketConfig struct {
	GammaHost string `toml:"gamma_host"`
	WSURL     string `toml:"ws_url"`
	Slug      string `toml:"slug"`
	AssetID   string `toml:"asset_id"`
	Anchor    string `toml:"anchor"`
}

// MonitorConfig holds the synchronizer loop timing.
type MonitorConfig struct {
	PollInterval     Duration `toml:"poll_interval"`
	PullTimeout      Duration `toml:"pull_timeout"`
	PushReadTimeout  Duration `toml:"push_read_timeout"`
	ReconnectTimeout Duration `toml:"reconnect_timeout"`
	TickDelay        Duration `toml:"tick_delay"`
	DisplayInterval  Duration `toml:"display_interval"`
	DisplayEvery     int      `toml:"display_every"`
	Color            bool     `toml:"color"`
}

// RedisConfig holds Redis connection parameters and key lifetimes.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	QuoteTTL     Duration `toml:"quote_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// PostgresConfig holds the opportunity journal's connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	TelegramAPIBase   string   `toml:"telegram_api_base"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	DiscordUsername   string   `toml:"discord_username"`
	Events            []string `toml:"events"`
	Cooldown          Duration `toml:"cooldown"`
}

// Duration decodes TOML strings like "500ms" or "2s". A bare number is read
// as seconds and may be fractional ("0.5" or 0.5).
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ParseDuration accepts Go duration syntax or a number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// debugPollInterval replaces the poll interval when Debug is set so raw
// payload logging stays readable.
const debugPollInterval = 30 * time.Second

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Kalshi: KalshiConfig{
			BaseURL:     "https://api.elections.kalshi.com/trade-api/v2",
			HTTPTimeout: Duration{10 * time.Second},
		},
		Polymarket: PolymarketConfig{
			GammaHost: "https://gamma-api.polymarket.com",
			WSURL:     "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Monitor: MonitorConfig{
			PollInterval:     Duration{500 * time.Millisecond},
			PullTimeout:      Duration{5 * time.Second},
			PushReadTimeout:  Duration{500 * time.Millisecond},
			ReconnectTimeout: Duration{10 * time.Second},
			TickDelay:        Duration{10 * time.Millisecond},
			DisplayInterval:  Duration{10 * time.Second},
			DisplayEvery:     10,
			Color:            true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			QuoteTTL:     Duration{time.Minute},
			StreamMaxLen: 10000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbmonitor",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Server: ServerConfig{
			Enabled:     false,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			TelegramAPIBase: "https://api.telegram.org",
			DiscordUsername: "arbmonitor",
			Events:          []string{"arb_detected"},
			Cooldown:        Duration{5 * time.Minute},
		},
		Mode:     "console",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"console": true,
	"monitor": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// UsesRedis reports whether the mode mirrors state to Redis.
func (c *Config) UsesRedis() bool {
	m := strings.ToLower(c.Mode)
	return m == "monitor" || m == "full"
}

// UsesPostgres reports whether the mode journals opportunities.
func (c *Config) UsesPostgres() bool {
	return strings.ToLower(c.Mode) == "full"
}

// ServesHTTP reports whether the status server runs.
func (c *Config) ServesHTTP() bool {
	return c.Server.Enabled || strings.ToLower(c.Mode) == "full"
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: console, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Kalshi
	if c.Kalshi.APIKey == "" {
		errs = append(errs, "kalshi: api_key is required")
	}
	if c.Kalshi.PrivateKeyPath == "" && c.Kalshi.EncryptedKeyPath == "" {
		errs = append(errs, "kalshi: either private_key_path or encrypted_key_path must be set")
	}
	if c.Kalshi.EncryptedKeyPath != "" && c.Kalshi.KeyPassword == "" {
		errs = append(errs, "kalshi: key_password is required when encrypted_key_path is set")
	}
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	if c.Kalshi.EventTicker == "" && c.Kalshi.MarketTicker == "" {
		errs = append(errs, "kalshi: either event_ticker or market_ticker must be set")
	}

	// Polymarket
	if c.Polymarket.WSURL == "" {
		errs = append(errs, "polymarket: ws_url must not be empty")
	}
	if c.Polymarket.Slug == "" && c.Polymarket.AssetID == "" {
		errs = append(errs, "polymarket: either slug or asset_id must be set")
	}
	if c.Polymarket.Slug != "" && c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty when resolving a slug")
	}

	// Monitor
	positive := []struct {
		name string
		d    Duration
	}{
		{"poll_interval", c.Monitor.PollInterval},
		{"pull_timeout", c.Monitor.PullTimeout},
		{"push_read_timeout", c.Monitor.PushReadTimeout},
		{"reconnect_timeout", c.Monitor.ReconnectTimeout},
		{"display_interval", c.Monitor.DisplayInterval},
	}
	for _, p := range positive {
		if p.d.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("monitor: %s must be > 0", p.name))
		}
	}
	if c.Monitor.TickDelay.Duration < 0 {
		errs = append(errs, "monitor: tick_delay must be >= 0")
	}
	if c.Monitor.DisplayEvery < 1 {
		errs = append(errs, "monitor: display_every must be >= 1")
	}

	// Redis
	if c.UsesRedis() {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty for mode "+c.Mode)
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.UsesPostgres() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Server
	if c.ServesHTTP() {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: validation failed:\n  - %s", domain.ErrConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}
