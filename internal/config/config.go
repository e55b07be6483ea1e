// Package config defines the top-level configuration for the spread bot
// and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SPREADBOT_* environment variables.
type Config struct {
	Trading     TradingConfig     `toml:"trading"`
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Paradex     ParadexConfig     `toml:"paradex"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Archive     ArchiveConfig     `toml:"archive"`
	Server      ServerConfig      `toml:"server"`
	Notify      NotifyConfig      `toml:"notify"`
	Console     ConsoleConfig     `toml:"console"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// TradingConfig holds the spread engine parameters. Thresholds are in
// percent, so 0.20 means a 0.20% spread.
type TradingConfig struct {
	Symbol            string   `toml:"symbol"`
	Symbols           []string `toml:"symbols"`
	EntryThresholdPct float64  `toml:"entry_threshold_pct"`
	ExitThresholdPct  float64  `toml:"exit_threshold_pct"`
	PollIntervalMs    uint64   `toml:"poll_interval_ms"`
	TradeSizeUSD      float64  `toml:"trade_size_usd"`
	FetchTimeoutMs    uint64   `toml:"fetch_timeout_ms"`
	TakerFeePctA      float64  `toml:"taker_fee_pct_a"`
	TakerFeePctB      float64  `toml:"taker_fee_pct_b"`
}

// PollInterval returns the cycle cadence.
func (t TradingConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

// FetchTimeout returns the per-fetch bound.
func (t TradingConfig) FetchTimeout() time.Duration {
	return time.Duration(t.FetchTimeoutMs) * time.Millisecond
}

// SymbolList returns Symbol followed by any extra Symbols, upper-cased and
// de-duplicated, in configuration order.
func (t TradingConfig) SymbolList() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append([]string{t.Symbol}, t.Symbols...) {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// HyperliquidConfig holds the venue A endpoint.
type HyperliquidConfig struct {
	BaseURL string `toml:"base_url"`
}

// ParadexConfig holds the venue B endpoint and market naming.
type ParadexConfig struct {
	BaseURL      string `toml:"base_url"`
	MarketSuffix string `toml:"market_suffix"`
}

// PostgresConfig holds the trade journal connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockTTL    duration `toml:"lock_ttl"`
	KeyPrefix  string   `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls batching of spread samples to object storage.
type ArchiveConfig struct {
	BatchSize     int      `toml:"batch_size"`
	FlushInterval duration `toml:"flush_interval"`
	Prefix        string   `toml:"prefix"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey, when set, is required as a Bearer token or X-API-Key header.
	APIKey string `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ConsoleConfig controls the human-readable status line.
type ConsoleConfig struct {
	Enabled bool `toml:"enabled"`
	// Color enables ANSI highlighting of spreads above the entry threshold.
	Color bool `toml:"color"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			Symbol:            "HYPE",
			EntryThresholdPct: 0.20,
			ExitThresholdPct:  0.00,
			PollIntervalMs:    50,
			TradeSizeUSD:      100.0,
			FetchTimeoutMs:    500,
		},
		Hyperliquid: HyperliquidConfig{
			BaseURL: "https://api.hyperliquid.xyz",
		},
		Paradex: ParadexConfig{
			BaseURL:      "https://api.prod.paradex.trade/v1",
			MarketSuffix: "-USD-PERP",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			LockTTL:    duration{15 * time.Second},
			KeyPrefix:  "spreadbot",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "spreadbot-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			BatchSize:     5000,
			FlushInterval: duration{5 * time.Minute},
			Prefix:        "samples",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"position_opened", "position_closed", "error"},
		},
		Console: ConsoleConfig{
			Enabled: true,
			Color:   true,
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"paper":   true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: paper, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	t := c.Trading
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"entry_threshold_pct", t.EntryThresholdPct},
		{"exit_threshold_pct", t.ExitThresholdPct},
		{"trade_size_usd", t.TradeSizeUSD},
		{"taker_fee_pct_a", t.TakerFeePctA},
		{"taker_fee_pct_b", t.TakerFeePctB},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			errs = append(errs, fmt.Sprintf("trading: %s must be a finite number", f.name))
		}
	}
	if len(t.SymbolList()) == 0 {
		errs = append(errs, "trading: symbol must not be empty")
	}
	if t.EntryThresholdPct < 0 {
		errs = append(errs, "trading: entry_threshold_pct must be >= 0")
	}
	if t.ExitThresholdPct < 0 {
		errs = append(errs, "trading: exit_threshold_pct must be >= 0")
	}
	if t.ExitThresholdPct > t.EntryThresholdPct {
		errs = append(errs, "trading: exit_threshold_pct must not exceed entry_threshold_pct")
	}
	if t.PollIntervalMs == 0 {
		errs = append(errs, "trading: poll_interval_ms must be positive")
	}
	if t.FetchTimeoutMs == 0 {
		errs = append(errs, "trading: fetch_timeout_ms must be positive")
	}
	if t.TradeSizeUSD <= 0 {
		errs = append(errs, "trading: trade_size_usd must be positive")
	}
	if t.TakerFeePctA < 0 || t.TakerFeePctB < 0 {
		errs = append(errs, "trading: taker fees must be >= 0")
	}

	if c.Hyperliquid.BaseURL == "" {
		errs = append(errs, "hyperliquid: base_url must not be empty")
	}
	if c.Paradex.BaseURL == "" {
		errs = append(errs, "paradex: base_url must not be empty")
	}

	if c.Postgres.Enabled && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		errs = append(errs, "postgres: either dsn or host must be set when enabled")
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.LockTTL.Duration < time.Second {
			errs = append(errs, "redis: lock_ttl must be at least 1s")
		}
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
		if c.Archive.BatchSize <= 0 {
			errs = append(errs, "archive: batch_size must be positive")
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
