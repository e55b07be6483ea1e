package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPREADBOT_* environment variable overrides, and
// returns the final Config. A missing file is not an error: defaults plus
// environment are enough to run. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Parse decodes TOML from a string on top of the defaults. It does not read
// the environment.
func Parse(data string) (*Config, error) {
	cfg := Defaults()
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides reads well-known SPREADBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Trading ──
	setStr(&cfg.Trading.Symbol, "SPREADBOT_TRADING_SYMBOL")
	setStringSlice(&cfg.Trading.Symbols, "SPREADBOT_TRADING_SYMBOLS")
	setFloat64(&cfg.Trading.EntryThresholdPct, "SPREADBOT_TRADING_ENTRY_THRESHOLD_PCT")
	setFloat64(&cfg.Trading.ExitThresholdPct, "SPREADBOT_TRADING_EXIT_THRESHOLD_PCT")
	setUint64(&cfg.Trading.PollIntervalMs, "SPREADBOT_TRADING_POLL_INTERVAL_MS")
	setFloat64(&cfg.Trading.TradeSizeUSD, "SPREADBOT_TRADING_TRADE_SIZE_USD")
	setUint64(&cfg.Trading.FetchTimeoutMs, "SPREADBOT_TRADING_FETCH_TIMEOUT_MS")
	setFloat64(&cfg.Trading.TakerFeePctA, "SPREADBOT_TRADING_TAKER_FEE_PCT_A")
	setFloat64(&cfg.Trading.TakerFeePctB, "SPREADBOT_TRADING_TAKER_FEE_PCT_B")

	// ── Venues ──
	setStr(&cfg.Hyperliquid.BaseURL, "SPREADBOT_HYPERLIQUID_BASE_URL")
	setStr(&cfg.Paradex.BaseURL, "SPREADBOT_PARADEX_BASE_URL")
	setStr(&cfg.Paradex.MarketSuffix, "SPREADBOT_PARADEX_MARKET_SUFFIX")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "SPREADBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "SPREADBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPREADBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPREADBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPREADBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPREADBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPREADBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPREADBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPREADBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPREADBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPREADBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPREADBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPREADBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPREADBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPREADBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LockTTL, "SPREADBOT_REDIS_LOCK_TTL")
	setStr(&cfg.Redis.KeyPrefix, "SPREADBOT_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPREADBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPREADBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPREADBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPREADBOT_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.BatchSize, "SPREADBOT_ARCHIVE_BATCH_SIZE")
	setDuration(&cfg.Archive.FlushInterval, "SPREADBOT_ARCHIVE_FLUSH_INTERVAL")
	setStr(&cfg.Archive.Prefix, "SPREADBOT_ARCHIVE_PREFIX")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPREADBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPREADBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SPREADBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SPREADBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPREADBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SPREADBOT_NOTIFY_EVENTS")

	// ── Console ──
	setBool(&cfg.Console.Enabled, "SPREADBOT_CONSOLE_ENABLED")
	setBool(&cfg.Console.Color, "SPREADBOT_CONSOLE_COLOR")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPREADBOT_MODE")
	setStr(&cfg.LogLevel, "SPREADBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
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
