package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	tr := cfg.Trading
	if tr.EntryThresholdPct != 0.20 || tr.ExitThresholdPct != 0 || tr.PollIntervalMs != 50 ||
		tr.TradeSizeUSD != 100 || tr.FetchTimeoutMs != 500 {
		t.Fatalf("unexpected trading defaults: %+v", tr)
	}
	if tr.PollInterval() != 50*time.Millisecond || tr.FetchTimeout() != 500*time.Millisecond {
		t.Fatalf("unexpected durations %v %v", tr.PollInterval(), tr.FetchTimeout())
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(`
mode = "monitor"

[trading]
symbol = "eth"
symbols = ["BTC", "ETH", " hype "]
entry_threshold_pct = 0.5
poll_interval_ms = 200

[redis]
enabled = true
lock_ttl = "30s"
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Mode != "monitor" {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if got := strings.Join(cfg.Trading.SymbolList(), ","); got != "ETH,BTC,HYPE" {
		t.Fatalf("SymbolList = %s", got)
	}
	if cfg.Trading.EntryThresholdPct != 0.5 || cfg.Trading.TradeSizeUSD != 100 {
		t.Fatalf("unexpected trading %+v", cfg.Trading)
	}
	if cfg.Redis.LockTTL.Duration != 30*time.Second {
		t.Fatalf("lock_ttl = %v", cfg.Redis.LockTTL.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "live"
	cfg.Trading.Symbol = ""
	cfg.Trading.EntryThresholdPct = 0.1
	cfg.Trading.ExitThresholdPct = 0.2
	cfg.Trading.PollIntervalMs = 0
	cfg.Trading.TradeSizeUSD = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"unknown mode", "symbol must not be empty", "exit_threshold_pct must not exceed", "poll_interval_ms", "trade_size_usd"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SPREADBOT_TRADING_SYMBOL", "BTC")
	t.Setenv("SPREADBOT_TRADING_FETCH_TIMEOUT_MS", "250")
	t.Setenv("SPREADBOT_TRADING_TRADE_SIZE_USD", "not-a-number")
	t.Setenv("SPREADBOT_SERVER_CORS_ORIGINS", "http://a, ,http://b")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.Symbol != "BTC" || cfg.Trading.FetchTimeoutMs != 250 {
		t.Fatalf("env overrides not applied: %+v", cfg.Trading)
	}
	if cfg.Trading.TradeSizeUSD != 100 {
		t.Fatalf("unparsable override should be ignored, got %v", cfg.Trading.TradeSizeUSD)
	}
	if strings.Join(cfg.Server.CORSOrigins, "|") != "http://a|http://b" {
		t.Fatalf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Notify.TelegramToken = "tok"
	cfg.Trading.Symbols = []string{"ETH"}

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != "***" || out.Notify.TelegramToken != "***" {
		t.Fatalf("secrets not redacted: %+v", out.Postgres)
	}
	if out.S3.AccessKey != "" {
		t.Fatalf("empty secrets must stay empty")
	}
	out.Trading.Symbols[0] = "BTC"
	if cfg.Trading.Symbols[0] != "ETH" {
		t.Fatalf("redacted copy aliases the original slice")
	}
}

func TestValidateRejectsNonFinite(t *testing.T) {
	cases := []struct {
		toml  string
		field string
	}{
		{"entry_threshold_pct = nan", "entry_threshold_pct"},
		{"exit_threshold_pct = nan", "exit_threshold_pct"},
		{"exit_threshold_pct = inf", "exit_threshold_pct"},
		{"trade_size_usd = inf", "trade_size_usd"},
		{"trade_size_usd = nan", "trade_size_usd"},
		{"taker_fee_pct_a = nan", "taker_fee_pct_a"},
		{"taker_fee_pct_b = +inf", "taker_fee_pct_b"},
		{"entry_threshold_pct = -inf", "entry_threshold_pct"},
	}
	for _, tc := range cases {
		cfg, err := Parse("[trading]\n" + tc.toml + "\n")
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.toml, err)
		}
		err = cfg.Validate()
		if err == nil {
			t.Fatalf("%q: expected validation error", tc.toml)
		}
		if want := tc.field + " must be a finite number"; !strings.Contains(err.Error(), want) {
			t.Fatalf("%q: error %q missing %q", tc.toml, err.Error(), want)
		}
	}
}
