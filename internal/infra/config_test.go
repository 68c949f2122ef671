package infra

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hexbet_go/internal/domain"

	"github.com/shopspring/decimal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_OverDefaults(t *testing.T) {
	path := writeConfig(t, `
feed:
  url: "wss://feed.example.com/ws"
  market: "BTC-PERP"
betting:
  initial_balance: "250.50"
  bet_amount: "2.5"
logging:
  level: "debug"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Feed.URL != "wss://feed.example.com/ws" || cfg.Feed.Market != "BTC-PERP" {
		t.Errorf("Expected feed override, got %+v", cfg.Feed)
	}
	if !cfg.Betting.InitialBalance.Equal(decimal.RequireFromString("250.50")) {
		t.Errorf("Expected balance 250.50, got %s", cfg.Betting.InitialBalance)
	}
	if !cfg.Betting.BetAmount.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected bet amount 2.5, got %s", cfg.Betting.BetAmount)
	}
	// Untouched sections keep their defaults
	if cfg.Stream.Alpha != 0.18 || cfg.Engine.FPS != 60 || cfg.API.Addr != ":8080" {
		t.Errorf("Expected defaults for unset sections, got alpha=%v fps=%d addr=%s", cfg.Stream.Alpha, cfg.Engine.FPS, cfg.API.Addr)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, "app:\n  name: test\n")
	t.Setenv("HEXBET_FEED_URL", "ws://127.0.0.1:9000/feed")
	t.Setenv("HEXBET_FEED_MARKET", "ETH-PERP")
	t.Setenv("HEXBET_API_ADDR", ":9999")
	t.Setenv("HEXBET_LOG_LEVEL", "warn")
	t.Setenv("HEXBET_STORAGE_PATH", "/tmp/x.db")
	t.Setenv("HEXBET_LOG_DIR", "/tmp/hexbet-logs")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Feed.URL != "ws://127.0.0.1:9000/feed" || cfg.Feed.Market != "ETH-PERP" {
		t.Errorf("Expected env feed, got %+v", cfg.Feed)
	}
	if cfg.API.Addr != ":9999" || cfg.Logging.Level != "warn" || cfg.Storage.Path != "/tmp/x.db" {
		t.Errorf("Expected env overrides, got addr=%s level=%s path=%s", cfg.API.Addr, cfg.Logging.Level, cfg.Storage.Path)
	}
	if cfg.Logging.Dir != "/tmp/hexbet-logs" {
		t.Errorf("Expected log dir override, got %s", cfg.Logging.Dir)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("Expected ErrConfigNotFound, got %v", err)
	}

	cfg, fromFile, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || fromFile {
		t.Fatalf("Expected default config, got fromFile=%v err=%v", fromFile, err)
	}
	if cfg.Feed.Market != "SOL-PERP" {
		t.Errorf("Expected default market, got %s", cfg.Feed.Market)
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := writeConfig(t, "feed: [unclosed")
	_, err := LoadConfig(path)

	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "yaml" {
		t.Errorf("Expected yaml ConfigError, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"http feed url", func(c *Config) { c.Feed.URL = "http://x" }, "feed.url"},
		{"empty market", func(c *Config) { c.Feed.Market = "" }, "feed.market"},
		{"alpha zero", func(c *Config) { c.Stream.Alpha = 0 }, "stream.alpha"},
		{"alpha above one", func(c *Config) { c.Stream.Alpha = 1.5 }, "stream.alpha"},
		{"empty price band", func(c *Config) { c.Stream.MaxPrice = decimal.NewFromInt(1) }, "stream.min_price"},
		{"zoom excludes one", func(c *Config) { c.Viewport.MinZoom = 1.2 }, "viewport.zoom"},
		{"bet above max", func(c *Config) { c.Betting.BetAmount = decimal.NewFromInt(501) }, "betting.bet_amount"},
		{"leverage above max", func(c *Config) { c.Betting.Leverage = 101 }, "betting.leverage"},
		{"crowd intervals", func(c *Config) { c.Betting.Crowd.MaxIntervalMS = 10 }, "betting.crowd"},
		{"fps", func(c *Config) { c.Engine.FPS = 0 }, "engine.fps"},
		{"api addr", func(c *Config) { c.API.Addr = "" }, "api.addr"},
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			var cfgErr *domain.ConfigError
			err := cfg.Validate()
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Expected missing .env to be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("HEXBET_FEED_MARKET=BTC-PERP\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// Registered with t.Setenv so the variable is restored after the test
	t.Setenv("HEXBET_FEED_MARKET", "")
	os.Unsetenv("HEXBET_FEED_MARKET")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	cfg, _, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigOrDefault failed: %v", err)
	}
	if cfg.Feed.Market != "BTC-PERP" {
		t.Errorf("Expected market from .env, got %s", cfg.Feed.Market)
	}
}
