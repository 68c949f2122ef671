package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"hexbet_go/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every application setting. LoadConfig starts from
// DefaultConfig, applies the YAML file and then environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed     FeedConfig     `yaml:"feed"`
	Stream   StreamConfig   `yaml:"stream"`
	Ladder   LadderConfig   `yaml:"ladder"`
	Trail    TrailConfig    `yaml:"trail"`
	Candles  CandlesConfig  `yaml:"candles"`
	Viewport ViewportConfig `yaml:"viewport"`
	Grid     GridConfig     `yaml:"grid"`
	Betting  BettingConfig  `yaml:"betting"`
	Engine   EngineConfig   `yaml:"engine"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Snapshot SnapshotConfig `yaml:"snapshot"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// FeedConfig describes the websocket order book feed.
type FeedConfig struct {
	URL                string `yaml:"url"`
	Market             string `yaml:"market"`
	HandshakeTimeoutMS int    `yaml:"handshake_timeout_ms"`
	ReadTimeoutMS      int    `yaml:"read_timeout_ms"`
	ReconnectDelayMS   int    `yaml:"reconnect_delay_ms"`
	Backoff            bool   `yaml:"backoff"` // double the delay per failed attempt
	MaxReconnectMS     int    `yaml:"max_reconnect_ms"`
}

type StreamConfig struct {
	Alpha            float64         `yaml:"alpha"`
	SampleIntervalMS int             `yaml:"sample_interval_ms"`
	StalenessMS      int             `yaml:"staleness_ms"`
	HistoryWindowMS  int             `yaml:"history_window_ms"`
	RangeTrim        float64         `yaml:"range_trim"`
	ScaleFactor      decimal.Decimal `yaml:"scale_factor"`
	ScaledThreshold  decimal.Decimal `yaml:"scaled_threshold"`
	MinPrice         decimal.Decimal `yaml:"min_price"`
	MaxPrice         decimal.Decimal `yaml:"max_price"`
}

type LadderConfig struct {
	SizeRatio     float64 `yaml:"size_ratio"`
	FallbackPrice float64 `yaml:"fallback_price"`
}

type TrailConfig struct {
	Spacing float64 `yaml:"spacing"`
	Buffer  float64 `yaml:"buffer"`
}

type CandlesConfig struct {
	DurationMS int `yaml:"duration_ms"`
	Capacity   int `yaml:"capacity"`
}

type ViewportConfig struct {
	MarginFraction float64 `yaml:"margin_fraction"`
	MinZoom        float64 `yaml:"min_zoom"`
	MaxZoom        float64 `yaml:"max_zoom"`
	ZoomStep       float64 `yaml:"zoom_step"`
	MarkerFraction float64 `yaml:"marker_fraction"`
	PanStep        float64 `yaml:"pan_step"`
}

type GridConfig struct {
	MarginCells       int     `yaml:"margin_cells"`
	HitRadiusFraction float64 `yaml:"hit_radius_fraction"`
	LossGraceColumns  float64 `yaml:"loss_grace_columns"`
}

// BettingConfig holds the session ledger and the simulated crowd.
type BettingConfig struct {
	InitialBalance decimal.Decimal `yaml:"initial_balance"`
	BetAmount      decimal.Decimal `yaml:"bet_amount"`
	BetStep        decimal.Decimal `yaml:"bet_step"`
	MaxBetAmount   decimal.Decimal `yaml:"max_bet_amount"`
	Leverage       int             `yaml:"leverage"`
	MinLeverage    int             `yaml:"min_leverage"`
	MaxLeverage    int             `yaml:"max_leverage"`

	Crowd struct {
		Enabled       bool   `yaml:"enabled"`
		MinIntervalMS int    `yaml:"min_interval_ms"`
		MaxIntervalMS int    `yaml:"max_interval_ms"`
		MaxActive     int    `yaml:"max_active"`
		MinAhead      int    `yaml:"min_ahead"`
		Seed          uint64 `yaml:"seed"`
	} `yaml:"crowd"`
}

type EngineConfig struct {
	ScrollSpeed     float64 `yaml:"scroll_speed"`
	FPS             int     `yaml:"fps"`
	MaxFrameDeltaMS int     `yaml:"max_frame_delta_ms"`
	InboxSize       int     `yaml:"inbox_size"`
	NoticeTTLMS     int     `yaml:"notice_ttl_ms"`
	DumpPath        string  `yaml:"dump_path"`

	// Initial surface size. Zero waits for a resize input.
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type APIConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	PprofAddr   string `yaml:"pprof_addr"`
	AllowOrigin string `yaml:"allow_origin"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Buffer  int    `yaml:"buffer"`
}

type SnapshotConfig struct {
	MaxScale float64 `yaml:"max_scale"`
}

// DefaultConfig returns a configuration that runs without a config file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "hexbet"
	cfg.App.Version = "0.1.0"

	cfg.Feed = FeedConfig{
		URL:                "ws://localhost:8765/ws",
		Market:             "SOL-PERP",
		HandshakeTimeoutMS: 10000,
		ReadTimeoutMS:      30000,
		ReconnectDelayMS:   3000,
		MaxReconnectMS:     60000,
	}
	cfg.Stream = StreamConfig{
		Alpha:            0.18,
		SampleIntervalMS: 50,
		StalenessMS:      20000,
		HistoryWindowMS:  5000,
		RangeTrim:        0.05,
		ScaleFactor:      decimal.NewFromInt(1_000_000),
		ScaledThreshold:  decimal.NewFromInt(100_000),
		MinPrice:         decimal.NewFromInt(1),
		MaxPrice:         decimal.NewFromInt(10_000),
	}
	cfg.Ladder = LadderConfig{SizeRatio: 24, FallbackPrice: 100}
	cfg.Trail = TrailConfig{Spacing: 4, Buffer: 200}
	cfg.Candles = CandlesConfig{DurationMS: 1000, Capacity: 240}
	cfg.Viewport = ViewportConfig{
		MarginFraction: 0.3,
		MinZoom:        0.75,
		MaxZoom:        1.5,
		ZoomStep:       0.125,
		MarkerFraction: 0.35,
		PanStep:        40,
	}
	cfg.Grid = GridConfig{MarginCells: 2, HitRadiusFraction: 0.6, LossGraceColumns: 1}

	cfg.Betting.InitialBalance = decimal.NewFromInt(1000)
	cfg.Betting.BetAmount = decimal.NewFromInt(5)
	cfg.Betting.BetStep = decimal.NewFromInt(5)
	cfg.Betting.MaxBetAmount = decimal.NewFromInt(500)
	cfg.Betting.Leverage = 10
	cfg.Betting.MinLeverage = 1
	cfg.Betting.MaxLeverage = 100
	cfg.Betting.Crowd.Enabled = true
	cfg.Betting.Crowd.MinIntervalMS = 700
	cfg.Betting.Crowd.MaxIntervalMS = 2500
	cfg.Betting.Crowd.MaxActive = 12
	cfg.Betting.Crowd.MinAhead = 2
	cfg.Betting.Crowd.Seed = 1

	cfg.Engine = EngineConfig{
		ScrollSpeed:     60,
		FPS:             60,
		MaxFrameDeltaMS: 250,
		InboxSize:       1024,
		NoticeTTLMS:     3000,
		DumpPath:        "panic_dump.json",
		Width:           1280,
		Height:          720,
	}
	cfg.API = APIConfig{Enabled: true, Addr: ":8080", PprofAddr: "localhost:6060", AllowOrigin: "*"}
	cfg.Storage = StorageConfig{Enabled: true, Path: "data/hexbet.db", Buffer: 1024}
	cfg.Snapshot = SnapshotConfig{MaxScale: 2}
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// LoadConfig reads the YAML file over the defaults. A missing file yields an
// error wrapping domain.ErrConfigNotFound.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.ConfigError{Field: "path", Err: fmt.Errorf("%s: %w", path, domain.ErrConfigNotFound)}
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &domain.ConfigError{Field: "yaml", Err: err}
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigOrDefault is LoadConfig that falls back to DefaultConfig (plus
// environment overrides) when the file does not exist.
func LoadConfigOrDefault(path string) (cfg *Config, fromFile bool, err error) {
	cfg, err = LoadConfig(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, domain.ErrConfigNotFound) {
		return nil, false, err
	}

	cfg = DefaultConfig()
	overrideWithEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, false, nil
}

func invalid(field, format string, args ...any) error {
	return &domain.ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	// Feed
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return invalid("feed.url", "invalid websocket URL: %q", c.Feed.URL)
	}
	if c.Feed.Market == "" {
		return invalid("feed.market", "market is required")
	}
	if c.Feed.ReconnectDelayMS <= 0 || c.Feed.ReadTimeoutMS <= 0 {
		return invalid("feed", "timeouts must be positive")
	}

	// Stream
	if c.Stream.Alpha <= 0 || c.Stream.Alpha > 1 {
		return invalid("stream.alpha", "must be in (0, 1], got %v", c.Stream.Alpha)
	}
	if c.Stream.SampleIntervalMS <= 0 || c.Stream.StalenessMS <= 0 {
		return invalid("stream", "intervals must be positive")
	}
	if c.Stream.RangeTrim < 0 || c.Stream.RangeTrim >= 0.5 {
		return invalid("stream.range_trim", "must be in [0, 0.5), got %v", c.Stream.RangeTrim)
	}
	if !c.Stream.MinPrice.IsPositive() || !c.Stream.MaxPrice.GreaterThan(c.Stream.MinPrice) {
		return invalid("stream.min_price", "price band [%s, %s] is empty", c.Stream.MinPrice, c.Stream.MaxPrice)
	}
	if !c.Stream.ScaleFactor.IsPositive() {
		return invalid("stream.scale_factor", "must be positive")
	}

	// Ladder and geometry
	if c.Ladder.SizeRatio <= 0 || c.Ladder.FallbackPrice <= 0 {
		return invalid("ladder", "size ratio and fallback price must be positive")
	}
	if c.Trail.Spacing <= 0 || c.Trail.Buffer < 0 {
		return invalid("trail.spacing", "must be positive")
	}
	if c.Candles.DurationMS <= 0 || c.Candles.Capacity <= 0 {
		return invalid("candles", "duration and capacity must be positive")
	}
	if c.Viewport.MinZoom <= 0 || c.Viewport.MaxZoom < c.Viewport.MinZoom {
		return invalid("viewport.zoom", "invalid zoom range [%v, %v]", c.Viewport.MinZoom, c.Viewport.MaxZoom)
	}
	if c.Viewport.MinZoom > 1 || c.Viewport.MaxZoom < 1 {
		return invalid("viewport.zoom", "zoom range must contain 1")
	}
	if c.Viewport.MarginFraction < 0 || c.Viewport.MarginFraction >= 1 {
		return invalid("viewport.margin_fraction", "must be in [0, 1)")
	}
	if c.Grid.HitRadiusFraction <= 0 || c.Grid.HitRadiusFraction > 1 {
		return invalid("grid.hit_radius_fraction", "must be in (0, 1]")
	}

	// Betting
	if c.Betting.InitialBalance.IsNegative() {
		return invalid("betting.initial_balance", "must not be negative")
	}
	if !c.Betting.BetAmount.IsPositive() || c.Betting.BetAmount.GreaterThan(c.Betting.MaxBetAmount) {
		return invalid("betting.bet_amount", "must be in (0, %s], got %s", c.Betting.MaxBetAmount, c.Betting.BetAmount)
	}
	if c.Betting.MinLeverage < 1 || c.Betting.Leverage < c.Betting.MinLeverage || c.Betting.Leverage > c.Betting.MaxLeverage {
		return invalid("betting.leverage", "must be in [%d, %d], got %d", c.Betting.MinLeverage, c.Betting.MaxLeverage, c.Betting.Leverage)
	}
	if cr := c.Betting.Crowd; cr.Enabled && (cr.MinIntervalMS <= 0 || cr.MaxIntervalMS < cr.MinIntervalMS) {
		return invalid("betting.crowd", "invalid interval range [%d, %d]", cr.MinIntervalMS, cr.MaxIntervalMS)
	}

	// Engine
	if c.Engine.FPS <= 0 || c.Engine.FPS > 240 {
		return invalid("engine.fps", "must be in [1, 240], got %d", c.Engine.FPS)
	}
	if c.Engine.ScrollSpeed <= 0 {
		return invalid("engine.scroll_speed", "must be positive")
	}

	if c.API.Enabled && c.API.Addr == "" {
		return invalid("api.addr", "address is required when the API is enabled")
	}
	if c.Storage.Enabled && c.Storage.Path == "" {
		return invalid("storage.path", "path is required when storage is enabled")
	}
	return nil
}

// overrideWithEnv applies environment variables over file values.
// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("HEXBET_FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("HEXBET_FEED_MARKET"); v != "" {
		cfg.Feed.Market = v
	}
	if v := os.Getenv("HEXBET_API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("HEXBET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HEXBET_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("HEXBET_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
}
