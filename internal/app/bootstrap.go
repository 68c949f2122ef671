package app

import (
	"fmt"
	"log/slog"

	"hexbet_go/internal/engine"
	"hexbet_go/internal/infra"
	"hexbet_go/internal/infra/render"
	"hexbet_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Archive  *storage.Archive
	Renderer *render.Renderer
	Engine   *engine.Engine
	Metrics  *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads configuration, sets up logging and builds the engine with
// its archive. A missing config file falls back to defaults.
func (b *Bootstrap) Initialize(configPath string) error {
	if err := infra.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, fromFile, err := infra.LoadConfigOrDefault(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping hexbet...",
		slog.String("version", cfg.App.Version),
		slog.String("market", cfg.Feed.Market),
		slog.Bool("config_file", fromFile))

	b.Metrics = infra.GlobalMetrics

	var journal engine.Journal
	if cfg.Storage.Enabled {
		archive, err := storage.NewArchive(cfg.Storage.Path, cfg.Feed.Market, cfg.Storage.Buffer)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		b.Archive = archive
		journal = archive
		slog.Info("✅ Archive initialized", slog.String("path", cfg.Storage.Path))
	}

	b.Renderer = render.NewRenderer(render.DefaultPalette())

	eng, err := engine.New(EngineConfig(cfg), journal, b.Metrics)
	if err != nil {
		b.Close()
		return fmt.Errorf("engine: %w", err)
	}
	b.Engine = eng
	slog.Info("✅ Engine ready", slog.Int("fps", cfg.Engine.FPS))

	return nil
}

// Close flushes and closes the archive.
func (b *Bootstrap) Close() {
	if b.Archive == nil {
		return
	}
	if err := b.Archive.Close(); err != nil {
		slog.Error("Failed to close archive", slog.Any("error", err))
	}
	if n := b.Archive.Dropped(); n > 0 {
		slog.Warn("Archive dropped records", slog.Int64("count", n))
	}
}
