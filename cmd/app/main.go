package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hexbet_go/internal/api"
	"hexbet_go/internal/app"
	"hexbet_go/internal/event"
	"hexbet_go/internal/infra/feed"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()
	cfg := bootstrap.Config

	// 2. Pprof Server (for performance profiling)
	if cfg.API.PprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", cfg.API.PprofAddr))
			if err := http.ListenAndServe(cfg.API.PprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Engine (the single-writer frame loop)
	event.Warmup()
	eng := bootstrap.Engine
	var seq event.Sequence

	if cfg.Engine.Width > 0 && cfg.Engine.Height > 0 {
		eng.Submit(&event.ResizeEvent{
			BaseEvent: event.BaseEvent{Seq: seq.Next(), Ts: time.Now().UnixMilli()},
			Width:     float64(cfg.Engine.Width),
			Height:    float64(cfg.Engine.Height),
		})
	}

	go eng.Run(ctx)
	slog.InfoContext(ctx, "✅ Engine (hotpath) started")

	// 5. Price Feed
	client := feed.NewClient(cfg.Feed, eng.Inbox(), &seq, bootstrap.Metrics)
	if err := client.Connect(ctx); err != nil {
		slog.Error("Failed to start feed", slog.Any("error", err))
	}
	defer client.Disconnect()
	slog.InfoContext(ctx, "✅ Feed started", slog.String("market", cfg.Feed.Market))

	// 6. HTTP API
	apiDone := make(chan struct{})
	if cfg.API.Enabled {
		opts := api.Options{
			Metrics:     bootstrap.Metrics,
			Renderer:    bootstrap.Renderer,
			Feed:        client,
			MaxScale:    cfg.Snapshot.MaxScale,
			AllowOrigin: cfg.API.AllowOrigin,
			Version:     cfg.App.Version,
		}
		if bootstrap.Archive != nil {
			opts.History = bootstrap.Archive
		}

		handler := api.NewAPIHandler(eng, &seq, opts, slog.Default())
		go func() {
			defer close(apiDone)
			if err := handler.Serve(ctx, cfg.API.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("API server failed", slog.Any("error", err))
				stop()
			}
		}()
	} else {
		close(apiDone)
	}

	slog.InfoContext(ctx, "✨ hexbet fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("👋 Shutting down gracefully...")
	<-apiDone
}
