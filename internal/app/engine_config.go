package app

import (
	"time"

	"hexbet_go/internal/aggregate"
	"hexbet_go/internal/domain"
	"hexbet_go/internal/engine"
	"hexbet_go/internal/grid"
	"hexbet_go/internal/infra"
	"hexbet_go/internal/stream"
	"hexbet_go/internal/viewport"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// EngineConfig maps the file configuration onto the engine's components.
func EngineConfig(cfg *infra.Config) engine.Config {
	fps := cfg.Engine.FPS
	if fps <= 0 {
		fps = 60
	}

	return engine.Config{
		SizeRatio:     cfg.Ladder.SizeRatio,
		FallbackPrice: cfg.Ladder.FallbackPrice,
		Stream: stream.Config{
			Alpha:          cfg.Stream.Alpha,
			SampleInterval: ms(cfg.Stream.SampleIntervalMS),
			Staleness:      ms(cfg.Stream.StalenessMS),
			HistoryWindow:  ms(cfg.Stream.HistoryWindowMS),
			RangeTrim:      cfg.Stream.RangeTrim,
			Parser: stream.ParserConfig{
				ScaleFactor:     cfg.Stream.ScaleFactor,
				ScaledThreshold: cfg.Stream.ScaledThreshold,
				MinPrice:        cfg.Stream.MinPrice,
				MaxPrice:        cfg.Stream.MaxPrice,
			},
		},
		Trail: aggregate.TrailConfig{
			Spacing: cfg.Trail.Spacing,
			Buffer:  cfg.Trail.Buffer,
		},
		Candles: aggregate.CandleConfig{
			Duration: ms(cfg.Candles.DurationMS),
			Capacity: cfg.Candles.Capacity,
		},
		Viewport: viewport.Config{
			MarginFraction: cfg.Viewport.MarginFraction,
			MinZoom:        cfg.Viewport.MinZoom,
			MaxZoom:        cfg.Viewport.MaxZoom,
			ZoomStep:       cfg.Viewport.ZoomStep,
			MarkerFraction: cfg.Viewport.MarkerFraction,
			PanStep:        cfg.Viewport.PanStep,
		},
		Grid: grid.Config{
			MarginCells:       cfg.Grid.MarginCells,
			HitRadiusFraction: cfg.Grid.HitRadiusFraction,
			LossGraceColumns:  cfg.Grid.LossGraceColumns,
		},
		Crowd: grid.CrowdConfig{
			Enabled:     cfg.Betting.Crowd.Enabled,
			MinInterval: ms(cfg.Betting.Crowd.MinIntervalMS),
			MaxInterval: ms(cfg.Betting.Crowd.MaxIntervalMS),
			MaxActive:   cfg.Betting.Crowd.MaxActive,
			MinAhead:    cfg.Betting.Crowd.MinAhead,
		},
		InitialBalance: cfg.Betting.InitialBalance,
		BetAmount:      cfg.Betting.BetAmount,
		Leverage:       cfg.Betting.Leverage,
		BetStep:        cfg.Betting.BetStep,
		Limits: domain.LedgerLimits{
			MaxBetAmount: cfg.Betting.MaxBetAmount,
			MinLeverage:  cfg.Betting.MinLeverage,
			MaxLeverage:  cfg.Betting.MaxLeverage,
		},
		ScrollSpeed:   cfg.Engine.ScrollSpeed,
		FrameInterval: time.Second / time.Duration(fps),
		MaxFrameDelta: ms(cfg.Engine.MaxFrameDeltaMS),
		InboxSize:     cfg.Engine.InboxSize,
		NoticeTTL:     ms(cfg.Engine.NoticeTTLMS),
		CrowdSeed:     cfg.Betting.Crowd.Seed,
		DumpPath:      cfg.Engine.DumpPath,
	}
}
