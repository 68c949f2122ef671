package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"hexbet_go/internal/engine"
	"hexbet_go/internal/event"
	"hexbet_go/internal/infra"
	"hexbet_go/internal/infra/storage"

	"github.com/gin-gonic/gin"
)

// Constants
const (
	DefaultTimeout      = 10 * time.Second
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
	ServiceName         = "hexbet"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// Game is the engine surface the API reads from and submits intents to.
type Game interface {
	Snapshot() engine.Frame
	Submit(ev event.Event) bool
}

// History serves archived outcomes. Optional.
type History interface {
	RecentSettlements(limit int) ([]storage.SettlementRecord, error)
	RecentCandles(limit int) ([]storage.CandleRecord, error)
	OutcomeCounts() (map[string]int64, error)
	GetSettlement(betID string) (*storage.SettlementRecord, error)
}

// MetricsSource exposes counters. *infra.Metrics implements it.
type MetricsSource interface {
	Snapshot() infra.MetricsSnapshot
}

// FrameEncoder renders a frame as PNG. Optional.
type FrameEncoder interface {
	EncodePNG(w io.Writer, f engine.Frame, scale float64) error
}

// Reconnector restarts the feed connection. Optional.
type Reconnector interface {
	Reconnect()
}

// Options wires the optional collaborators.
type Options struct {
	History     History
	Metrics     MetricsSource
	Renderer    FrameEncoder
	Feed        Reconnector
	MaxScale    float64
	AllowOrigin string
	Version     string
}

// APIHandler handles HTTP requests using Gin framework
type APIHandler struct {
	game   Game
	seq    *event.Sequence
	opts   Options
	logger *slog.Logger
}

// NewAPIHandler creates a new API handler. Input events are numbered from seq,
// the same sequence the feed uses.
func NewAPIHandler(game Game, seq *event.Sequence, opts Options, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if seq == nil {
		seq = &event.Sequence{}
	}
	if opts.MaxScale <= 0 {
		opts.MaxScale = 2
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}

	return &APIHandler{
		game:   game,
		seq:    seq,
		opts:   opts,
		logger: logger,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes() *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(requestIDMiddleware())
	router.Use(ginLoggerMiddleware(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(h.opts.AllowOrigin))

	router.GET("/health", h.HealthCheck)
	router.GET("/status", h.GetStatus)
	router.GET("/frame", h.GetFrame)
	router.GET("/candles", h.GetCandles)
	router.GET("/bets", h.GetBets)
	router.GET("/metrics", h.GetMetrics)
	router.GET("/snapshot.png", h.GetSnapshot)

	history := router.Group("/history")
	history.GET("/settlements", h.GetSettlements)
	history.GET("/settlements/:id", h.GetSettlementByID)
	history.GET("/candles", h.GetArchivedCandles)
	history.GET("/outcomes", h.GetOutcomes)

	input := router.Group("/input")
	input.POST("/tap", h.PostTap)
	input.POST("/pan", h.PostPan)
	input.POST("/zoom", h.PostZoom)
	input.POST("/recenter", h.PostRecenter)
	input.POST("/bet-amount", h.PostBetAmount)
	input.POST("/leverage", h.PostLeverage)
	input.POST("/resize", h.PostResize)

	router.POST("/feed/reconnect", h.PostReconnect)

	return router
}

// Server wraps the router in an http.Server bound to addr.
func (h *APIHandler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Serve runs the server until ctx is cancelled, then shuts it down.
func (h *APIHandler) Serve(ctx context.Context, addr string) error {
	srv := h.Server(addr)
	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("🌐 API listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
