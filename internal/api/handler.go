package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hexbet_go/internal/domain"
	"hexbet_go/internal/engine"
	"hexbet_go/internal/event"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errUnavailable = errors.New("not configured")

// StatusResponse is the compact observability view.
type StatusResponse struct {
	Frame        uint64            `json:"frame"`
	Feed         domain.FeedStatus `json:"feed"`
	Anchored     bool              `json:"anchored"`
	AnchorPrice  float64           `json:"anchor_price,omitempty"`
	Disconnected bool              `json:"disconnected"`
	Balance      decimal.Decimal   `json:"balance"`
	OpenBets     int               `json:"open_bets"`
	SequenceGaps uint64            `json:"sequence_gaps"`
	Diagnostic   string            `json:"diagnostic,omitempty"`
}

// HealthCheck handles GET /health requests
func (h *APIHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.opts.Version,
	})
}

// GetStatus handles GET /status requests
func (h *APIHandler) GetStatus(c *gin.Context) {
	f := h.game.Snapshot()
	resp := StatusResponse{
		Frame:        f.Number,
		Feed:         f.Status,
		Anchored:     f.Anchor != nil,
		Disconnected: f.Disconnected,
		Balance:      f.Ledger.Balance,
		OpenBets:     len(f.Ledger.Bets),
		SequenceGaps: f.SequenceGaps,
		Diagnostic:   f.Diagnostic,
	}
	if f.Anchor != nil {
		resp.AnchorPrice = f.Anchor.AnchorPrice
	}
	c.JSON(http.StatusOK, resp)
}

// GetFrame handles GET /frame requests
func (h *APIHandler) GetFrame(c *gin.Context) {
	c.JSON(http.StatusOK, h.game.Snapshot())
}

// GetCandles handles GET /candles requests (live session candles).
func (h *APIHandler) GetCandles(c *gin.Context) {
	f := h.game.Snapshot()
	candles := f.Candles
	if candles == nil {
		candles = []engine.CandleView{}
	}
	c.JSON(http.StatusOK, candles)
}

// GetBets handles GET /bets requests
func (h *APIHandler) GetBets(c *gin.Context) {
	f := h.game.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ledger":     f.Ledger,
		"other_bets": f.OtherBets,
	})
}

// GetMetrics handles GET /metrics requests
func (h *APIHandler) GetMetrics(c *gin.Context) {
	if h.opts.Metrics == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "metrics not available")
		return
	}
	c.JSON(http.StatusOK, h.opts.Metrics.Snapshot())
}

// GetSnapshot handles GET /snapshot.png requests
func (h *APIHandler) GetSnapshot(c *gin.Context) {
	if h.opts.Renderer == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "renderer not available")
		return
	}
	scale, err := parseScale(c.Query("scale"), h.opts.MaxScale)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.opts.Renderer.EncodePNG(&buf, h.game.Snapshot(), scale); err != nil {
		h.handleError(c, err, http.StatusServiceUnavailable, "frame not renderable yet")
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// GetSettlements handles GET /history/settlements requests
func (h *APIHandler) GetSettlements(c *gin.Context) {
	if h.opts.History == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "history not available")
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	records, err := h.opts.History.RecentSettlements(limit)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetSettlementByID handles GET /history/settlements/:id requests
func (h *APIHandler) GetSettlementByID(c *gin.Context) {
	if h.opts.History == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "history not available")
		return
	}
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.handleValidationError(c, errors.New("invalid bet id"))
		return
	}

	record, err := h.opts.History.GetSettlement(id)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	if record == nil {
		h.handleError(c, errors.New("settlement not found"), http.StatusNotFound, "settlement not found")
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetArchivedCandles handles GET /history/candles requests
func (h *APIHandler) GetArchivedCandles(c *gin.Context) {
	if h.opts.History == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "history not available")
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	records, err := h.opts.History.RecentCandles(limit)
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetOutcomes handles GET /history/outcomes requests
func (h *APIHandler) GetOutcomes(c *gin.Context) {
	if h.opts.History == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "history not available")
		return
	}
	counts, err := h.opts.History.OutcomeCounts()
	if err != nil {
		h.handleError(c, err, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, counts)
}

// ======================================================================================
// Input
// ======================================================================================

type tapRequest struct {
	X *float64 `json:"x" binding:"required"`
	Y *float64 `json:"y" binding:"required"`
}

type panRequest struct {
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
	DirX int     `json:"dir_x"`
	DirY int     `json:"dir_y"`
}

type zoomRequest struct {
	Steps int     `json:"steps" binding:"min=-32,max=32"`
	Level float64 `json:"level" binding:"gte=0"`
}

type betAmountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Step   int              `json:"step"`
}

type leverageRequest struct {
	Leverage *int `json:"leverage"`
	Step     int  `json:"step"`
}

type resizeRequest struct {
	Width  float64 `json:"width" binding:"gt=0"`
	Height float64 `json:"height" binding:"gt=0"`
}

// PostTap handles POST /input/tap requests
func (h *APIHandler) PostTap(c *gin.Context) {
	var req tapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}
	h.submit(c, &event.TapEvent{BaseEvent: h.base(), X: *req.X, Y: *req.Y})
}

// PostPan handles POST /input/pan requests
func (h *APIHandler) PostPan(c *gin.Context) {
	var req panRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}
	h.submit(c, &event.PanEvent{
		BaseEvent: h.base(),
		DX:        req.DX,
		DY:        req.DY,
		DirX:      direction(req.DirX),
		DirY:      direction(req.DirY),
	})
}

// PostZoom handles POST /input/zoom requests
func (h *APIHandler) PostZoom(c *gin.Context) {
	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}
	if req.Steps == 0 && req.Level == 0 {
		h.handleValidationError(c, errors.New("steps or level is required"))
		return
	}
	h.submit(c, &event.ZoomEvent{BaseEvent: h.base(), Steps: req.Steps, Level: req.Level})
}

// PostRecenter handles POST /input/recenter requests
func (h *APIHandler) PostRecenter(c *gin.Context) {
	h.submit(c, &event.RecenterEvent{BaseEvent: h.base()})
}

// PostBetAmount handles POST /input/bet-amount requests
func (h *APIHandler) PostBetAmount(c *gin.Context) {
	var req betAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}
	ev := &event.BetAmountEvent{BaseEvent: h.base(), Step: direction(req.Step)}
	switch {
	case req.Step != 0:
	case req.Amount != nil && req.Amount.IsPositive():
		ev.Amount = *req.Amount
	default:
		h.handleValidationError(c, domain.ErrInvalidBetAmount)
		return
	}
	h.submit(c, ev)
}

// PostLeverage handles POST /input/leverage requests
func (h *APIHandler) PostLeverage(c *gin.Context) {
	var req leverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}
	ev := &event.LeverageEvent{BaseEvent: h.base(), Step: direction(req.Step)}
	switch {
	case req.Step != 0:
	case req.Leverage != nil && *req.Leverage > 0:
		ev.Leverage = *req.Leverage
	default:
		h.handleValidationError(c, domain.ErrInvalidLeverage)
		return
	}
	h.submit(c, ev)
}

// PostResize handles POST /input/resize requests
func (h *APIHandler) PostResize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, err)
		return
	}
	h.submit(c, &event.ResizeEvent{BaseEvent: h.base(), Width: req.Width, Height: req.Height})
}

// PostReconnect handles POST /feed/reconnect requests
func (h *APIHandler) PostReconnect(c *gin.Context) {
	if h.opts.Feed == nil {
		h.handleError(c, errUnavailable, http.StatusNotFound, "feed not available")
		return
	}
	h.opts.Feed.Reconnect()
	c.JSON(http.StatusAccepted, gin.H{"status": "reconnecting"})
}

func (h *APIHandler) base() event.BaseEvent {
	return event.BaseEvent{Seq: h.seq.Next(), Ts: time.Now().UnixMilli()}
}

// submit enqueues without blocking. Results show up in the next frame.
func (h *APIHandler) submit(c *gin.Context, ev event.Event) {
	if !h.game.Submit(ev) {
		h.handleError(c, errors.New("engine inbox full"), http.StatusServiceUnavailable, "busy, try again")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"seq":  ev.GetSeq(),
		"type": ev.GetType(),
	})
}

// handleError logs the error and sends appropriate HTTP response
func (h *APIHandler) handleError(c *gin.Context, err error, statusCode int, userMessage string) {
	requestIDStr := c.GetString(RequestIDContextKey)
	if requestIDStr == "" {
		requestIDStr = "unknown"
	}

	h.logger.Error("API error",
		slog.String("request_id", requestIDStr),
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
		slog.Int("status_code", statusCode),
	)

	c.JSON(statusCode, gin.H{
		"error":      userMessage,
		"request_id": requestIDStr,
	})
}

// handleValidationError handles validation errors specifically
func (h *APIHandler) handleValidationError(c *gin.Context, err error) {
	h.handleError(c, err, http.StatusBadRequest, err.Error())
}
