package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hexbet_go/internal/aggregate"
	"hexbet_go/internal/domain"
	"hexbet_go/internal/event"
	"hexbet_go/internal/grid"
	"hexbet_go/internal/stream"
	"hexbet_go/internal/viewport"

	"github.com/shopspring/decimal"
)

// Config wires every component owned by the engine.
type Config struct {
	SizeRatio     float64
	FallbackPrice float64

	Stream   stream.Config
	Trail    aggregate.TrailConfig
	Candles  aggregate.CandleConfig
	Viewport viewport.Config
	Grid     grid.Config
	Crowd    grid.CrowdConfig

	InitialBalance decimal.Decimal
	BetAmount      decimal.Decimal
	Leverage       int
	BetStep        decimal.Decimal
	Limits         domain.LedgerLimits

	ScrollSpeed   float64 // world units per second
	FrameInterval time.Duration
	MaxFrameDelta time.Duration
	InboxSize     int
	NoticeTTL     time.Duration
	CrowdSeed     uint64
	DumpPath      string
}

// DefaultConfig returns a playable configuration.
func DefaultConfig() Config {
	return Config{
		SizeRatio:      24,
		FallbackPrice:  100,
		Stream:         stream.DefaultConfig(),
		Trail:          aggregate.TrailConfig{Spacing: 4, Buffer: 200},
		Candles:        aggregate.CandleConfig{Duration: time.Second, Capacity: 240},
		Viewport:       viewport.DefaultConfig(),
		Grid:           grid.DefaultConfig(),
		Crowd:          grid.DefaultCrowdConfig(),
		InitialBalance: decimal.NewFromInt(1000),
		BetAmount:      decimal.NewFromInt(5),
		Leverage:       10,
		BetStep:        decimal.NewFromInt(5),
		Limits: domain.LedgerLimits{
			MaxBetAmount: decimal.NewFromInt(500),
			MinLeverage:  1,
			MaxLeverage:  100,
		},
		ScrollSpeed:   60,
		FrameInterval: time.Second / 60,
		MaxFrameDelta: 250 * time.Millisecond,
		InboxSize:     1024,
		NoticeTTL:     3 * time.Second,
		CrowdSeed:     1,
		DumpPath:      "panic_dump.json",
	}
}

// Journal receives finished candles and bet outcomes. Writes must not block.
type Journal interface {
	RecordCandle(c domain.Candle)
	RecordSettlement(s domain.Settlement)
}

// Recorder receives engine metrics.
type Recorder interface {
	RecordFrame(latencyNs int64)
	RecordTick(accepted bool)
	RecordSettlement(outcome domain.Outcome)
	RecordSequenceGap(n uint64)
}

type noopRecorder struct{}

func (noopRecorder) RecordFrame(int64)               {}
func (noopRecorder) RecordTick(bool)                 {}
func (noopRecorder) RecordSettlement(domain.Outcome) {}
func (noopRecorder) RecordSequenceGap(uint64)        {}

// Engine owns every piece of game state. All mutation happens on the
// goroutine running Run (or the caller of Apply/Frame in tests); producers
// only enqueue events.
type Engine struct {
	cfg   Config
	inbox chan event.Event

	ladder  *domain.Ladder
	stream  *stream.Processor
	trail   *aggregate.Trail
	candles *aggregate.Candles
	view    *viewport.Viewport
	grid    *grid.Engine
	crowd   *grid.Crowd
	ledger  *domain.Ledger

	journal Journal
	metrics Recorder

	connected   bool
	feedDown    bool // set by a disconnect, cleared by the next connect
	scroll      float64
	lastFrameMs int64
	sampleAccMs float64
	frameNo     uint64
	lastSeq     uint64
	seqGaps     uint64
	notices     []Notice
	diagnostic  string

	frame Frame
	mu    sync.RWMutex // guards frame for external reads
}

// New creates an engine. journal and metrics may be nil.
func New(cfg Config, journal Journal, metrics Recorder) (*Engine, error) {
	ledger, err := domain.NewLedger(cfg.InitialBalance, cfg.BetAmount, cfg.Leverage, cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = time.Second / 60
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}

	e := &Engine{
		cfg:     cfg,
		inbox:   make(chan event.Event, cfg.InboxSize),
		ladder:  domain.NewLadder(cfg.SizeRatio, cfg.FallbackPrice),
		stream:  stream.NewProcessor(cfg.Stream),
		trail:   aggregate.NewTrail(cfg.Trail),
		candles: aggregate.NewCandles(cfg.Candles),
		view:    viewport.New(cfg.Viewport),
		grid:    grid.NewEngine(cfg.Grid),
		crowd:   grid.NewCrowd(cfg.Crowd, cfg.CrowdSeed),
		ledger:  ledger,
		journal: journal,
		metrics: metrics,
	}
	e.frame = Frame{Ledger: ledger.View(), Status: e.stream.Status(0)}
	return e, nil
}

// Inbox returns the event channel. External producers send events here.
func (e *Engine) Inbox() chan<- event.Event {
	return e.inbox
}

// Submit enqueues an event without blocking. Returns false if dropped.
func (e *Engine) Submit(ev event.Event) bool {
	select {
	case e.inbox <- ev:
		return true
	default:
		return false
	}
}

// Run drives the frame loop and drains the inbox. It MUST be run in a single goroutine.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("🎬 Engine started", slog.Duration("frame_interval", e.cfg.FrameInterval))

	ticker := time.NewTicker(e.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine stopping...")
			return
		case ev := <-e.inbox:
			e.Apply(ev)
		case now := <-ticker.C:
			e.Frame(now)
		}
	}
}

// Apply processes one event to completion.
func (e *Engine) Apply(ev event.Event) {
	defer e.recoverInto("apply")

	e.trackSequence(ev.GetSeq())

	switch ev := ev.(type) {
	case *event.TickEvent:
		e.handleTick(ev)
		event.ReleaseTickEvent(ev)
	case *event.FeedStateEvent:
		e.handleFeedState(ev)
	case *event.ResizeEvent:
		e.handleResize(ev)
	case *event.TapEvent:
		e.handleTap(ev)
	case *event.PanEvent:
		if ev.DirX != 0 || ev.DirY != 0 {
			e.view.PanStep(ev.DirX, ev.DirY)
		}
		if ev.DX != 0 || ev.DY != 0 {
			e.view.Pan(ev.DX, ev.DY)
		}
	case *event.ZoomEvent:
		if ev.Level > 0 {
			e.view.SetZoom(ev.Level)
		} else if ev.Steps != 0 {
			e.view.ZoomBy(ev.Steps)
		}
	case *event.RecenterEvent:
		e.view.Recenter()
	case *event.BetAmountEvent:
		amount := ev.Amount
		if ev.Step != 0 {
			amount = e.ledger.BetAmount().Add(e.cfg.BetStep.Mul(decimal.NewFromInt(int64(ev.Step))))
		}
		if err := e.ledger.SetBetAmount(amount); err != nil {
			e.notify(ev.Ts, NoticeWarn, err.Error())
		}
	case *event.LeverageEvent:
		leverage := ev.Leverage
		if ev.Step != 0 {
			leverage = e.ledger.Leverage() + ev.Step
		}
		if err := e.ledger.SetLeverage(leverage); err != nil {
			e.notify(ev.Ts, NoticeWarn, err.Error())
		}
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

// trackSequence counts skipped sequence numbers (events dropped on a full
// inbox). Producers share one sequence and may interleave, so the count is
// an upper bound.
func (e *Engine) trackSequence(seq uint64) {
	if seq == 0 {
		return
	}
	if seq > e.lastSeq+1 && e.lastSeq != 0 {
		gap := seq - e.lastSeq - 1
		e.seqGaps += gap
		e.metrics.RecordSequenceGap(gap)
	}
	if seq > e.lastSeq {
		e.lastSeq = seq
	}
}

func (e *Engine) handleTick(ev *event.TickEvent) {
	mid, first, err := e.stream.Accept(ev.Bid, ev.Ask, ev.Ts)
	if err != nil {
		e.metrics.RecordTick(false)
		slog.Debug("⚠️ Tick rejected", slog.String("bid", ev.Bid), slog.String("ask", ev.Ask), slog.Any("error", err))
		return
	}
	e.metrics.RecordTick(true)

	if first {
		slog.Info("💹 First price received", slog.Float64("mid", mid))
	}
	if !e.ladder.Ready() && e.ladder.Offer(mid) {
		e.onAnchored()
	}
}

func (e *Engine) handleFeedState(ev *event.FeedStateEvent) {
	wasDown := e.feedDown
	e.connected = ev.Connected
	e.feedDown = !ev.Connected

	switch {
	case ev.Connected:
		slog.Info("🔌 Feed connected")
	case !wasDown:
		slog.Warn("🔌 Feed disconnected", slog.String("reason", ev.Reason))
		e.notify(ev.Ts, NoticeWarn, "price feed disconnected")
	}
}

func (e *Engine) handleResize(ev *event.ResizeEvent) {
	if ev.Width < 0 || ev.Height < 0 {
		return
	}
	e.view.Resize(ev.Width, ev.Height)
	if e.ladder.Resize(ev.Width, ev.Height) {
		e.onAnchored()
	}
}

func (e *Engine) onAnchored() {
	a, _ := e.ladder.Anchor()
	e.view.CenterOn(a.PriceToWorldY(e.stream.Current()))
	slog.Info("📐 Ladder anchored",
		slog.Float64("anchor_price", a.AnchorPrice),
		slog.Float64("pixels_per_tick", a.PixelsPerTick),
		slog.Float64("column_spacing", a.ColumnSpacing))
}

func (e *Engine) handleTap(ev *event.TapEvent) {
	a, ok := e.ladder.Anchor()
	if !ok {
		e.notify(ev.Ts, NoticeInfo, "waiting for price")
		return
	}
	id, ok := e.grid.CellAt(a, e.view, ev.X, ev.Y)
	if !ok {
		return
	}
	if grid.Passed(a, id, e.scroll) {
		e.notify(ev.Ts, NoticeInfo, domain.ErrCellPassed.Error())
		return
	}

	if e.ledger.HasBet(id) {
		s, err := e.ledger.CancelBet(id, ev.Ts)
		if err != nil {
			e.notify(ev.Ts, NoticeWarn, err.Error())
			return
		}
		s.CellPrice = a.PriceForCell(id.Col, id.Row)
		e.record(s)
		return
	}

	bet, err := e.ledger.PlaceBet(id, ev.Ts)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			e.notify(ev.Ts, NoticeWarn, "insufficient balance")
		} else {
			e.notify(ev.Ts, NoticeWarn, err.Error())
		}
		return
	}
	slog.Info("🎲 Bet placed",
		slog.String("cell", id.String()),
		slog.Float64("price", a.PriceForCell(id.Col, id.Row)),
		slog.String("amount", bet.Amount.String()),
		slog.Int("leverage", bet.Leverage))
}

// Frame runs one render tick: scroll, easing, trail and candles, camera,
// grid and settlement, then publishes a snapshot.
func (e *Engine) Frame(now time.Time) {
	start := time.Now()
	defer e.recoverInto("frame")

	nowMs := now.UnixMilli()
	var dtMs int64
	if e.lastFrameMs != 0 {
		dtMs = nowMs - e.lastFrameMs
	}
	if dtMs < 0 {
		dtMs = 0
	}
	if maxDt := e.cfg.MaxFrameDelta.Milliseconds(); maxDt > 0 && dtMs > maxDt {
		dtMs = maxDt
	}
	e.lastFrameMs = nowMs
	e.frameNo++

	anchor, ready := e.ladder.Anchor()
	online := !e.feedDown && e.stream.IsOnline(nowMs)

	// 1. Scroll. The world stands still while offline or unanchored.
	var delta float64
	if online && ready {
		delta = e.cfg.ScrollSpeed * float64(dtMs) / 1000
		e.scroll += delta
	}
	e.view.SetScroll(e.scroll)

	// 2. Easing on the fixed sample interval, candles on every eased update.
	if interval := float64(e.cfg.Stream.SampleInterval.Milliseconds()); interval > 0 {
		e.sampleAccMs += float64(dtMs)
		for e.sampleAccMs >= interval {
			e.sampleAccMs -= interval
			if online && e.stream.Sample(nowMs) && ready {
				price := e.stream.Current()
				if closed := e.candles.Update(price, anchor.PriceToWorldY(price), nowMs, e.scroll); closed != nil && e.journal != nil {
					e.journal.RecordCandle(*closed)
				}
			}
		}
	}

	if ready {
		liveY := anchor.PriceToWorldY(e.stream.Current())

		// 3. Trail
		if online {
			e.trail.Advance(delta, e.scroll, e.stream.Current(), liveY)
			rect := e.view.VisibleWorld()
			e.trail.Trim(e.scroll, max(e.scroll-rect.MinX, 0))
		}

		// 4. Camera
		e.view.Follow(liveY)

		// 5. Grid: settlement, then cosmetic crowd
		e.settle(anchor, liveY, nowMs)
		e.crowd.Expire(anchor, e.scroll)
		if online {
			if id, ok := e.crowd.Tick(nowMs, anchor, e.view.VisibleWorld(), e.scroll, e.ledger.HasBet); ok {
				slog.Debug("👥 Simulated bet", slog.String("cell", id.String()))
			}
		}
	}

	e.expireNotices(nowMs)
	e.publish(nowMs, anchor, ready, online)
	e.metrics.RecordFrame(time.Since(start).Nanoseconds())
}

func (e *Engine) settle(a domain.LadderAnchor, liveY float64, nowMs int64) {
	bets := e.ledger.Bets()
	if len(bets) == 0 {
		return
	}
	cells := make([]domain.CellID, len(bets))
	for i, b := range bets {
		cells[i] = b.Cell
	}

	res := e.grid.HitTest(a, e.view, e.trail, e.scroll, liveY, cells)
	for _, id := range res.Hits {
		s, err := e.ledger.Settle(id, nowMs)
		if err != nil {
			slog.Warn("Settlement refused", slog.String("cell", id.String()), slog.Any("error", err))
			continue
		}
		s.CellPrice = a.PriceForCell(id.Col, id.Row)
		e.record(s)
		e.notify(nowMs, NoticeWin, fmt.Sprintf("hit %.2f +%s", s.CellPrice, s.Payout))
		slog.Info("🎯 Bet settled",
			slog.String("cell", id.String()),
			slog.Float64("price", s.CellPrice),
			slog.String("payout", s.Payout.String()),
			slog.String("balance", e.ledger.Balance().String()))
	}
	for _, id := range res.Misses {
		s, err := e.ledger.Forfeit(id, nowMs)
		if err != nil {
			continue
		}
		s.CellPrice = a.PriceForCell(id.Col, id.Row)
		e.record(s)
	}
}

func (e *Engine) record(s domain.Settlement) {
	e.metrics.RecordSettlement(s.Outcome)
	if e.journal != nil {
		e.journal.RecordSettlement(s)
	}
}

func (e *Engine) recoverInto(stage string) {
	r := recover()
	if r == nil {
		return
	}
	slog.Error("CRITICAL_PANIC_DETECTED", slog.String("stage", stage), slog.Any("panic", r))
	e.diagnostic = fmt.Sprintf("%s: %v", stage, r)
	if e.cfg.DumpPath != "" {
		e.DumpState(e.cfg.DumpPath)
	}
	e.mu.Lock()
	e.frame.Diagnostic = e.diagnostic
	e.mu.Unlock()
}

// PriceForCell is the settlement price of a cell, or the fallback price
// before the ladder is anchored.
func (e *Engine) PriceForCell(col, row int) float64 {
	return e.ladder.PriceForCell(col, row)
}

// Snapshot returns the last published frame (external read).
func (e *Engine) Snapshot() Frame {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frame
}
