package engine

import (
	"encoding/json"
	"log/slog"
	"os"

	"hexbet_go/internal/domain"
	"hexbet_go/internal/viewport"
)

// NoticeKind classifies a transient user-visible notice.
type NoticeKind string

const (
	NoticeInfo NoticeKind = "INFO"
	NoticeWarn NoticeKind = "WARN"
	NoticeWin  NoticeKind = "WIN"
)

// Notice is a transient message for the user.
type Notice struct {
	Kind        NoticeKind `json:"kind"`
	Message     string     `json:"message"`
	ExpiresAtMs int64      `json:"expires_at_ms"`
}

// CandleView is a candle with its screen placement.
type CandleView struct {
	domain.Candle
	X      float64 `json:"x"`
	OpenY  float64 `json:"open_y"`
	HighY  float64 `json:"high_y"`
	LowY   float64 `json:"low_y"`
	CloseY float64 `json:"close_y"`
	Live   bool    `json:"live"`
}

// Frame is the immutable render snapshot published after every frame.
type Frame struct {
	Number       uint64               `json:"number"`
	AtMs         int64                `json:"at_ms"`
	Status       domain.FeedStatus    `json:"status"`
	Anchor       *domain.LadderAnchor `json:"anchor,omitempty"`
	Viewport     viewport.View        `json:"viewport"`
	Marker       viewport.Point       `json:"marker"`
	ShowLiveLine bool                 `json:"show_live_line"`
	Disconnected bool                 `json:"disconnected"`
	Cells        []domain.Cell        `json:"cells"`
	Trail        []viewport.Point     `json:"trail"`
	Candles      []CandleView         `json:"candles"`
	Ledger       domain.LedgerView    `json:"ledger"`
	OtherBets    []domain.CellID      `json:"other_bets"`
	Notices      []Notice             `json:"notices"`
	SequenceGaps uint64               `json:"sequence_gaps"`
	Diagnostic   string               `json:"diagnostic,omitempty"`
}

func (e *Engine) notify(nowMs int64, kind NoticeKind, msg string) {
	e.notices = append(e.notices, Notice{
		Kind:        kind,
		Message:     msg,
		ExpiresAtMs: nowMs + e.cfg.NoticeTTL.Milliseconds(),
	})
}

func (e *Engine) expireNotices(nowMs int64) {
	kept := e.notices[:0]
	for _, n := range e.notices {
		if n.ExpiresAtMs > nowMs {
			kept = append(kept, n)
		}
	}
	e.notices = kept
}

func (e *Engine) publish(nowMs int64, a domain.LadderAnchor, ready, online bool) {
	status := e.stream.Status(nowMs)
	status.Connected = e.connected
	status.Online = online

	f := Frame{
		Number:       e.frameNo,
		AtMs:         nowMs,
		Status:       status,
		Viewport:     e.view.View(),
		Disconnected: !online,
		Ledger:       e.ledger.View(),
		OtherBets:    e.crowd.Cells(),
		Notices:      append([]Notice(nil), e.notices...),
		SequenceGaps: e.seqGaps,
		Diagnostic:   e.diagnostic,
	}

	if ready {
		anchor := a
		f.Anchor = &anchor
		liveY := a.PriceToWorldY(e.stream.Current())
		f.Marker = e.view.Project(e.scroll, liveY)
		f.ShowLiveLine = online

		f.Cells = e.grid.Visible(a, e.view, e.scroll, e.cellState)

		pts := e.trail.Points()
		f.Trail = make([]viewport.Point, 0, len(pts)+1)
		for _, p := range pts {
			f.Trail = append(f.Trail, e.view.Project(p.ScrollPosition, p.FrozenWorldY))
		}
		if online {
			f.Trail = append(f.Trail, f.Marker)
		}

		hist := e.candles.History()
		f.Candles = make([]CandleView, 0, len(hist)+1)
		for _, c := range hist {
			f.Candles = append(f.Candles, e.candleView(c, false))
		}
		if cur, ok := e.candles.Current(); ok {
			f.Candles = append(f.Candles, e.candleView(cur, true))
		}
	}

	e.mu.Lock()
	e.frame = f
	e.mu.Unlock()
}

func (e *Engine) cellState(id domain.CellID) domain.CellState {
	if e.ledger.HasBet(id) {
		return domain.CellMine
	}
	if e.crowd.Has(id) {
		return domain.CellOther
	}
	return ""
}

func (e *Engine) candleView(c domain.Candle, live bool) CandleView {
	x := c.ScrollPositionAtClose
	return CandleView{
		Candle: c,
		X:      e.view.Project(x, 0).X,
		OpenY:  e.view.Project(x, c.OpenWorldY).Y,
		HighY:  e.view.Project(x, c.HighWorldY).Y,
		LowY:   e.view.Project(x, c.LowWorldY).Y,
		CloseY: e.view.Project(x, c.CloseWorldY).Y,
		Live:   live,
	}
}

// DumpState writes the engine state to a file (for post-mortem).
func (e *Engine) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	anchor, _ := e.ladder.Anchor()
	data := struct {
		FrameNo   uint64              `json:"frame_no"`
		LastSeq   uint64              `json:"last_seq"`
		Scroll    float64             `json:"scroll"`
		Anchor    domain.LadderAnchor `json:"anchor"`
		Status    domain.FeedStatus   `json:"status"`
		Viewport  viewport.View       `json:"viewport"`
		Trail     []domain.TrailPoint `json:"trail"`
		Candles   []domain.Candle     `json:"candles"`
		Ledger    domain.LedgerView   `json:"ledger"`
		Hits      int                 `json:"hits"`
		OtherBets []domain.CellID     `json:"other_bets"`
	}{
		FrameNo:   e.frameNo,
		LastSeq:   e.lastSeq,
		Scroll:    e.scroll,
		Anchor:    anchor,
		Status:    e.stream.Status(e.lastFrameMs),
		Viewport:  e.view.View(),
		Trail:     e.trail.Points(),
		Candles:   e.candles.History(),
		Ledger:    e.ledger.View(),
		Hits:      e.grid.HitCount(),
		OtherBets: e.crowd.Cells(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
