package stream

import (
	"time"

	"hexbet_go/internal/domain"
)

// Config holds the smoothing and staleness parameters.
type Config struct {
	Alpha          float64
	SampleInterval time.Duration
	Staleness      time.Duration
	HistoryWindow  time.Duration
	RangeTrim      float64 // fraction trimmed from each end for range display
	Parser         ParserConfig
}

// DefaultConfig returns the stock stream parameters.
func DefaultConfig() Config {
	return Config{
		Alpha:          0.18,
		SampleInterval: 50 * time.Millisecond,
		Staleness:      20 * time.Second,
		HistoryWindow:  5 * time.Second,
		RangeTrim:      0.05,
		Parser:         DefaultParserConfig(),
	}
}

// Processor turns raw ticks into a smoothed current price and an
// online/offline signal.
type Processor struct {
	cfg Config

	target   float64
	current  float64
	hasPrice bool

	lastAcceptedMs int64
	history        *History
}

// NewProcessor creates a processor with an empty history window.
func NewProcessor(cfg Config) *Processor {
	capacity := 1
	if cfg.SampleInterval > 0 {
		capacity = int(cfg.HistoryWindow / cfg.SampleInterval)
	}
	return &Processor{
		cfg:     cfg,
		history: NewHistory(capacity),
	}
}

// Accept parses a raw bid/ask tick. On success the mid becomes the target
// price. first is true for the very first accepted tick of the session.
func (p *Processor) Accept(bid, ask string, nowMs int64) (mid float64, first bool, err error) {
	d, err := ParseMid(bid, ask, p.cfg.Parser)
	if err != nil {
		return 0, false, err
	}
	mid = d.InexactFloat64()
	return mid, p.accept(mid, nowMs), nil
}

func (p *Processor) accept(mid float64, nowMs int64) bool {
	p.target = mid
	p.lastAcceptedMs = nowMs
	if p.hasPrice {
		return false
	}

	p.hasPrice = true
	p.current = mid
	p.history.Seed(mid, nowMs, p.cfg.SampleInterval.Milliseconds())
	return true
}

// Sample runs one fixed-interval easing step. It returns false without
// touching state while offline.
func (p *Processor) Sample(nowMs int64) bool {
	if !p.IsOnline(nowMs) {
		return false
	}
	p.current += (p.target - p.current) * p.cfg.Alpha
	p.history.Push(domain.PriceSample{TimestampMs: nowMs, Price: p.current})
	return true
}

// IsOnline reports whether a tick was accepted within the staleness window.
func (p *Processor) IsOnline(nowMs int64) bool {
	if !p.hasPrice {
		return false
	}
	return nowMs-p.lastAcceptedMs <= p.cfg.Staleness.Milliseconds()
}

// Current returns the eased price.
func (p *Processor) Current() float64 {
	return p.current
}

// Target returns the last accepted mid price.
func (p *Processor) Target() float64 {
	return p.target
}

// HasPrice reports whether any tick was accepted yet.
func (p *Processor) HasPrice() bool {
	return p.hasPrice
}

// LastMessageAgeMs returns the age of the last accepted tick, or -1.
func (p *Processor) LastMessageAgeMs(nowMs int64) int64 {
	if !p.hasPrice {
		return -1
	}
	return nowMs - p.lastAcceptedMs
}

// History exposes the short-term window.
func (p *Processor) History() *History {
	return p.history
}

// Status returns the observable stream state.
func (p *Processor) Status(nowMs int64) domain.FeedStatus {
	st := domain.FeedStatus{
		Online:        p.IsOnline(nowMs),
		CurrentPrice:  p.current,
		TargetPrice:   p.target,
		HasPrice:      p.hasPrice,
		LastMessageMs: p.LastMessageAgeMs(nowMs),
	}
	if lo, hi, ok := p.history.Range(p.cfg.RangeTrim); ok {
		st.RangeLow, st.RangeHigh = lo, hi
	}
	return st
}
