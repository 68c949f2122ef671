package event

import (
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// EventType names an intent handled by the engine.
type EventType string

const (
	TypeTick      EventType = "TICK"
	TypeFeedState EventType = "FEED_STATE"
	TypeResize    EventType = "RESIZE"
	TypeTap       EventType = "TAP"
	TypePan       EventType = "PAN"
	TypeZoom      EventType = "ZOOM"
	TypeRecenter  EventType = "RECENTER"
	TypeBetAmount EventType = "BET_AMOUNT"
	TypeLeverage  EventType = "LEVERAGE"
)

// Event is an intent queued for the engine goroutine.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() EventType
}

// BaseEvent carries ordering metadata. Ts is unix milliseconds.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (b BaseEvent) GetSeq() uint64 { return b.Seq }
func (b BaseEvent) GetTs() int64   { return b.Ts }

// Sequence hands out event sequence numbers shared by all producers.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next sequence number, starting at 1.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// TickEvent is one raw top-of-book update from the feed.
type TickEvent struct {
	BaseEvent
	Market string `json:"market"`
	Bid    string `json:"bid"`
	Ask    string `json:"ask"`
}

func (e *TickEvent) GetType() EventType { return TypeTick }

// FeedStateEvent reports a feed connection change.
type FeedStateEvent struct {
	BaseEvent
	Connected bool   `json:"connected"`
	Reason    string `json:"reason,omitempty"`
}

func (e *FeedStateEvent) GetType() EventType { return TypeFeedState }

// ResizeEvent reports the rendering surface size in pixels.
type ResizeEvent struct {
	BaseEvent
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (e *ResizeEvent) GetType() EventType { return TypeResize }

// TapEvent is a tap/click at a surface pixel coordinate.
type TapEvent struct {
	BaseEvent
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (e *TapEvent) GetType() EventType { return TypeTap }

// PanEvent is either a drag (DX, DY pixels) or a directional step (DirX, DirY).
type PanEvent struct {
	BaseEvent
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
	DirX int     `json:"dir_x"`
	DirY int     `json:"dir_y"`
}

func (e *PanEvent) GetType() EventType { return TypePan }

// ZoomEvent steps zoom by Steps, or sets it to Level when Level > 0.
type ZoomEvent struct {
	BaseEvent
	Steps int     `json:"steps"`
	Level float64 `json:"level"`
}

func (e *ZoomEvent) GetType() EventType { return TypeZoom }

// RecenterEvent clears manual pan and zoom.
type RecenterEvent struct {
	BaseEvent
}

func (e *RecenterEvent) GetType() EventType { return TypeRecenter }

// BetAmountEvent sets the stake for future bets, or moves it by Step
// increments when Step is non-zero.
type BetAmountEvent struct {
	BaseEvent
	Amount decimal.Decimal `json:"amount"`
	Step   int             `json:"step"`
}

func (e *BetAmountEvent) GetType() EventType { return TypeBetAmount }

// LeverageEvent sets the leverage for future bets, or moves it by Step.
type LeverageEvent struct {
	BaseEvent
	Leverage int `json:"leverage"`
	Step     int `json:"step"`
}

func (e *LeverageEvent) GetType() EventType { return TypeLeverage }
