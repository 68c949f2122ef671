package domain

import (
	"fmt"
	"math"
)

// TickSize is the fixed price increment represented by one ladder row.
const TickSize = 0.01

// LadderAnchor is the frozen mapping between price and world Y.
// Values are only handed out by copy, so an anchor never changes once built.
type LadderAnchor struct {
	TickSize      float64 `json:"tick_size"`
	AnchorPrice   float64 `json:"anchor_price"`
	AnchorWorldY  float64 `json:"anchor_world_y"`
	PixelsPerTick float64 `json:"pixels_per_tick"`
	ColumnSpacing float64 `json:"column_spacing"`
}

// NewLadderAnchor builds an anchor from the first valid price and the surface size.
func NewLadderAnchor(p0, width, height, sizeRatio float64) (LadderAnchor, error) {
	if width <= 0 || height <= 0 {
		return LadderAnchor{}, fmt.Errorf("surface %vx%v: %w", width, height, ErrLadderUninitialized)
	}
	if sizeRatio <= 0 {
		return LadderAnchor{}, fmt.Errorf("size ratio must be positive, got %v", sizeRatio)
	}
	if p0 <= 0 || math.IsNaN(p0) || math.IsInf(p0, 0) {
		return LadderAnchor{}, fmt.Errorf("anchor price %v: %w", p0, ErrPriceOutOfBand)
	}

	size := math.Min(width, height) / sizeRatio
	return LadderAnchor{
		TickSize:      TickSize,
		AnchorPrice:   math.Round(p0/TickSize) * TickSize,
		AnchorWorldY:  0,
		PixelsPerTick: size * math.Sqrt(3),
		ColumnSpacing: size * 1.5,
	}, nil
}

// WorldYToPrice converts a world Y coordinate into a price.
func (a LadderAnchor) WorldYToPrice(y float64) float64 {
	return a.AnchorPrice + (y-a.AnchorWorldY)/a.PixelsPerTick*a.TickSize
}

// PriceToWorldY converts a price into a world Y coordinate.
func (a LadderAnchor) PriceToWorldY(p float64) float64 {
	return a.AnchorWorldY + (p-a.AnchorPrice)/a.TickSize*a.PixelsPerTick
}

// CellWorldY returns the world Y of a cell center. Odd columns sit half a row up.
func (a LadderAnchor) CellWorldY(col, row int) float64 {
	r := float64(row)
	if col%2 != 0 {
		r += 0.5
	}
	return a.PixelsPerTick * r
}

// CellWorldX returns the world X (scroll position) of a column center.
func (a LadderAnchor) CellWorldX(col int) float64 {
	return float64(col) * a.ColumnSpacing
}

// PriceForCell is the settlement price of a cell. Pure in (col, row).
func (a LadderAnchor) PriceForCell(col, row int) float64 {
	return a.WorldYToPrice(a.CellWorldY(col, row))
}

// HexSize is the hex circumradius in world units.
func (a LadderAnchor) HexSize() float64 {
	return a.ColumnSpacing / 1.5
}

// Ladder owns the one-time anchor initialization, including the deferred case
// where a price arrives before the surface has a size.
type Ladder struct {
	anchor    *LadderAnchor
	pending   *float64
	width     float64
	height    float64
	sizeRatio float64
	fallback  float64
}

// NewLadder creates an uninitialized ladder.
func NewLadder(sizeRatio, fallbackPrice float64) *Ladder {
	return &Ladder{sizeRatio: sizeRatio, fallback: fallbackPrice}
}

// Offer presents a valid price. The first one initializes the anchor, or is
// queued until Resize reports a usable surface. Returns true if the anchor was
// created by this call.
func (l *Ladder) Offer(price float64) bool {
	if l.anchor != nil {
		return false
	}
	if l.pending == nil {
		p := price
		l.pending = &p
	}
	return l.tryInit()
}

// Resize records the surface size and completes a deferred initialization.
func (l *Ladder) Resize(width, height float64) bool {
	l.width, l.height = width, height
	if l.anchor != nil {
		return false
	}
	return l.tryInit()
}

func (l *Ladder) tryInit() bool {
	if l.pending == nil || l.width <= 0 || l.height <= 0 {
		return false
	}
	a, err := NewLadderAnchor(*l.pending, l.width, l.height, l.sizeRatio)
	if err != nil {
		return false
	}
	l.anchor = &a
	l.pending = nil
	return true
}

// Ready reports whether the anchor exists.
func (l *Ladder) Ready() bool {
	return l.anchor != nil
}

// Pending reports whether a price is queued waiting for surface dimensions.
func (l *Ladder) Pending() bool {
	return l.pending != nil
}

// Anchor returns a copy of the anchor.
func (l *Ladder) Anchor() (LadderAnchor, bool) {
	if l.anchor == nil {
		return LadderAnchor{}, false
	}
	return *l.anchor, true
}

// PriceForCell returns the fallback price until the ladder is anchored.
func (l *Ladder) PriceForCell(col, row int) float64 {
	if l.anchor == nil {
		return l.fallback
	}
	return l.anchor.PriceForCell(col, row)
}

// WorldYToPrice returns the fallback price until the ladder is anchored.
func (l *Ladder) WorldYToPrice(y float64) float64 {
	if l.anchor == nil {
		return l.fallback
	}
	return l.anchor.WorldYToPrice(y)
}

// PriceToWorldY returns 0 until the ladder is anchored.
func (l *Ladder) PriceToWorldY(p float64) float64 {
	if l.anchor == nil {
		return 0
	}
	return l.anchor.PriceToWorldY(p)
}
