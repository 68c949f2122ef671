// Package grid projects the hex field for a frame and decides which
// selected cells the live line has crossed.
//
// Cells are never stored. Only identity-keyed side state lives here (the
// session hit set); everything else is recomputed from the ladder anchor
// and the camera each frame.
package grid

import (
	"math"

	"hexbet_go/internal/domain"
	"hexbet_go/internal/viewport"
)

// Projector is the camera surface the grid needs.
type Projector interface {
	Project(wx, wy float64) viewport.Point
	Unproject(sx, sy float64) viewport.Point
	VisibleWorld() viewport.Rect
	Zoom() float64
	Size() (float64, float64)
}

// TrailSampler samples the live line in world space.
type TrailSampler interface {
	WorldYAt(x, headPos, liveWorldY float64) float64
}

// Config holds grid parameters.
type Config struct {
	MarginCells       int     // extra rows/columns enumerated past each edge
	HitRadiusFraction float64 // fraction of the cell radius counted as a hit
	LossGraceColumns  float64 // columns behind the marker before a missed bet is lost
}

// DefaultConfig returns the stock grid parameters.
func DefaultConfig() Config {
	return Config{
		MarginCells:       2,
		HitRadiusFraction: 0.6,
		LossGraceColumns:  1,
	}
}

// Engine enumerates cells and tracks the per-session hit set.
type Engine struct {
	cfg  Config
	hits map[domain.CellID]struct{}
}

// NewEngine creates a grid engine with an empty hit set.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, hits: make(map[domain.CellID]struct{})}
}

// Passed reports whether a cell's column is at or behind the live marker.
// Projection is monotonic in X, so this matches the on-screen comparison
// under any pan or zoom.
func Passed(a domain.LadderAnchor, id domain.CellID, head float64) bool {
	return a.CellWorldX(id.Col) <= head
}

// Visible returns the on-surface cells for this frame. stateOf may be nil.
func (g *Engine) Visible(a domain.LadderAnchor, p Projector, head float64, stateOf func(domain.CellID) domain.CellState) []domain.Cell {
	w, h := p.Size()
	if w <= 0 || h <= 0 || a.ColumnSpacing <= 0 {
		return nil
	}
	r := p.VisibleWorld()
	m := g.cfg.MarginCells

	c0 := int(math.Floor(r.MinX/a.ColumnSpacing)) - m
	c1 := int(math.Ceil(r.MaxX/a.ColumnSpacing)) + m
	r0 := int(math.Floor(r.MinY/a.PixelsPerTick)) - m - 1
	r1 := int(math.Ceil(r.MaxY/a.PixelsPerTick)) + m

	radius := a.HexSize() * p.Zoom()
	cells := make([]domain.Cell, 0, (c1-c0+1)*(r1-r0+1))
	for col := c0; col <= c1; col++ {
		wx := a.CellWorldX(col)
		for row := r0; row <= r1; row++ {
			wy := a.CellWorldY(col, row)
			s := p.Project(wx, wy)
			if s.X < -radius || s.X > w+radius || s.Y < -radius || s.Y > h+radius {
				continue
			}

			id := domain.CellID{Col: col, Row: row}
			cell := domain.Cell{
				ID:      id,
				WorldX:  wx,
				WorldY:  wy,
				ScreenX: s.X,
				ScreenY: s.Y,
				Radius:  radius,
				Price:   a.PriceForCell(col, row),
				Passed:  wx <= head,
				State:   domain.CellIdle,
			}
			if g.IsHit(id) {
				cell.State = domain.CellHit
			} else if stateOf != nil {
				if st := stateOf(id); st != "" {
					cell.State = st
				}
			}
			if cell.State == domain.CellIdle && cell.Passed {
				cell.State = domain.CellPassed
			}
			cells = append(cells, cell)
		}
	}
	return cells
}

// CellAt finds the hex under a screen point.
func (g *Engine) CellAt(a domain.LadderAnchor, p Projector, sx, sy float64) (domain.CellID, bool) {
	if a.ColumnSpacing <= 0 {
		return domain.CellID{}, false
	}
	wpt := p.Unproject(sx, sy)
	baseCol := int(math.Round(wpt.X / a.ColumnSpacing))

	best := domain.CellID{}
	bestDist := math.Inf(1)
	for col := baseCol - 1; col <= baseCol+1; col++ {
		offset := 0.0
		if col%2 != 0 {
			offset = 0.5
		}
		baseRow := int(math.Round(wpt.Y/a.PixelsPerTick - offset))
		for row := baseRow - 1; row <= baseRow+1; row++ {
			d := math.Hypot(wpt.X-a.CellWorldX(col), wpt.Y-a.CellWorldY(col, row))
			if d < bestDist {
				best, bestDist = domain.CellID{Col: col, Row: row}, d
			}
		}
	}
	if bestDist > a.HexSize() {
		return domain.CellID{}, false
	}
	return best, true
}

// HitResult splits selected cells into newly hit and lost.
type HitResult struct {
	Hits   []domain.CellID
	Misses []domain.CellID
}

// HitTest checks selected cells behind the marker against the trail. Each
// cell is reported as a hit at most once per session. A passed cell that is
// more than LossGraceColumns behind the marker without a hit is a miss.
func (g *Engine) HitTest(a domain.LadderAnchor, p Projector, trail TrailSampler, head, liveWorldY float64, selected []domain.CellID) HitResult {
	var res HitResult
	if a.ColumnSpacing <= 0 {
		return res
	}
	limit := g.cfg.HitRadiusFraction * a.HexSize() * p.Zoom()
	grace := g.cfg.LossGraceColumns * a.ColumnSpacing

	for _, id := range selected {
		if g.IsHit(id) || !Passed(a, id, head) {
			continue
		}

		wx := a.CellWorldX(id.Col)
		cellScreen := p.Project(wx, a.CellWorldY(id.Col, id.Row))
		lineScreen := p.Project(wx, trail.WorldYAt(wx, head, liveWorldY))

		if math.Hypot(cellScreen.X-lineScreen.X, cellScreen.Y-lineScreen.Y) <= limit {
			g.hits[id] = struct{}{}
			res.Hits = append(res.Hits, id)
			continue
		}
		if head-wx > grace {
			res.Misses = append(res.Misses, id)
		}
	}
	return res
}

// IsHit reports whether the cell already registered a hit this session.
func (g *Engine) IsHit(id domain.CellID) bool {
	_, ok := g.hits[id]
	return ok
}

// HitCount returns the size of the session hit set.
func (g *Engine) HitCount() int {
	return len(g.hits)
}
