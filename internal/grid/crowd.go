package grid

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"hexbet_go/internal/domain"
	"hexbet_go/internal/viewport"
)

// CrowdConfig controls simulated other-user bets.
type CrowdConfig struct {
	Enabled     bool
	MinInterval time.Duration
	MaxInterval time.Duration
	MaxActive   int
	MinAhead    int // columns ahead of the marker a simulated bet must be
}

// DefaultCrowdConfig returns the stock simulation cadence.
func DefaultCrowdConfig() CrowdConfig {
	return CrowdConfig{
		Enabled:     true,
		MinInterval: 700 * time.Millisecond,
		MaxInterval: 2500 * time.Millisecond,
		MaxActive:   12,
		MinAhead:    2,
	}
}

// Crowd simulates other users occupying upcoming cells. Purely cosmetic:
// it never touches the ledger.
type Crowd struct {
	cfg      CrowdConfig
	rng      *rand.Rand
	nextAtMs int64
	bets     map[domain.CellID]struct{}
}

// NewCrowd creates a simulator with a deterministic seed.
func NewCrowd(cfg CrowdConfig, seed uint64) *Crowd {
	return &Crowd{
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		nextAtMs: -1,
		bets:     make(map[domain.CellID]struct{}),
	}
}

// Tick places at most one simulated bet when its timer is due. taken
// reports cells the user already holds. Returns the placed cell, if any.
func (c *Crowd) Tick(nowMs int64, a domain.LadderAnchor, visible viewport.Rect, head float64, taken func(domain.CellID) bool) (domain.CellID, bool) {
	if !c.cfg.Enabled || a.ColumnSpacing <= 0 {
		return domain.CellID{}, false
	}
	if c.nextAtMs < 0 {
		c.schedule(nowMs)
		return domain.CellID{}, false
	}
	if nowMs < c.nextAtMs {
		return domain.CellID{}, false
	}
	c.schedule(nowMs)

	if c.cfg.MaxActive > 0 && len(c.bets) >= c.cfg.MaxActive {
		return domain.CellID{}, false
	}

	colMin := int(math.Floor(head/a.ColumnSpacing)) + c.cfg.MinAhead
	colMax := int(math.Floor(visible.MaxX / a.ColumnSpacing))
	rowMin := int(math.Ceil(visible.MinY / a.PixelsPerTick))
	rowMax := int(math.Floor(visible.MaxY / a.PixelsPerTick))
	if colMax < colMin || rowMax < rowMin {
		return domain.CellID{}, false
	}

	// A few attempts to find a free cell; giving up is fine.
	for i := 0; i < 8; i++ {
		id := domain.CellID{
			Col: colMin + c.rng.IntN(colMax-colMin+1),
			Row: rowMin + c.rng.IntN(rowMax-rowMin+1),
		}
		if _, ok := c.bets[id]; ok {
			continue
		}
		if taken != nil && taken(id) {
			continue
		}
		c.bets[id] = struct{}{}
		return id, true
	}
	return domain.CellID{}, false
}

func (c *Crowd) schedule(nowMs int64) {
	lo := c.cfg.MinInterval.Milliseconds()
	hi := c.cfg.MaxInterval.Milliseconds()
	d := lo
	if hi > lo {
		d += c.rng.Int64N(hi - lo + 1)
	}
	c.nextAtMs = nowMs + d
}

// Expire drops simulated bets whose cells have passed the marker.
func (c *Crowd) Expire(a domain.LadderAnchor, head float64) int {
	n := 0
	for id := range c.bets {
		if Passed(a, id, head) {
			delete(c.bets, id)
			n++
		}
	}
	return n
}

// Has reports whether a simulated bet occupies the cell.
func (c *Crowd) Has(id domain.CellID) bool {
	_, ok := c.bets[id]
	return ok
}

// Cells returns the occupied cells ordered by column then row.
func (c *Crowd) Cells() []domain.CellID {
	out := make([]domain.CellID, 0, len(c.bets))
	for id := range c.bets {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Col != out[j].Col {
			return out[i].Col < out[j].Col
		}
		return out[i].Row < out[j].Row
	})
	return out
}
