// Package aggregate turns the eased price stream into the two shapes the
// chart draws from: a distance-sampled trail and time-bucketed candles.
package aggregate

import (
	"sort"

	"hexbet_go/internal/domain"
)

// TrailConfig controls sampling density and retention.
type TrailConfig struct {
	Spacing float64 // world units between canonical points
	Buffer  float64 // extra world units kept behind the visible width
}

// Trail is a position-indexed polyline of the smoothed price.
type Trail struct {
	cfg    TrailConfig
	points []domain.TrailPoint
	acc    float64
}

// NewTrail creates an empty trail.
func NewTrail(cfg TrailConfig) *Trail {
	if cfg.Spacing <= 0 {
		cfg.Spacing = 1
	}
	return &Trail{cfg: cfg, points: make([]domain.TrailPoint, 0, 512)}
}

// Advance accumulates one frame of scroll delta and appends a point at each
// canonical position reached. The first point is placed at headPos.
// Callers only advance while the feed is online.
func (t *Trail) Advance(delta, headPos, price, worldY float64) int {
	if len(t.points) == 0 {
		t.points = append(t.points, domain.TrailPoint{
			ScrollPosition: headPos,
			Price:          price,
			FrozenWorldY:   worldY,
		})
		t.acc = 0
		return 1
	}

	added := 0
	t.acc += delta
	for t.acc >= t.cfg.Spacing {
		t.acc -= t.cfg.Spacing
		last := t.points[len(t.points)-1]
		t.points = append(t.points, domain.TrailPoint{
			ScrollPosition: last.ScrollPosition + t.cfg.Spacing,
			Price:          price,
			FrozenWorldY:   worldY,
		})
		added++
	}
	return added
}

// Trim drops points further behind headPos than visibleWidth plus the buffer.
// One point before the cutoff is kept so the left edge still interpolates.
func (t *Trail) Trim(headPos, visibleWidth float64) int {
	cutoff := headPos - visibleWidth - t.cfg.Buffer
	idx := sort.Search(len(t.points), func(i int) bool {
		return t.points[i].ScrollPosition >= cutoff
	})
	if idx <= 1 {
		return 0
	}
	drop := idx - 1
	t.points = append(t.points[:0], t.points[drop:]...)
	return drop
}

// PriceAt interpolates the trail price at scroll position x. At or past the
// newest point it interpolates toward livePrice at headPos.
func (t *Trail) PriceAt(x, headPos, livePrice float64) float64 {
	return t.valueAt(x, headPos, livePrice, func(p domain.TrailPoint) float64 { return p.Price })
}

// WorldYAt is PriceAt over the frozen world Y values.
func (t *Trail) WorldYAt(x, headPos, liveWorldY float64) float64 {
	return t.valueAt(x, headPos, liveWorldY, func(p domain.TrailPoint) float64 { return p.FrozenWorldY })
}

func (t *Trail) valueAt(x, headPos, live float64, pick func(domain.TrailPoint) float64) float64 {
	n := len(t.points)
	if n == 0 {
		return live
	}

	last := t.points[n-1]
	if x >= last.ScrollPosition {
		span := headPos - last.ScrollPosition
		if span <= 0 {
			return live
		}
		f := (x - last.ScrollPosition) / span
		if f > 1 {
			f = 1
		}
		return pick(last) + (live-pick(last))*f
	}

	first := t.points[0]
	if x <= first.ScrollPosition {
		return pick(first)
	}

	// First point strictly after x; never 0 here.
	i := sort.Search(n, func(i int) bool { return t.points[i].ScrollPosition > x })
	a, b := t.points[i-1], t.points[i]
	for b.ScrollPosition <= a.ScrollPosition && i < n-1 {
		i++
		b = t.points[i]
	}
	dx := b.ScrollPosition - a.ScrollPosition
	if dx <= 0 {
		return pick(b)
	}
	return pick(a) + (pick(b)-pick(a))*(x-a.ScrollPosition)/dx
}

// Points returns a copy of the trail, oldest first.
func (t *Trail) Points() []domain.TrailPoint {
	out := make([]domain.TrailPoint, len(t.points))
	copy(out, t.points)
	return out
}

// Len returns the number of points held.
func (t *Trail) Len() int {
	return len(t.points)
}
