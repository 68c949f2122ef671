package aggregate

import (
	"time"

	"hexbet_go/internal/domain"
)

// CandleConfig controls bucket width and retained history.
type CandleConfig struct {
	Duration time.Duration
	Capacity int
}

// Candles buckets the eased price by wall-clock time.
type Candles struct {
	durationMs int64
	capacity   int
	current    *domain.Candle
	history    []domain.Candle
}

// NewCandles creates an empty aggregator.
func NewCandles(cfg CandleConfig) *Candles {
	d := cfg.Duration.Milliseconds()
	if d <= 0 {
		d = 1000
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1
	}
	return &Candles{
		durationMs: d,
		capacity:   capacity,
		history:    make([]domain.Candle, 0, capacity),
	}
}

// BucketOf returns floor(nowMs / duration).
func (c *Candles) BucketOf(nowMs int64) int64 {
	b := nowMs / c.durationMs
	if nowMs%c.durationMs != 0 && nowMs < 0 {
		b--
	}
	return b
}

// Update folds one eased price into the current candle. When the bucket
// advances, the finished candle is pushed to history and returned.
// Updates for a bucket older than the current one are ignored.
func (c *Candles) Update(price, worldY float64, nowMs int64, scrollPos float64) (closed *domain.Candle) {
	bucket := c.BucketOf(nowMs)

	if c.current != nil {
		switch {
		case bucket == c.current.Bucket:
			cur := c.current
			if price > cur.High {
				cur.High, cur.HighWorldY = price, worldY
			}
			if price < cur.Low {
				cur.Low, cur.LowWorldY = price, worldY
			}
			cur.Close, cur.CloseWorldY = price, worldY
			cur.ScrollPositionAtClose = scrollPos
			return nil
		case bucket < c.current.Bucket:
			return nil
		}

		finished := *c.current
		c.push(finished)
		closed = &finished
	}

	c.current = &domain.Candle{
		Bucket:                bucket,
		Open:                  price,
		High:                  price,
		Low:                   price,
		Close:                 price,
		OpenWorldY:            worldY,
		HighWorldY:            worldY,
		LowWorldY:             worldY,
		CloseWorldY:           worldY,
		ScrollPositionAtClose: scrollPos,
	}
	return closed
}

func (c *Candles) push(candle domain.Candle) {
	if len(c.history) == c.capacity {
		copy(c.history, c.history[1:])
		c.history = c.history[:len(c.history)-1]
	}
	c.history = append(c.history, candle)
}

// Current returns the in-progress candle.
func (c *Candles) Current() (domain.Candle, bool) {
	if c.current == nil {
		return domain.Candle{}, false
	}
	return *c.current, true
}

// History returns finished candles, oldest first.
func (c *Candles) History() []domain.Candle {
	out := make([]domain.Candle, len(c.history))
	copy(out, c.history)
	return out
}
