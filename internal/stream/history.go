package stream

import (
	"sort"

	"hexbet_go/internal/domain"
)

// History is a fixed-capacity ring buffer of eased samples covering the
// short-term display window. It feeds range display only, never ladder math.
type History struct {
	samples []domain.PriceSample
	head    int // next write position
	count   int
}

// NewHistory allocates a window holding capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{samples: make([]domain.PriceSample, capacity)}
}

// Seed fills the whole window with one price so range math never starts
// degenerate. Timestamps step back from nowMs by intervalMs.
func (h *History) Seed(price float64, nowMs, intervalMs int64) {
	n := len(h.samples)
	h.head, h.count = 0, 0
	for i := n - 1; i >= 0; i-- {
		h.Push(domain.PriceSample{TimestampMs: nowMs - int64(i)*intervalMs, Price: price})
	}
}

// Push appends a sample, overwriting the oldest when full.
func (h *History) Push(s domain.PriceSample) {
	h.samples[h.head] = s
	h.head = (h.head + 1) % len(h.samples)
	if h.count < len(h.samples) {
		h.count++
	}
}

// Len returns the number of samples held.
func (h *History) Len() int {
	return h.count
}

// Samples returns the samples oldest first.
func (h *History) Samples() []domain.PriceSample {
	out := make([]domain.PriceSample, 0, h.count)
	start := (h.head - h.count + len(h.samples)) % len(h.samples)
	for i := 0; i < h.count; i++ {
		out = append(out, h.samples[(start+i)%len(h.samples)])
	}
	return out
}

// Latest returns the newest sample.
func (h *History) Latest() (domain.PriceSample, bool) {
	if h.count == 0 {
		return domain.PriceSample{}, false
	}
	return h.samples[(h.head-1+len(h.samples))%len(h.samples)], true
}

// Range returns low/high after dropping trimFraction of samples from each
// end of the sorted window.
func (h *History) Range(trimFraction float64) (low, high float64, ok bool) {
	if h.count == 0 {
		return 0, 0, false
	}
	prices := make([]float64, 0, h.count)
	for _, s := range h.Samples() {
		prices = append(prices, s.Price)
	}
	sort.Float64s(prices)

	trim := 0
	if trimFraction > 0 && trimFraction < 0.5 {
		trim = int(float64(len(prices)) * trimFraction)
	}
	return prices[trim], prices[len(prices)-1-trim], true
}
