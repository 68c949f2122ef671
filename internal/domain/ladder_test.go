package domain

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestNewLadderAnchor(t *testing.T) {
	a, err := NewLadderAnchor(138.60, 800, 600, 20)
	if err != nil {
		t.Fatalf("NewLadderAnchor failed: %v", err)
	}

	if math.Abs(a.AnchorPrice-138.60) > eps {
		t.Errorf("Expected anchor 138.60, got %v", a.AnchorPrice)
	}
	size := 600.0 / 20
	if math.Abs(a.PixelsPerTick-size*math.Sqrt(3)) > eps {
		t.Errorf("Expected pixelsPerTick %v, got %v", size*math.Sqrt(3), a.PixelsPerTick)
	}
	if math.Abs(a.ColumnSpacing-size*1.5) > eps {
		t.Errorf("Expected columnSpacing %v, got %v", size*1.5, a.ColumnSpacing)
	}
	if a.AnchorWorldY != 0 || a.TickSize != TickSize {
		t.Errorf("Unexpected anchor fields: %+v", a)
	}
	if math.Abs(a.HexSize()-size) > eps {
		t.Errorf("Expected hex size %v, got %v", size, a.HexSize())
	}

	t.Run("rounds to tick", func(t *testing.T) {
		a, _ := NewLadderAnchor(138.6049, 100, 100, 10)
		if math.Abs(a.AnchorPrice-138.60) > eps {
			t.Errorf("Expected 138.60, got %v", a.AnchorPrice)
		}
	})

	t.Run("zero surface", func(t *testing.T) {
		if _, err := NewLadderAnchor(100, 0, 600, 20); err == nil {
			t.Error("Expected error for zero width")
		}
	})
}

func TestLadderAnchor_RoundTrip(t *testing.T) {
	a, _ := NewLadderAnchor(138.60, 1280, 720, 24)

	for _, p := range []float64{1, 42.42, 138.60, 139.17, 5000, 9999.99} {
		got := a.WorldYToPrice(a.PriceToWorldY(p))
		if math.Abs(got-p) > 1e-6 {
			t.Errorf("price round trip %v -> %v", p, got)
		}
	}
	for _, y := range []float64{-1e6, -123.4, 0, 77.7, 5e5} {
		got := a.PriceToWorldY(a.WorldYToPrice(y))
		if math.Abs(got-y) > 1e-6 {
			t.Errorf("worldY round trip %v -> %v", y, got)
		}
	}
}

func TestLadderAnchor_PriceForCell(t *testing.T) {
	a, _ := NewLadderAnchor(100, 600, 600, 20)

	tests := []struct {
		col, row int
		want     float64
	}{
		{0, 0, 100.00},
		{0, 3, 100.03},
		{2, -4, 99.96},
		{1, 0, 100.005},
		{-1, 0, 100.005},
		{-3, 2, 100.025},
	}
	for _, tt := range tests {
		got := a.PriceForCell(tt.col, tt.row)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PriceForCell(%d,%d) = %v, want %v", tt.col, tt.row, got, tt.want)
		}
	}

	// Far outside any visible range
	far := a.PriceForCell(1_000_000, 5_000)
	if math.Abs(far-150.00) > 1e-6 {
		t.Errorf("Expected far cell 150.00, got %v", far)
	}
}

func TestLadder_DeferredInit(t *testing.T) {
	l := NewLadder(20, 100)

	if got := l.PriceForCell(0, 5); got != 100 {
		t.Errorf("Expected fallback 100 before init, got %v", got)
	}

	if l.Offer(138.60) {
		t.Fatal("Offer should defer without a surface")
	}
	if !l.Pending() {
		t.Error("Expected pending price")
	}
	// A later price does not replace the queued first price
	l.Offer(140.00)

	if !l.Resize(800, 600) {
		t.Fatal("Resize should complete deferred init")
	}
	a, ok := l.Anchor()
	if !ok || math.Abs(a.AnchorPrice-138.60) > eps {
		t.Errorf("Expected anchor 138.60, got %+v", a)
	}

	// Exactly once
	if l.Offer(150) || l.Resize(1920, 1080) {
		t.Error("Anchor must not be rebuilt")
	}
	b, _ := l.Anchor()
	if a != b {
		t.Errorf("Anchor changed: %+v -> %+v", a, b)
	}
}

func TestLadder_DeterministicAcrossResize(t *testing.T) {
	l := NewLadder(20, 100)
	l.Resize(800, 600)
	l.Offer(138.60)

	before := l.PriceForCell(7, -3)
	for i := 0; i < 100; i++ {
		l.Resize(float64(300+i), float64(900-i))
	}
	if after := l.PriceForCell(7, -3); after != before {
		t.Errorf("PriceForCell drifted: %v -> %v", before, after)
	}
}
