package viewport

import (
	"math"
	"testing"
)

func newTestViewport() *Viewport {
	v := New(DefaultConfig())
	v.Resize(800, 600)
	return v
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestViewport_ProjectRoundTrip(t *testing.T) {
	v := newTestViewport()
	v.SetScroll(1234)
	v.CenterOn(-50)
	v.Pan(37, -12)
	v.SetZoom(1.3)

	for _, w := range []Point{{0, 0}, {1234, -50}, {-999, 4321}, {5000.5, 0.25}} {
		s := v.Project(w.X, w.Y)
		back := v.Unproject(s.X, s.Y)
		if !near(back.X, w.X) || !near(back.Y, w.Y) {
			t.Errorf("Round trip %+v -> %+v -> %+v", w, s, back)
		}
	}
}

func TestViewport_MarkerPlacement(t *testing.T) {
	v := newTestViewport()
	v.SetScroll(500)

	m := v.Project(500, 0)
	if !near(m.X, 800*0.35) || !near(m.Y, 300) {
		t.Errorf("Expected live marker at (280, 300), got %+v", m)
	}

	// Higher price is higher on screen
	if up := v.Project(500, 10); up.Y >= m.Y {
		t.Errorf("Expected higher world Y to map above, got %v >= %v", up.Y, m.Y)
	}
}

func TestViewport_FollowExactOvershoot(t *testing.T) {
	v := newTestViewport()
	// half = 300, margin = 90, band = [-210, 210]

	if shift := v.Follow(200); shift != 0 {
		t.Errorf("Inside band should not shift, got %v", shift)
	}
	if shift := v.Follow(250); !near(shift, 40) {
		t.Errorf("Expected shift 40, got %v", shift)
	}
	// Live price now sits exactly on the upper band edge
	p := v.Project(0, 250)
	if !near(p.Y, 300-210) {
		t.Errorf("Expected live price at band edge y=90, got %v", p.Y)
	}

	if shift := v.Follow(-500); !near(shift, -500-(40-210)) {
		t.Errorf("Expected downward shift %v, got %v", -500-(40-210), shift)
	}
}

func TestViewport_PanZoomDoNotTouchWorld(t *testing.T) {
	v := newTestViewport()
	v.SetScroll(100)
	before := v.View()

	v.PanStep(1, 0)
	v.ZoomIn()
	v.ZoomIn()
	v.Pan(-10, 25)

	// Auto offset and scroll are untouched by camera input
	after := v.View()
	if after.AutoOffsetY != before.AutoOffsetY || after.Scroll != before.Scroll {
		t.Errorf("Camera input changed world state: %+v -> %+v", before, after)
	}

	v.Recenter()
	if v.Zoom() != 1 || v.View().PanX != 0 || v.View().PanY != 0 {
		t.Errorf("Recenter should clear pan and zoom, got %+v", v.View())
	}
}

func TestViewport_ZoomClamp(t *testing.T) {
	v := newTestViewport()

	tests := []struct {
		in, want float64
	}{
		{0.1, 0.75},
		{0.75, 0.75},
		{1.2, 1.2},
		{1.5, 1.5},
		{3, 1.5},
	}
	for _, tt := range tests {
		if got := v.SetZoom(tt.in); got != tt.want {
			t.Errorf("SetZoom(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	v.SetZoom(1)
	for i := 0; i < 20; i++ {
		v.ZoomOut()
	}
	if v.Zoom() != 0.75 {
		t.Errorf("Expected zoom floor 0.75, got %v", v.Zoom())
	}
}

func TestViewport_ZoomBy(t *testing.T) {
	v := newTestViewport()

	if got := v.ZoomBy(2); got != 1.25 {
		t.Errorf("Expected zoom 1.25 after two steps, got %v", got)
	}
	if got := v.ZoomBy(1 << 40); got != 1.5 {
		t.Errorf("Expected zoom clamped to 1.5, got %v", got)
	}
	if got := v.ZoomBy(-(1 << 40)); got != 0.75 {
		t.Errorf("Expected zoom clamped to 0.75, got %v", got)
	}
}

func TestViewport_VisibleWorld(t *testing.T) {
	v := newTestViewport()
	v.SetScroll(0)
	r := v.VisibleWorld()

	if !near(r.MinX, -280) || !near(r.MaxX, 520) || !near(r.MinY, -300) || !near(r.MaxY, 300) {
		t.Errorf("Unexpected visible rect %+v", r)
	}

	v.SetZoom(1.5)
	z := v.VisibleWorld()
	if z.MaxX-z.MinX >= r.MaxX-r.MinX {
		t.Error("Zooming in should shrink the visible world")
	}
}
