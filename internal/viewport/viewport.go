// Package viewport owns the camera: auto-follow, manual pan and zoom.
// It never changes a world coordinate, only the world→screen projection.
package viewport

import "math"

// Config holds camera parameters.
type Config struct {
	MarginFraction float64 // fraction of half the visible world height kept as margin
	MinZoom        float64
	MaxZoom        float64
	ZoomStep       float64
	MarkerFraction float64 // horizontal screen position of the live marker at zoom 1
	PanStep        float64 // screen pixels per directional pan command
}

// DefaultConfig returns the stock camera parameters.
func DefaultConfig() Config {
	return Config{
		MarginFraction: 0.3,
		MinZoom:        0.75,
		MaxZoom:        1.5,
		ZoomStep:       0.125,
		MarkerFraction: 0.35,
		PanStep:        40,
	}
}

// Point is a 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned world rectangle.
type Rect struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// View is a copy of the camera state for snapshots.
type View struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Scroll      float64 `json:"scroll"`
	AutoOffsetY float64 `json:"auto_offset_y"`
	PanX        float64 `json:"pan_x"`
	PanY        float64 `json:"pan_y"`
	Zoom        float64 `json:"zoom"`
}

// Viewport projects world coordinates to screen coordinates.
type Viewport struct {
	cfg Config

	width, height float64
	scroll        float64 // world X under the live marker
	autoOffsetY   float64 // world Y at the screen center before manual pan
	panX, panY    float64 // world units
	zoom          float64
}

// New creates a viewport at zoom 1 with no pan.
func New(cfg Config) *Viewport {
	return &Viewport{cfg: cfg, zoom: 1}
}

// Resize sets the surface size in pixels.
func (v *Viewport) Resize(width, height float64) {
	v.width, v.height = width, height
}

// SetScroll moves the live marker to world X.
func (v *Viewport) SetScroll(x float64) {
	v.scroll = x
}

// Scroll returns the world X under the live marker.
func (v *Viewport) Scroll() float64 {
	return v.scroll
}

func (v *Viewport) center() Point {
	return Point{
		X: v.scroll + (v.width/2 - v.width*v.cfg.MarkerFraction) + v.panX,
		Y: v.autoOffsetY + v.panY,
	}
}

// Project maps a world point to screen pixels. Screen Y grows downward.
func (v *Viewport) Project(wx, wy float64) Point {
	c := v.center()
	return Point{
		X: v.width/2 + (wx-c.X)*v.zoom,
		Y: v.height/2 - (wy-c.Y)*v.zoom,
	}
}

// Unproject maps screen pixels back to world coordinates.
func (v *Viewport) Unproject(sx, sy float64) Point {
	c := v.center()
	return Point{
		X: c.X + (sx-v.width/2)/v.zoom,
		Y: c.Y - (sy-v.height/2)/v.zoom,
	}
}

// VisibleWorld returns the world rectangle covered by the surface.
func (v *Viewport) VisibleWorld() Rect {
	tl := v.Unproject(0, 0)
	br := v.Unproject(v.width, v.height)
	return Rect{MinX: tl.X, MaxX: br.X, MinY: br.Y, MaxY: tl.Y}
}

// Follow shifts the auto offset by exactly the overshoot when liveY leaves
// the central band. Returns the applied shift.
func (v *Viewport) Follow(liveY float64) float64 {
	if v.height <= 0 {
		return 0
	}
	half := v.height / 2 / v.zoom
	margin := v.cfg.MarginFraction * half

	upper := v.autoOffsetY + half - margin
	lower := v.autoOffsetY - half + margin
	var shift float64
	switch {
	case liveY > upper:
		shift = liveY - upper
	case liveY < lower:
		shift = liveY - lower
	}
	v.autoOffsetY += shift
	return shift
}

// CenterOn puts worldY at the screen center, used once the ladder anchors.
func (v *Viewport) CenterOn(worldY float64) {
	v.autoOffsetY = worldY
}

// Pan drags the content by screen pixels.
func (v *Viewport) Pan(dx, dy float64) {
	v.panX -= dx / v.zoom
	v.panY += dy / v.zoom
}

// PanStep pans by the configured step in a direction (-1, 0, 1 per axis).
func (v *Viewport) PanStep(dirX, dirY int) {
	v.Pan(float64(dirX)*v.cfg.PanStep, float64(dirY)*v.cfg.PanStep)
}

// SetZoom clamps and applies a zoom factor.
func (v *Viewport) SetZoom(z float64) float64 {
	if math.IsNaN(z) {
		return v.zoom
	}
	v.zoom = math.Max(v.cfg.MinZoom, math.Min(v.cfg.MaxZoom, z))
	return v.zoom
}

// ZoomIn steps zoom up.
func (v *Viewport) ZoomIn() float64 {
	return v.SetZoom(v.zoom + v.cfg.ZoomStep)
}

// ZoomOut steps zoom down.
func (v *Viewport) ZoomOut() float64 {
	return v.SetZoom(v.zoom - v.cfg.ZoomStep)
}

// ZoomBy moves zoom by steps increments in one clamped update.
func (v *Viewport) ZoomBy(steps int) float64 {
	return v.SetZoom(v.zoom + float64(steps)*v.cfg.ZoomStep)
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// Recenter clears manual pan and resets zoom.
func (v *Viewport) Recenter() {
	v.panX, v.panY = 0, 0
	v.zoom = 1
}

// View returns a copy of the camera state.
func (v *Viewport) View() View {
	return View{
		Width:       v.width,
		Height:      v.height,
		Scroll:      v.scroll,
		AutoOffsetY: v.autoOffsetY,
		PanX:        v.panX,
		PanY:        v.panY,
		Zoom:        v.zoom,
	}
}

// Size returns the surface size.
func (v *Viewport) Size() (float64, float64) {
	return v.width, v.height
}
