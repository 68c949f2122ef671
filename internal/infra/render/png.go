// Package render draws engine frames into raster images for the snapshot
// endpoint and for debugging.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"hexbet_go/internal/domain"
	"hexbet_go/internal/engine"

	"github.com/disintegration/imaging"
)

// ErrNoSurface is returned for frames rendered before a resize.
var ErrNoSurface = errors.New("frame has no surface size")

// maxSide bounds the output so a bad scale cannot allocate gigabytes.
const maxSide = 4096

// Palette holds the drawing colors.
type Palette struct {
	Background color.NRGBA
	Idle       color.NRGBA
	Passed     color.NRGBA
	Mine       color.NRGBA
	Other      color.NRGBA
	Hit        color.NRGBA
	Trail      color.NRGBA
	LiveLine   color.NRGBA
	CandleUp   color.NRGBA
	CandleDown color.NRGBA
}

// DefaultPalette is the dark theme.
func DefaultPalette() Palette {
	return Palette{
		Background: color.NRGBA{12, 14, 22, 255},
		Idle:       color.NRGBA{34, 40, 58, 255},
		Passed:     color.NRGBA{24, 27, 38, 255},
		Mine:       color.NRGBA{255, 92, 170, 255},
		Other:      color.NRGBA{240, 200, 40, 255},
		Hit:        color.NRGBA{40, 210, 110, 255},
		Trail:      color.NRGBA{90, 200, 255, 255},
		LiveLine:   color.NRGBA{255, 255, 255, 120},
		CandleUp:   color.NRGBA{40, 190, 120, 110},
		CandleDown: color.NRGBA{220, 70, 80, 110},
	}
}

// Renderer rasterizes frames.
type Renderer struct {
	palette Palette
}

// NewRenderer creates a renderer with the given palette.
func NewRenderer(p Palette) *Renderer {
	return &Renderer{palette: p}
}

// Render draws a frame at its native surface size.
func (r *Renderer) Render(f engine.Frame) (*image.NRGBA, error) {
	w, h := int(f.Viewport.Width), int(f.Viewport.Height)
	if w <= 0 || h <= 0 {
		return nil, ErrNoSurface
	}
	if w > maxSide || h > maxSide {
		return nil, fmt.Errorf("surface %dx%d exceeds %d", w, h, maxSide)
	}

	img := imaging.New(w, h, r.palette.Background)

	for _, c := range f.Candles {
		r.drawCandle(img, c, f.Anchor)
	}
	for _, c := range f.Cells {
		fillHex(img, c.ScreenX, c.ScreenY, c.Radius*0.92, r.cellColor(c.State))
	}
	for i := 1; i < len(f.Trail); i++ {
		a, b := f.Trail[i-1], f.Trail[i]
		drawLine(img, a.X, a.Y, b.X, b.Y, r.palette.Trail)
	}
	if f.ShowLiveLine {
		drawLine(img, 0, f.Marker.Y, float64(w), f.Marker.Y, r.palette.LiveLine)
		drawLine(img, f.Marker.X, 0, f.Marker.X, float64(h), r.palette.LiveLine)
	}

	if f.Disconnected {
		shade := imaging.New(w, h, color.NRGBA{0, 0, 0, 255})
		img = imaging.Overlay(img, shade, image.Pt(0, 0), 0.55)
	}
	return img, nil
}

// EncodePNG renders a frame, scales it and writes it as PNG.
func (r *Renderer) EncodePNG(out io.Writer, f engine.Frame, scale float64) error {
	img, err := r.Render(f)
	if err != nil {
		return err
	}
	scaled, err := Scale(img, scale)
	if err != nil {
		return err
	}
	return imaging.Encode(out, scaled, imaging.PNG)
}

// SavePNG renders a frame to a file; the format follows the extension.
func (r *Renderer) SavePNG(path string, f engine.Frame) error {
	img, err := r.Render(f)
	if err != nil {
		return err
	}
	return imaging.Save(img, path)
}

// Scale resizes with a Lanczos filter. Scale 1 returns the input.
func Scale(img *image.NRGBA, scale float64) (*image.NRGBA, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return nil, fmt.Errorf("invalid scale %v", scale)
	}
	if scale == 1 {
		return img, nil
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w < 1 || h < 1 || w > maxSide || h > maxSide {
		return nil, fmt.Errorf("scaled size %dx%d out of range", w, h)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

func (r *Renderer) cellColor(s domain.CellState) color.NRGBA {
	switch s {
	case domain.CellMine:
		return r.palette.Mine
	case domain.CellOther:
		return r.palette.Other
	case domain.CellHit:
		return r.palette.Hit
	case domain.CellPassed:
		return r.palette.Passed
	default:
		return r.palette.Idle
	}
}

func (r *Renderer) drawCandle(img *image.NRGBA, c engine.CandleView, a *domain.LadderAnchor) {
	if a == nil {
		return
	}
	half := a.ColumnSpacing / 4
	col := r.palette.CandleUp
	if c.Close < c.Open {
		col = r.palette.CandleDown
	}
	top, bottom := math.Min(c.OpenY, c.CloseY), math.Max(c.OpenY, c.CloseY)
	if bottom-top < 1 {
		bottom = top + 1
	}
	fillRect(img, c.X-half, top, c.X+half, bottom, col)
	drawLine(img, c.X, c.HighY, c.X, c.LowY, col)
}

// fillHex fills a flat-topped hexagon with circumradius r.
func fillHex(img *image.NRGBA, cx, cy, r float64, col color.NRGBA) {
	if r <= 0 {
		return
	}
	inner := r * math.Sqrt(3) / 2
	b := img.Bounds()
	x0, x1 := clamp(int(cx-r), b.Min.X, b.Max.X), clamp(int(cx+r)+1, b.Min.X, b.Max.X)
	y0, y1 := clamp(int(cy-inner), b.Min.Y, b.Max.Y), clamp(int(cy+inner)+1, b.Min.Y, b.Max.Y)

	for y := y0; y < y1; y++ {
		dy := math.Abs(float64(y) + 0.5 - cy)
		if dy > inner {
			continue
		}
		for x := x0; x < x1; x++ {
			dx := math.Abs(float64(x) + 0.5 - cx)
			if math.Sqrt(3)*dx+dy <= math.Sqrt(3)*r {
				blend(img, x, y, col)
			}
		}
	}
}

func fillRect(img *image.NRGBA, x0, y0, x1, y1 float64, col color.NRGBA) {
	b := img.Bounds()
	for y := clamp(int(y0), b.Min.Y, b.Max.Y); y < clamp(int(math.Ceil(y1)), b.Min.Y, b.Max.Y); y++ {
		for x := clamp(int(x0), b.Min.X, b.Max.X); x < clamp(int(math.Ceil(x1)), b.Min.X, b.Max.X); x++ {
			blend(img, x, y, col)
		}
	}
}

// drawLine plots a two-pixel line by sampling along its length.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 float64, col color.NRGBA) {
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(x0 + (x1-x0)*t)
		y := int(y0 + (y1-y0)*t)
		blend(img, x, y, col)
		blend(img, x, y+1, col)
	}
}

func blend(img *image.NRGBA, x, y int, c color.NRGBA) {
	if !(image.Point{x, y}.In(img.Bounds())) {
		return
	}
	if c.A == 255 {
		img.SetNRGBA(x, y, c)
		return
	}
	dst := img.NRGBAAt(x, y)
	a := uint32(c.A)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a)) / 255)
	}
	img.SetNRGBA(x, y, color.NRGBA{mix(c.R, dst.R), mix(c.G, dst.G), mix(c.B, dst.B), 255})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
