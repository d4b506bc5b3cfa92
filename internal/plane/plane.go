// Package plane holds the fixed logical coordinate space the map is drawn in
// and the transform between pointer (screen) coordinates and plane units.
package plane

import (
	"fmt"
	"strconv"
)

const (
	Width  = 1000.0
	Height = 600.0
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a rectangle in plane units. A viewport is always a Rect.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScreenRect is the on-screen bounding box of the canvas, in pixels.
type ScreenRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

func Full() Rect {
	return Rect{X: 0, Y: 0, Width: Width, Height: Height}
}

// ViewBox renders the rect the way a vector canvas declares its visible region.
func (r Rect) ViewBox() string {
	return formatFloat(r.X) + " " + formatFloat(r.Y) + " " + formatFloat(r.Width) + " " + formatFloat(r.Height)
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// InBounds reports whether r lies entirely inside the plane.
func (r Rect) InBounds() bool {
	return r.X >= 0 && r.Y >= 0 && r.X <= Width-r.Width && r.Y <= Height-r.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f)", r.X, r.Y, r.Width, r.Height)
}

// ScreenToPlane maps a pointer position to plane units using the current
// viewport. The same formula holds at every zoom level. The caller must not
// pass a screen rect with zero area.
func ScreenToPlane(pointerX, pointerY float64, viewport Rect, screen ScreenRect) Point {
	scaleX := viewport.Width / screen.Width
	scaleY := viewport.Height / screen.Height
	return Point{
		X: (pointerX-screen.Left)*scaleX + viewport.X,
		Y: (pointerY-screen.Top)*scaleY + viewport.Y,
	}
}

// PlaneToScreen is the inverse of ScreenToPlane.
func PlaneToScreen(p Point, viewport Rect, screen ScreenRect) (float64, float64) {
	scaleX := screen.Width / viewport.Width
	scaleY := screen.Height / viewport.Height
	return (p.X-viewport.X)*scaleX + screen.Left, (p.Y-viewport.Y)*scaleY + screen.Top
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampPoint pins p inside the plane.
func ClampPoint(p Point) Point {
	return Point{X: Clamp(p.X, 0, Width), Y: Clamp(p.Y, 0, Height)}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
