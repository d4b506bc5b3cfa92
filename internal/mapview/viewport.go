package mapview

import "clubmap/core-go/internal/plane"

// FocusViewport centres a viewport of size plane/factor on center, clamped so
// it never leaves the plane.
func FocusViewport(center plane.Point, factor float64) plane.Rect {
	w := plane.Width / factor
	h := plane.Height / factor
	return plane.Rect{
		X:      plane.Clamp(center.X-w/2, 0, plane.Width-w),
		Y:      plane.Clamp(center.Y-h/2, 0, plane.Height-h),
		Width:  w,
		Height: h,
	}
}

// FocusOnPoint moves the viewport onto center at the zoom level whose divisor
// equals factor. Only the divisors 1, 3 and 8 are accepted. Focusing at
// factor 1 is a reset.
func (s *State) FocusOnPoint(center plane.Point, factor float64) error {
	level, ok := ZoomForFactor(factor)
	if !ok {
		return ErrUnsupportedZoom
	}
	if level == ZoomOverview {
		s.Reset()
		return nil
	}
	s.focus(center, level)
	return nil
}

func (s *State) focus(center plane.Point, level ZoomLevel) {
	s.viewport = FocusViewport(center, level.Divisor())
	s.zoom = level
	if level != ZoomCity {
		s.expandedCity = ""
	}
}

// Reset returns to the full-plane overview and clears the selection.
func (s *State) Reset() {
	s.viewport = plane.Full()
	s.zoom = ZoomOverview
	s.selectedCountry = ""
	s.expandedCity = ""
	s.swallowClick = false
}
