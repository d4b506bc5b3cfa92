package mapview

import (
	"fmt"

	"clubmap/core-go/internal/plane"
)

// DragStart begins dragging a club. Only one club may be dragged at a time;
// restarting the same club is a no-op.
func (s *State) DragStart(clubID string) error {
	if s.dragging != "" {
		if s.dragging == clubID {
			return nil
		}
		return ErrDragInProgress
	}
	if _, ok := s.reg.Club(clubID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, clubID)
	}
	s.dragging = clubID
	s.swallowClick = false
	return nil
}

// DragMove converts the pointer into plane units through the live viewport
// and moves the dragged club there. Returns false when idle or when the
// screen rect has no area.
func (s *State) DragMove(pointerX, pointerY float64, screen plane.ScreenRect) (plane.Point, bool) {
	if s.dragging == "" {
		return plane.Point{}, false
	}
	if screen.Width <= 0 || screen.Height <= 0 {
		return plane.Point{}, false
	}
	p := plane.ClampPoint(plane.ScreenToPlane(pointerX, pointerY, s.viewport, screen))
	s.reg.SetOverride(s.dragging, p)
	if s.onMove != nil {
		s.onMove(PositionChange{ClubID: s.dragging, Position: p})
	}
	return p, true
}

// DragEnd finishes the gesture. When the club has an override it is handed to
// the saver exactly once, without waiting on it. The next background click is
// swallowed. Without a preceding DragStart this does nothing.
func (s *State) DragEnd() (PositionChange, bool) {
	if s.dragging == "" {
		return PositionChange{}, false
	}
	id := s.dragging
	s.dragging = ""
	s.swallowClick = true

	p, ok := s.reg.Override(id)
	if !ok {
		return PositionChange{}, false
	}
	if s.saver != nil {
		s.saver.SaveOverrideAsync(id, p)
	}
	return PositionChange{ClubID: id, Position: p}, true
}
