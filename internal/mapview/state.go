// Package mapview holds the interactive state of one mounted map: the
// viewport and zoom level, the country/city selection, and the drag gesture.
// All transitions go through State methods so the selection can never
// disagree with the zoom level.
//
// A State is not safe for concurrent use. Callers serialize gestures, which
// matches the single interaction thread of the canvas it backs.
package mapview

import (
	"errors"
	"fmt"

	"clubmap/core-go/internal/grouping"
	"clubmap/core-go/internal/naming"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/registry"
	"clubmap/core-go/internal/roster"
)

var (
	ErrUnknownEntity   = errors.New("unknown club")
	ErrUnknownCountry  = errors.New("unknown country")
	ErrUnknownCity     = errors.New("no cluster for city")
	ErrNoCountry       = errors.New("no country selected")
	ErrDragInProgress  = errors.New("another club is being dragged")
	ErrUnsupportedZoom = errors.New("unsupported zoom factor")
)

// PositionSaver persists a drag result. Implementations must not block.
type PositionSaver interface {
	SaveOverrideAsync(clubID string, pos plane.Point)
}

// PositionChange is emitted while a club is being dragged.
type PositionChange struct {
	ClubID   string      `json:"club_id"`
	Position plane.Point `json:"position"`
}

type Options struct {
	Saver            PositionSaver
	OnPositionChange func(PositionChange)
}

type State struct {
	reg       *registry.Registry
	countries []roster.Country
	saver     PositionSaver
	onMove    func(PositionChange)

	viewport        plane.Rect
	zoom            ZoomLevel
	selectedCountry string
	expandedCity    string
	expandedCenter  plane.Point

	dragging     string
	swallowClick bool
}

func New(reg *registry.Registry, countries []roster.Country, opts Options) *State {
	cs := make([]roster.Country, len(countries))
	copy(cs, countries)
	return &State{
		reg:       reg,
		countries: cs,
		saver:     opts.Saver,
		onMove:    opts.OnPositionChange,
		viewport:  plane.Full(),
		zoom:      ZoomOverview,
	}
}

func (s *State) Registry() *registry.Registry { return s.reg }
func (s *State) Viewport() plane.Rect          { return s.viewport }
func (s *State) Zoom() ZoomLevel               { return s.zoom }
func (s *State) SelectedCountry() string       { return s.selectedCountry }
func (s *State) ExpandedCity() string          { return s.expandedCity }

// Dragging returns the club currently being dragged, if any.
func (s *State) Dragging() (string, bool) {
	return s.dragging, s.dragging != ""
}

func (s *State) country(name string) (roster.Country, bool) {
	for _, c := range s.countries {
		if naming.SameName(c.Name, name) {
			return c, true
		}
	}
	return roster.Country{}, false
}

// SelectCountry zooms onto a country marker. It also serves as the jump used
// for an externally supplied initial country, from any zoom level.
func (s *State) SelectCountry(name string) error {
	c, ok := s.country(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCountry, name)
	}
	s.swallowClick = false
	s.selectedCountry = c.Name
	s.expandedCity = ""
	s.focus(c.Centroid, ZoomCountry)
	return nil
}

// Partition groups the clubs for the current country filter using current
// positions.
func (s *State) Partition() grouping.Partition {
	return grouping.Group(s.reg.Clubs(), s.selectedCountry, s.reg)
}

// ExpandCity opens the cluster with the given city key and zooms onto it.
func (s *State) ExpandCity(key string) (grouping.Cluster, error) {
	if s.selectedCountry == "" {
		return grouping.Cluster{}, ErrNoCountry
	}
	cl, ok := s.Partition().FindCluster(key)
	if !ok {
		return grouping.Cluster{}, fmt.Errorf("%w: %q", ErrUnknownCity, key)
	}
	s.swallowClick = false
	s.focus(cl.Centroid, ZoomCity)
	s.expandedCity = cl.Key
	s.expandedCenter = cl.Centroid
	return cl, nil
}

// ExpandedLayout places the members of the expanded cluster on their circle,
// with overrides taking precedence. Nil when no city is expanded.
func (s *State) ExpandedLayout() []grouping.Placement {
	if s.expandedCity == "" {
		return nil
	}
	cl, ok := s.Partition().FindCluster(s.expandedCity)
	if !ok {
		return nil
	}
	return grouping.CircleLayout(s.expandedCenter, cl.Members, s.reg.Override)
}

// Collapse closes the expanded city, keeping the zoom level.
func (s *State) Collapse() {
	s.expandedCity = ""
}

type ClickOutcome string

const (
	ClickSwallowed ClickOutcome = "swallowed"
	ClickCollapsed ClickOutcome = "collapsed"
	ClickReset     ClickOutcome = "reset"
	ClickNone      ClickOutcome = "none"
)

// BackgroundClick handles a click on empty canvas. The click that follows a
// drag release comes from the same mouse-up and is swallowed once.
func (s *State) BackgroundClick() ClickOutcome {
	if s.swallowClick || s.dragging != "" {
		s.swallowClick = false
		return ClickSwallowed
	}
	if s.expandedCity != "" {
		s.Collapse()
		return ClickCollapsed
	}
	if s.zoom != ZoomOverview || s.selectedCountry != "" {
		s.Reset()
		return ClickReset
	}
	return ClickNone
}

// Validate reports the first broken state invariant, if any.
func (s *State) Validate() error {
	if !s.viewport.InBounds() {
		return fmt.Errorf("viewport %s outside plane", s.viewport)
	}
	if s.expandedCity != "" && s.zoom != ZoomCity {
		return fmt.Errorf("city %q expanded at zoom %s", s.expandedCity, s.zoom)
	}
	if s.selectedCountry != "" && s.zoom == ZoomOverview {
		return fmt.Errorf("country %q selected at overview", s.selectedCountry)
	}
	if s.dragging != "" {
		if _, ok := s.reg.Club(s.dragging); !ok {
			return fmt.Errorf("dragging unknown club %q", s.dragging)
		}
	}
	return nil
}
