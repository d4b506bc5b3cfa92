package mapview

import (
	"clubmap/core-go/internal/grouping"
	"clubmap/core-go/internal/naming"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/roster"
)

// Frame is everything a canvas needs to draw the current state. Marker
// geometry is in plane units; zoom is expressed only through ViewBox.
type Frame struct {
	ViewBox         string          `json:"view_box"`
	Viewport        plane.Rect      `json:"viewport"`
	Zoom            string          `json:"zoom"`
	ZoomLevel       int             `json:"zoom_level"`
	SelectedCountry *string         `json:"selected_country,omitempty"`
	ExpandedCity    *string         `json:"expanded_city,omitempty"`
	Dragging        *string         `json:"dragging,omitempty"`
	Countries       []CountryMarker `json:"countries"`
	Markers         []Marker        `json:"markers"`
	Clusters        []ClusterMarker `json:"clusters"`
}

type CountryMarker struct {
	Name     string      `json:"name"`
	Centroid plane.Point `json:"centroid"`
	Leagues  []string    `json:"leagues"`
	Radius   float64     `json:"radius"`
	FontSize float64     `json:"font_size"`
}

type Marker struct {
	ClubID     string      `json:"club_id"`
	Label      string      `json:"label"`
	Country    string      `json:"country"`
	City       string      `json:"city"`
	Position   plane.Point `json:"position"`
	Overridden bool        `json:"overridden"`
	Radius     float64     `json:"radius"`
	FontSize   float64     `json:"font_size"`
}

type ClusterMarker struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Centroid plane.Point `json:"centroid"`
	Count    int         `json:"count"`
	Radius   float64     `json:"radius"`
	FontSize float64     `json:"font_size"`
	Expanded bool        `json:"expanded"`
	Members  []Marker    `json:"members,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Frame renders the current state. Clusters are recomputed from current
// positions on every call.
func (s *State) Frame() Frame {
	radius := markerRadius(s.zoom)
	f := Frame{
		ViewBox:         s.viewport.ViewBox(),
		Viewport:        s.viewport,
		Zoom:            s.zoom.String(),
		ZoomLevel:       int(s.zoom),
		SelectedCountry: optional(s.selectedCountry),
		ExpandedCity:    optional(s.expandedCity),
		Dragging:        optional(s.dragging),
		Countries:       []CountryMarker{},
		Markers:         []Marker{},
		Clusters:        []ClusterMarker{},
	}

	if s.zoom == ZoomOverview {
		for _, c := range s.countries {
			leagues := c.Leagues
			if leagues == nil {
				leagues = []string{}
			}
			f.Countries = append(f.Countries, CountryMarker{
				Name:     c.Name,
				Centroid: c.Centroid,
				Leagues:  leagues,
				Radius:   radius * clusterRadiusScale,
				FontSize: grouping.LabelFontSize(radius*clusterRadiusScale, c.Name),
			})
		}
	}

	part := s.Partition()
	for _, c := range part.Singles {
		f.Markers = append(f.Markers, s.marker(c, s.reg.Position(c), radius))
	}

	var layout map[string]grouping.Placement
	if s.expandedCity != "" {
		layout = make(map[string]grouping.Placement)
		for _, p := range s.ExpandedLayout() {
			layout[p.ClubID] = p
		}
	}

	for _, cl := range part.Clusters {
		label := naming.DisplayLabel(cl.City, cl.Key)
		cm := ClusterMarker{
			Key:      cl.Key,
			Label:    label,
			Centroid: cl.Centroid,
			Count:    len(cl.Members),
			Radius:   radius * clusterRadiusScale,
			FontSize: grouping.LabelFontSize(radius*clusterRadiusScale, label),
			Expanded: cl.Key == s.expandedCity,
		}
		if cm.Expanded {
			for _, m := range cl.Members {
				pos := s.reg.Position(m)
				if p, ok := layout[m.ID]; ok {
					pos = p.Position
				}
				cm.Members = append(cm.Members, s.marker(m, pos, radius))
			}
		}
		f.Clusters = append(f.Clusters, cm)
	}
	return f
}

func (s *State) marker(c roster.Club, pos plane.Point, radius float64) Marker {
	_, overridden := s.reg.Override(c.ID)
	label := naming.DisplayLabel(c.Name, c.ID)
	return Marker{
		ClubID:     c.ID,
		Label:      label,
		Country:    c.Country,
		City:       c.City,
		Position:   pos,
		Overridden: overridden,
		Radius:     radius,
		FontSize:   grouping.LabelFontSize(radius, label),
	}
}
