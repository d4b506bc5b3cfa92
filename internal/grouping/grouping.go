// Package grouping partitions clubs into individually drawn markers and
// city clusters, and lays out an expanded cluster's members.
package grouping

import (
	"math"
	"unicode/utf8"

	"clubmap/core-go/internal/naming"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/roster"
)

// ExpandRadius is the radius, in plane units, of the circle an expanded
// cluster's members are placed on.
const ExpandRadius = 25.0

const (
	minLabelFont = 2.0
	maxLabelFont = 6.0
	labelFill    = 0.65
)

// Positioner resolves a club's current position, override-aware.
type Positioner interface {
	Position(c roster.Club) plane.Point
}

// Cluster is derived per render and never stored.
type Cluster struct {
	Key      string        `json:"key"`
	City     string        `json:"city"`
	Country  string        `json:"country"`
	Centroid plane.Point   `json:"centroid"`
	Members  []roster.Club `json:"members"`
}

type Partition struct {
	Clusters []Cluster
	Singles  []roster.Club
}

// Placement is where a member of an expanded cluster is drawn.
type Placement struct {
	ClubID     string      `json:"club_id"`
	Position   plane.Point `json:"position"`
	Overridden bool        `json:"overridden"`
}

// Group partitions clubs for the current country filter. Without a selected
// country nothing is clustered; country markers carry the density reduction
// at that scale. With a country selected, clubs outside it are dropped and
// every city shared by more than one club becomes a cluster.
func Group(clubs []roster.Club, selectedCountry string, pos Positioner) Partition {
	if naming.NormalizeKey(selectedCountry) == "" {
		singles := make([]roster.Club, len(clubs))
		copy(singles, clubs)
		return Partition{Clusters: []Cluster{}, Singles: singles}
	}

	var order []string
	groups := make(map[string][]roster.Club)
	var singles []roster.Club
	for _, c := range clubs {
		if !naming.SameName(c.Country, selectedCountry) {
			continue
		}
		key := naming.CityKey(c.City, c.Country)
		if key == "" {
			singles = append(singles, c)
			continue
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}

	out := Partition{Clusters: []Cluster{}, Singles: []roster.Club{}}
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			out.Singles = append(out.Singles, members[0])
			continue
		}
		out.Clusters = append(out.Clusters, Cluster{
			Key:      key,
			City:     members[0].City,
			Country:  members[0].Country,
			Centroid: Centroid(members, pos),
			Members:  members,
		})
	}
	out.Singles = append(out.Singles, singles...)
	return out
}

// Centroid is the mean of the members' current positions.
func Centroid(members []roster.Club, pos Positioner) plane.Point {
	if len(members) == 0 {
		return plane.Point{}
	}
	var sx, sy float64
	for _, m := range members {
		p := pos.Position(m)
		sx += p.X
		sy += p.Y
	}
	n := float64(len(members))
	return plane.Point{X: sx / n, Y: sy / n}
}

// FindCluster returns the cluster with the given key.
func (p Partition) FindCluster(key string) (Cluster, bool) {
	for _, c := range p.Clusters {
		if c.Key == key {
			return c, true
		}
	}
	return Cluster{}, false
}

// CircleLayout spreads n members evenly on a circle of ExpandRadius around
// the centroid, starting at angle 0. A member with an override keeps it.
func CircleLayout(centroid plane.Point, members []roster.Club, override func(id string) (plane.Point, bool)) []Placement {
	n := len(members)
	out := make([]Placement, 0, n)
	for i, m := range members {
		if override != nil {
			if p, ok := override(m.ID); ok {
				out = append(out, Placement{ClubID: m.ID, Position: p, Overridden: true})
				continue
			}
		}
		angle := 2 * math.Pi * float64(i) / float64(n)
		out = append(out, Placement{
			ClubID: m.ID,
			Position: plane.Point{
				X: centroid.X + ExpandRadius*math.Cos(angle),
				Y: centroid.Y + ExpandRadius*math.Sin(angle),
			},
		})
	}
	return out
}

// LabelFontSize sizes a label so it stays inside a circular marker of the
// given radius. Non-increasing in label length.
func LabelFontSize(radius float64, label string) float64 {
	n := utf8.RuneCountInString(label)
	if n == 0 {
		return maxLabelFont
	}
	size := (2 * radius * labelFill) / (float64(n) * labelFill)
	return plane.Clamp(size, minLabelFont, maxLabelFont)
}
