package mapview

import (
	"fmt"
	"strings"
)

// ZoomLevel is the discrete drill-down depth of the map.
type ZoomLevel int

const (
	ZoomOverview ZoomLevel = iota
	ZoomCountry
	ZoomCity
)

var zoomDivisors = map[ZoomLevel]float64{
	ZoomOverview: 1,
	ZoomCountry:  3,
	ZoomCity:     8,
}

// Divisor is the factor the full plane is divided by at this level.
func (z ZoomLevel) Divisor() float64 {
	if d, ok := zoomDivisors[z]; ok {
		return d
	}
	return 1
}

func (z ZoomLevel) String() string {
	switch z {
	case ZoomOverview:
		return "overview"
	case ZoomCountry:
		return "country"
	case ZoomCity:
		return "city"
	default:
		return fmt.Sprintf("zoom(%d)", int(z))
	}
}

// ZoomForFactor maps a zoom factor back to its level.
func ZoomForFactor(factor float64) (ZoomLevel, bool) {
	for z, d := range zoomDivisors {
		if d == factor {
			return z, true
		}
	}
	return ZoomOverview, false
}

func ParseZoomLevel(s string) (ZoomLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "overview":
		return ZoomOverview, true
	case "country":
		return ZoomCountry, true
	case "city":
		return ZoomCity, true
	default:
		return ZoomOverview, false
	}
}

// markerRadius keeps markers a similar on-screen size as the viewport shrinks.
func markerRadius(z ZoomLevel) float64 {
	switch z {
	case ZoomCountry:
		return 3
	case ZoomCity:
		return 1.25
	default:
		return 6
	}
}

const clusterRadiusScale = 1.6
