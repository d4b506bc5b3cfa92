package sqlcgen

import "time"

// ClubPosition is one stored row per club. Seeded rows carry the roster
// default with Manual=false; rows written by a drag release have Manual=true.
type ClubPosition struct {
	ClubID    string
	X         *float64
	Y         *float64
	Manual    bool
	UpdatedAt time.Time
}
