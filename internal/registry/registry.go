// Package registry resolves the current position of every club: the immutable
// roster default unless a user-placed override exists.
package registry

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/roster"
)

// Override is a stored, user-placed position.
type Override struct {
	ClubID   string      `json:"club_id"`
	Position plane.Point `json:"position"`
}

// OverrideLoader is the read half of the persistence gateway.
type OverrideLoader interface {
	LoadOverrides(ctx context.Context) ([]Override, error)
}

// Seeder guarantees one stored row per club.
type Seeder interface {
	EnsureSeeded(ctx context.Context, clubs []roster.Club) error
}

// Registry is not safe for concurrent use; a map session owns one and
// serializes access to it.
type Registry struct {
	clubs     []roster.Club
	byID      map[string]int
	overrides map[string]plane.Point
}

func New(clubs []roster.Club) *Registry {
	table := make([]roster.Club, len(clubs))
	copy(table, clubs)
	byID := make(map[string]int, len(table))
	for i, c := range table {
		byID[c.ID] = i
	}
	return &Registry{
		clubs:     table,
		byID:      byID,
		overrides: make(map[string]plane.Point),
	}
}

// Clubs returns the loaded table in roster order.
func (r *Registry) Clubs() []roster.Club {
	out := make([]roster.Club, len(r.clubs))
	copy(out, r.clubs)
	return out
}

func (r *Registry) Club(id string) (roster.Club, bool) {
	i, ok := r.byID[id]
	if !ok {
		return roster.Club{}, false
	}
	return r.clubs[i], true
}

// Position returns the override for c if one exists, else its default.
func (r *Registry) Position(c roster.Club) plane.Point {
	if p, ok := r.overrides[c.ID]; ok {
		return p
	}
	return c.DefaultPosition
}

func (r *Registry) PositionOf(id string) (plane.Point, bool) {
	c, ok := r.Club(id)
	if !ok {
		return plane.Point{}, false
	}
	return r.Position(c), true
}

func (r *Registry) Override(id string) (plane.Point, bool) {
	p, ok := r.overrides[id]
	return p, ok
}

// SetOverride records p for the club. Last write wins. Unknown ids are
// ignored and reported with false.
func (r *Registry) SetOverride(id string, p plane.Point) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	r.overrides[id] = p
	return true
}

// Overrides lists the current overrides ordered by club id.
func (r *Registry) Overrides() []Override {
	out := make([]Override, 0, len(r.overrides))
	for id, p := range r.overrides {
		out = append(out, Override{ClubID: id, Position: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClubID < out[j].ClubID })
	return out
}

// Hydrate merges stored overrides into the registry. A load failure leaves
// the registry on defaults and is only logged. Returns the number applied.
func (r *Registry) Hydrate(ctx context.Context, log zerolog.Logger, loader OverrideLoader) int {
	if loader == nil {
		return 0
	}
	rows, err := loader.LoadOverrides(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("override load failed; rendering default positions")
		return 0
	}
	applied := 0
	for _, row := range rows {
		if !r.SetOverride(row.ClubID, row.Position) {
			log.Debug().Str("club_id", row.ClubID).Msg("stored position for unknown club ignored")
			continue
		}
		applied++
	}
	return applied
}

// EnsureSeeded asks the seeder to create a stored row for every club lacking one.
func (r *Registry) EnsureSeeded(ctx context.Context, s Seeder) error {
	if s == nil {
		return nil
	}
	return s.EnsureSeeded(ctx, r.Clubs())
}
