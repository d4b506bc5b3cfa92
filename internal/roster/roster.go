// Package roster loads the static reference data the map is drawn from:
// country markers and the clubs placed on the plane.
package roster

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"clubmap/core-go/internal/plane"
)

//go:embed roster.yaml
var defaultRosterYAML []byte

// Club is a point of interest on the map. Loaded once, never mutated.
type Club struct {
	ID              string      `yaml:"id" json:"id"`
	Name            string      `yaml:"name" json:"name"`
	Country         string      `yaml:"country" json:"country"`
	City            string      `yaml:"city" json:"city"`
	DefaultPosition plane.Point `yaml:"position" json:"default_position"`
}

type Country struct {
	Name     string      `yaml:"name" json:"name"`
	Centroid plane.Point `yaml:"centroid" json:"centroid"`
	Leagues  []string    `yaml:"leagues" json:"leagues"`
}

type Roster struct {
	Countries []Country `yaml:"countries" json:"countries"`
	Clubs     []Club    `yaml:"clubs" json:"clubs"`
}

// Provider supplies the roster at mount time.
type Provider interface {
	Load(ctx context.Context) (Roster, error)
}

// FileProvider reads a roster YAML file from disk. An empty Path yields the
// built-in roster.
type FileProvider struct {
	Path string
}

func (p FileProvider) Load(ctx context.Context) (Roster, error) {
	if err := ctx.Err(); err != nil {
		return Roster{}, err
	}
	if strings.TrimSpace(p.Path) == "" {
		return Default()
	}
	b, err := os.ReadFile(p.Path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster %s: %w", p.Path, err)
	}
	r, err := Parse(b)
	if err != nil {
		return Roster{}, fmt.Errorf("parse roster %s: %w", p.Path, err)
	}
	return r, nil
}

// Default returns the embedded roster.
func Default() (Roster, error) {
	return Parse(defaultRosterYAML)
}

var errEmptyRoster = errors.New("roster has no clubs")

// Parse decodes roster YAML. Clubs with a blank or duplicate id, or a
// position outside the plane, are dropped.
func Parse(b []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Roster{}, err
	}
	r.Clubs = sanitizeClubs(r.Clubs)
	if len(r.Clubs) == 0 {
		return Roster{}, errEmptyRoster
	}
	return r, nil
}

func sanitizeClubs(in []Club) []Club {
	seen := make(map[string]struct{}, len(in))
	out := make([]Club, 0, len(in))
	for _, c := range in {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if !validPosition(c.DefaultPosition) {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func validPosition(p plane.Point) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return false
	}
	return p.X >= 0 && p.X <= plane.Width && p.Y >= 0 && p.Y <= plane.Height
}

// LoadOrDefault never fails: a provider error is logged and the embedded
// roster is used instead.
func LoadOrDefault(ctx context.Context, log zerolog.Logger, p Provider) Roster {
	if p != nil {
		r, err := p.Load(ctx)
		if err == nil {
			return r
		}
		log.Warn().Err(err).Msg("roster load failed; using built-in roster")
	}
	r, err := Default()
	if err != nil {
		// The embedded file is covered by tests; this only trips on a bad build.
		log.Error().Err(err).Msg("built-in roster invalid")
		return Roster{}
	}
	return r
}

// FindCountry looks a country up by normalized name.
func (r Roster) FindCountry(name string) (Country, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, c := range r.Countries {
		if strings.ToLower(strings.TrimSpace(c.Name)) == key {
			return c, true
		}
	}
	return Country{}, false
}
