// Package persistence stores user-placed club positions in Postgres and
// provides the asynchronous, best-effort write path used by drag releases.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"clubmap/core-go/internal/metrics"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/registry"
	"clubmap/core-go/internal/roster"
	"clubmap/core-go/internal/sqlcgen"
)

// Queries is the minimal DB interface the gateway needs.
// *sqlcgen.Queries satisfies this.
type Queries interface {
	ListClubPositions(ctx context.Context) ([]sqlcgen.ClubPosition, error)
	GetClubPosition(ctx context.Context, clubID string) (sqlcgen.ClubPosition, error)
	InsertClubPositionIfMissing(ctx context.Context, arg sqlcgen.InsertClubPositionIfMissingParams) (int64, error)
	UpsertClubPosition(ctx context.Context, arg sqlcgen.UpsertClubPositionParams) error
}

var (
	ErrUnavailable     = errors.New("position store not configured")
	ErrInvalidPosition = errors.New("position is not a finite point")
)

type Gateway struct {
	log     zerolog.Logger
	q       Queries
	breaker *gobreaker.CircuitBreaker[struct{}]
	metrics *metrics.Metrics
}

type GatewayOptions struct {
	// BreakerFailures is the number of consecutive write failures that opens
	// the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func NewGateway(log zerolog.Logger, q Queries, opts GatewayOptions, m *metrics.Metrics) *Gateway {
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	g := &Gateway{log: log, q: q, metrics: m}
	g.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "club-positions",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("position store breaker state changed")
		},
	})
	return g
}

func (g *Gateway) available() bool {
	return g != nil && g.q != nil
}

// LoadOverrides returns the manually placed positions. Seed rows are not
// overrides. Rows with missing or non-finite coordinates are skipped one by
// one.
func (g *Gateway) LoadOverrides(ctx context.Context) ([]registry.Override, error) {
	if !g.available() {
		return nil, nil
	}
	rows, err := g.q.ListClubPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list club positions: %w", err)
	}
	out := make([]registry.Override, 0, len(rows))
	for _, row := range rows {
		if !row.Manual {
			continue
		}
		p, ok := pointFromRow(row)
		if !ok {
			g.metrics.IncOverrideRowsSkipped()
			g.log.Warn().Str("club_id", row.ClubID).Msg("skipping stored position with unusable coordinates")
			continue
		}
		out = append(out, registry.Override{ClubID: row.ClubID, Position: p})
	}
	return out, nil
}

func pointFromRow(row sqlcgen.ClubPosition) (plane.Point, bool) {
	if row.X == nil || row.Y == nil {
		return plane.Point{}, false
	}
	p := plane.Point{X: *row.X, Y: *row.Y}
	if !finite(p) {
		return plane.Point{}, false
	}
	return p, true
}

func finite(p plane.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// SaveOverride writes one manual position through the circuit breaker.
func (g *Gateway) SaveOverride(ctx context.Context, clubID string, p plane.Point) error {
	if !g.available() {
		return ErrUnavailable
	}
	if !finite(p) {
		return ErrInvalidPosition
	}
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.q.UpsertClubPosition(ctx, sqlcgen.UpsertClubPositionParams{
			ClubID: clubID,
			X:      p.X,
			Y:      p.Y,
		})
	})
	if err != nil {
		return fmt.Errorf("save position for %s: %w", clubID, err)
	}
	return nil
}

// EnsureSeeded reads each club's row and creates it from the roster default
// when missing. Failures for one club do not stop the others.
func (g *Gateway) EnsureSeeded(ctx context.Context, clubs []roster.Club) error {
	if !g.available() {
		return nil
	}
	var errs []error
	created := 0
	for _, c := range clubs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		_, err := g.q.GetClubPosition(ctx, c.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			errs = append(errs, fmt.Errorf("read position for %s: %w", c.ID, err))
			continue
		}
		n, err := g.q.InsertClubPositionIfMissing(ctx, sqlcgen.InsertClubPositionIfMissingParams{
			ClubID: c.ID,
			X:      c.DefaultPosition.X,
			Y:      c.DefaultPosition.Y,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("seed position for %s: %w", c.ID, err))
			continue
		}
		created += int(n)
	}
	g.log.Info().Int("clubs", len(clubs)).Int("created", created).Int("failed", len(errs)).Msg("position seeding finished")
	return errors.Join(errs...)
}
