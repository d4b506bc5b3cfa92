package persistence

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"clubmap/core-go/internal/metrics"
	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/roster"
	"clubmap/core-go/internal/sqlcgen"
)

type fakeQueries struct {
	listFn   func(ctx context.Context) ([]sqlcgen.ClubPosition, error)
	getFn    func(ctx context.Context, clubID string) (sqlcgen.ClubPosition, error)
	insertFn func(ctx context.Context, arg sqlcgen.InsertClubPositionIfMissingParams) (int64, error)
	upsertFn func(ctx context.Context, arg sqlcgen.UpsertClubPositionParams) error
}

func (f *fakeQueries) ListClubPositions(ctx context.Context) ([]sqlcgen.ClubPosition, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx)
}

func (f *fakeQueries) GetClubPosition(ctx context.Context, clubID string) (sqlcgen.ClubPosition, error) {
	if f.getFn == nil {
		return sqlcgen.ClubPosition{}, pgx.ErrNoRows
	}
	return f.getFn(ctx, clubID)
}

func (f *fakeQueries) InsertClubPositionIfMissing(ctx context.Context, arg sqlcgen.InsertClubPositionIfMissingParams) (int64, error) {
	if f.insertFn == nil {
		return 1, nil
	}
	return f.insertFn(ctx, arg)
}

func (f *fakeQueries) UpsertClubPosition(ctx context.Context, arg sqlcgen.UpsertClubPositionParams) error {
	if f.upsertFn == nil {
		return nil
	}
	return f.upsertFn(ctx, arg)
}

func ptr(v float64) *float64 { return &v }

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestLoadOverrides_SkipsSeedAndMalformedRows(t *testing.T) {
	q := &fakeQueries{
		listFn: func(ctx context.Context) ([]sqlcgen.ClubPosition, error) {
			return []sqlcgen.ClubPosition{
				{ClubID: "arsenal", X: ptr(200), Y: ptr(210), Manual: true},
				{ClubID: "chelsea", X: ptr(314), Y: ptr(382), Manual: false},
				{ClubID: "leeds", X: nil, Y: ptr(1), Manual: true},
				{ClubID: "celtic", X: ptr(math.NaN()), Y: ptr(1), Manual: true},
				{ClubID: "rangers", X: ptr(5), Y: ptr(math.Inf(1)), Manual: true},
			}, nil
		},
	}
	g := NewGateway(testLogger(), q, GatewayOptions{}, metrics.New())

	got, err := g.LoadOverrides(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ClubID != "arsenal" || got[0].Position != (plane.Point{X: 200, Y: 210}) {
		t.Fatalf("expected only arsenal override, got %+v", got)
	}
}

func TestLoadOverrides_Error(t *testing.T) {
	q := &fakeQueries{listFn: func(ctx context.Context) ([]sqlcgen.ClubPosition, error) {
		return nil, errors.New("connection refused")
	}}
	g := NewGateway(testLogger(), q, GatewayOptions{}, nil)
	if _, err := g.LoadOverrides(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGateway_NilQueries(t *testing.T) {
	g := NewGateway(testLogger(), nil, GatewayOptions{}, nil)
	rows, err := g.LoadOverrides(context.Background())
	if err != nil || rows != nil {
		t.Fatalf("expected empty load, got %v %v", rows, err)
	}
	if err := g.SaveOverride(context.Background(), "a", plane.Point{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := g.EnsureSeeded(context.Background(), []roster.Club{{ID: "a"}}); err != nil {
		t.Fatalf("expected seeding to be skipped, got %v", err)
	}
}

func TestSaveOverride_Upserts(t *testing.T) {
	var got sqlcgen.UpsertClubPositionParams
	q := &fakeQueries{upsertFn: func(ctx context.Context, arg sqlcgen.UpsertClubPositionParams) error {
		got = arg
		return nil
	}}
	g := NewGateway(testLogger(), q, GatewayOptions{}, nil)
	if err := g.SaveOverride(context.Background(), "arsenal", plane.Point{X: 200, Y: 200}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got != (sqlcgen.UpsertClubPositionParams{ClubID: "arsenal", X: 200, Y: 200}) {
		t.Fatalf("unexpected upsert %+v", got)
	}
	if err := g.SaveOverride(context.Background(), "arsenal", plane.Point{X: math.NaN()}); !errors.Is(err, ErrInvalidPosition) {
		t.Fatalf("expected ErrInvalidPosition, got %v", err)
	}
}

func TestSaveOverride_BreakerOpens(t *testing.T) {
	calls := 0
	q := &fakeQueries{upsertFn: func(ctx context.Context, arg sqlcgen.UpsertClubPositionParams) error {
		calls++
		return errors.New("store down")
	}}
	g := NewGateway(testLogger(), q, GatewayOptions{BreakerFailures: 2, BreakerCooldown: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		if err := g.SaveOverride(context.Background(), "a", plane.Point{X: 1, Y: 1}); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	err := g.SaveOverride(context.Background(), "a", plane.Point{X: 1, Y: 1})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected store to be skipped while open, got %d calls", calls)
	}
}

func TestEnsureSeeded_ReadThenWriteIfMissing(t *testing.T) {
	existing := map[string]bool{"arsenal": true}
	var inserted []sqlcgen.InsertClubPositionIfMissingParams
	q := &fakeQueries{
		getFn: func(ctx context.Context, clubID string) (sqlcgen.ClubPosition, error) {
			if existing[clubID] {
				return sqlcgen.ClubPosition{ClubID: clubID}, nil
			}
			if clubID == "broken" {
				return sqlcgen.ClubPosition{}, errors.New("timeout")
			}
			return sqlcgen.ClubPosition{}, pgx.ErrNoRows
		},
		insertFn: func(ctx context.Context, arg sqlcgen.InsertClubPositionIfMissingParams) (int64, error) {
			inserted = append(inserted, arg)
			return 1, nil
		},
	}
	g := NewGateway(testLogger(), q, GatewayOptions{}, nil)

	err := g.EnsureSeeded(context.Background(), []roster.Club{
		{ID: "arsenal", DefaultPosition: plane.Point{X: 1, Y: 1}},
		{ID: "broken", DefaultPosition: plane.Point{X: 2, Y: 2}},
		{ID: "chelsea", DefaultPosition: plane.Point{X: 314, Y: 382}},
	})
	if err == nil {
		t.Fatalf("expected the broken read to be reported")
	}
	if len(inserted) != 1 || inserted[0] != (sqlcgen.InsertClubPositionIfMissingParams{ClubID: "chelsea", X: 314, Y: 382}) {
		t.Fatalf("expected only chelsea seeded with its default, got %+v", inserted)
	}

	existing["chelsea"] = true
	inserted = nil
	_ = g.EnsureSeeded(context.Background(), []roster.Club{{ID: "arsenal"}, {ID: "chelsea"}})
	if len(inserted) != 0 {
		t.Fatalf("expected second run to be idempotent, got %+v", inserted)
	}
}
