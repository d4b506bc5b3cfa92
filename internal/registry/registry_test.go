package registry

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"clubmap/core-go/internal/plane"
	"clubmap/core-go/internal/roster"
)

func testClubs() []roster.Club {
	return []roster.Club{
		{ID: "a", Name: "A", Country: "England", City: "London", DefaultPosition: plane.Point{X: 10, Y: 20}},
		{ID: "b", Name: "B", Country: "England", City: "London", DefaultPosition: plane.Point{X: 30, Y: 40}},
		{ID: "c", Name: "C", Country: "Spain", City: "Madrid", DefaultPosition: plane.Point{X: 50, Y: 60}},
	}
}

func assertPositionInvariant(t *testing.T, r *Registry) {
	t.Helper()
	for _, c := range r.Clubs() {
		want := c.DefaultPosition
		if o, ok := r.Override(c.ID); ok {
			want = o
		}
		if got := r.Position(c); got != want {
			t.Fatalf("club %s: expected %+v, got %+v", c.ID, want, got)
		}
	}
}

func TestPosition_DefaultThenOverride(t *testing.T) {
	r := New(testClubs())
	assertPositionInvariant(t, r)

	if !r.SetOverride("a", plane.Point{X: 200, Y: 200}) {
		t.Fatalf("expected override to be accepted")
	}
	assertPositionInvariant(t, r)

	p, ok := r.PositionOf("a")
	if !ok || p != (plane.Point{X: 200, Y: 200}) {
		t.Fatalf("expected (200,200), got %+v ok=%v", p, ok)
	}

	r.SetOverride("a", plane.Point{X: 1, Y: 2})
	if p, _ := r.PositionOf("a"); p != (plane.Point{X: 1, Y: 2}) {
		t.Fatalf("expected last write to win, got %+v", p)
	}
	assertPositionInvariant(t, r)
}

func TestSetOverride_UnknownClub(t *testing.T) {
	r := New(testClubs())
	if r.SetOverride("nope", plane.Point{X: 1, Y: 1}) {
		t.Fatalf("expected unknown club to be rejected")
	}
	if len(r.Overrides()) != 0 {
		t.Fatalf("expected no overrides")
	}
}

func TestNew_CopiesTable(t *testing.T) {
	clubs := testClubs()
	r := New(clubs)
	clubs[0].DefaultPosition = plane.Point{X: 999, Y: 599}
	if p, _ := r.PositionOf("a"); p != (plane.Point{X: 10, Y: 20}) {
		t.Fatalf("expected registry table to be independent of caller slice, got %+v", p)
	}
}

type fakeLoader struct {
	rows []Override
	err  error
}

func (f fakeLoader) LoadOverrides(ctx context.Context) ([]Override, error) {
	return f.rows, f.err
}

func TestHydrate(t *testing.T) {
	r := New(testClubs())
	n := r.Hydrate(context.Background(), zerolog.New(io.Discard), fakeLoader{rows: []Override{
		{ClubID: "b", Position: plane.Point{X: 5, Y: 6}},
		{ClubID: "ghost", Position: plane.Point{X: 7, Y: 8}},
	}})
	if n != 1 {
		t.Fatalf("expected 1 override applied, got %d", n)
	}
	if p, _ := r.PositionOf("b"); p != (plane.Point{X: 5, Y: 6}) {
		t.Fatalf("expected hydrated override, got %+v", p)
	}
	assertPositionInvariant(t, r)
}

func TestHydrate_LoadFailureDegradesToDefaults(t *testing.T) {
	r := New(testClubs())
	n := r.Hydrate(context.Background(), zerolog.New(io.Discard), fakeLoader{err: errors.New("boom")})
	if n != 0 || len(r.Overrides()) != 0 {
		t.Fatalf("expected empty override map, got %d", n)
	}
	assertPositionInvariant(t, r)
}

type recordingSeeder struct {
	got []roster.Club
}

func (s *recordingSeeder) EnsureSeeded(ctx context.Context, clubs []roster.Club) error {
	s.got = clubs
	return nil
}

func TestEnsureSeeded_PassesEveryClub(t *testing.T) {
	r := New(testClubs())
	s := &recordingSeeder{}
	if err := r.EnsureSeeded(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.got) != 3 {
		t.Fatalf("expected 3 clubs passed to seeder, got %d", len(s.got))
	}
}
