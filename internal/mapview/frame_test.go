package mapview

import "testing"

func TestFrame_Overview(t *testing.T) {
	s, _ := newTestState(t)
	f := s.Frame()
	if f.ViewBox != "0 0 1000 600" {
		t.Fatalf("expected full view box, got %q", f.ViewBox)
	}
	if f.Zoom != "overview" || f.SelectedCountry != nil {
		t.Fatalf("unexpected frame header %+v", f)
	}
	if len(f.Countries) != 3 {
		t.Fatalf("expected country markers at overview, got %d", len(f.Countries))
	}
	if len(f.Clusters) != 0 || len(f.Markers) != len(testClubs()) {
		t.Fatalf("expected every club drawn individually, got %d markers %d clusters", len(f.Markers), len(f.Clusters))
	}
	for _, m := range f.Markers {
		if m.FontSize < 2 || m.FontSize > 6 {
			t.Fatalf("font size out of range for %s: %v", m.ClubID, m.FontSize)
		}
	}
}

func TestFrame_ExpandedCity(t *testing.T) {
	s, _ := newTestState(t)
	_ = s.SelectCountry("England")
	_, _ = s.ExpandCity("london|england")

	f := s.Frame()
	if f.Zoom != "city" || f.ExpandedCity == nil || *f.ExpandedCity != "london|england" {
		t.Fatalf("unexpected frame header zoom=%s expanded=%v", f.Zoom, f.ExpandedCity)
	}
	if len(f.Countries) != 0 {
		t.Fatalf("expected no country markers below overview")
	}
	if len(f.Markers) != 1 || f.Markers[0].ClubID != "leeds" {
		t.Fatalf("expected leeds as the only single, got %+v", f.Markers)
	}
	if len(f.Clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(f.Clusters))
	}
	cl := f.Clusters[0]
	if !cl.Expanded || cl.Count != 2 || len(cl.Members) != 2 {
		t.Fatalf("expected expanded london with 2 members, got %+v", cl)
	}
	if cl.Label != "London" {
		t.Fatalf("expected label London, got %q", cl.Label)
	}
}

func TestFrame_CollapsedClusterHasNoMembers(t *testing.T) {
	s, _ := newTestState(t)
	_ = s.SelectCountry("England")
	f := s.Frame()
	if len(f.Clusters) != 1 || f.Clusters[0].Expanded || f.Clusters[0].Members != nil {
		t.Fatalf("expected one collapsed cluster, got %+v", f.Clusters)
	}
}
