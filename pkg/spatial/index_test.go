package spatial

import (
	"reflect"
	"testing"

	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/geo"
)

func box(x0, y0, size, height float64) buildings.Building {
	return buildings.Building{
		Footprint: []geo.Polygon{geo.NewPolygon(
			geo.Pt(x0, y0), geo.Pt(x0+size, y0), geo.Pt(x0+size, y0+size), geo.Pt(x0, y0+size),
		)},
		HeightM:      height,
		HeightSource: buildings.SourceHeightTag,
	}
}

func TestBuildEmpty(t *testing.T) {
	idx := Build(nil)
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d", idx.Len())
	}
	if got := idx.Candidates(geo.Bound{Min: geo.Pt(-1e6, -1e6), Max: geo.Pt(1e6, 1e6)}); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
	if idx.MaxHeight() != DefaultMaxHeight {
		t.Errorf("expected default max height %f, got %f", DefaultMaxHeight, idx.MaxHeight())
	}
}

func TestBuildExcludesUnusable(t *testing.T) {
	flat := box(0, 0, 10, 0)
	negative := box(20, 0, 10, -4)
	empty := buildings.Building{HeightM: 10}
	degenerate := buildings.Building{
		Footprint: []geo.Polygon{geo.NewPolygon(geo.Pt(0, 0), geo.Pt(5, 0), geo.Pt(10, 0))},
		HeightM:   10,
	}
	ok := box(40, 0, 10, 12)

	idx := Build([]buildings.Building{flat, negative, empty, degenerate, ok})
	if idx.Len() != 1 {
		t.Fatalf("expected 1 indexed building, got %d", idx.Len())
	}
	if idx.Building(0).HeightM != 12 {
		t.Errorf("expected the 12 m building, got %f", idx.Building(0).HeightM)
	}
	if idx.MaxHeight() != 12 {
		t.Errorf("expected max height 12, got %f", idx.MaxHeight())
	}
}

func TestCandidatesAscending(t *testing.T) {
	bs := []buildings.Building{
		box(0, 0, 10, 10),
		box(100, 100, 10, 30),
		box(5, 5, 10, 8),
		box(-50, -50, 10, 6),
	}
	idx := Build(bs)
	got := idx.Candidates(geo.Bound{Min: geo.Pt(-1, -1), Max: geo.Pt(20, 20)})
	if !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("expected [0 2], got %v", got)
	}
	if idx.MaxHeight() != 30 {
		t.Errorf("expected max height 30, got %f", idx.MaxHeight())
	}
}

func TestNear(t *testing.T) {
	idx := Build([]buildings.Building{box(0, 0, 10, 10), box(100, 0, 10, 10)})
	got := idx.Near(geo.Pt(50, 5), 45)
	if len(got) != 0 {
		t.Errorf("expected no candidates within 45 m, got %v", got)
	}
	got = idx.Near(geo.Pt(50, 5), 50)
	if !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("expected both buildings within 50 m, got %v", got)
	}
}

func TestBound(t *testing.T) {
	idx := Build([]buildings.Building{box(0, 0, 10, 10), box(100, -20, 10, 10)})
	b := idx.Bound()
	if b.Min != geo.Pt(0, -20) || b.Max != geo.Pt(110, 10) {
		t.Errorf("unexpected bound %+v", b)
	}
}
