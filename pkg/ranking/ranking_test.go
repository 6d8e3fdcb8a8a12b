package ranking

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/geo"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
)

const (
	refLon = 12.568
	refLat = 55.676
)

var (
	// Near solar noon at the June solstice: elevation ~58°, sun due south.
	summerNoon  = time.Date(2024, 6, 21, 11, 7, 0, 0, time.UTC)
	winterNight = time.Date(2024, 12, 21, 2, 0, 0, 0, time.UTC)
)

func rect(x0, y0, x1, y1, height float64) buildings.Building {
	return buildings.Building{
		Footprint: []geo.Polygon{geo.NewPolygon(
			geo.Pt(x0, y0), geo.Pt(x1, y0), geo.Pt(x1, y1), geo.Pt(x0, y1),
		)},
		HeightM:      height,
		HeightSource: buildings.SourceHeightTag,
	}
}

func cafeAt(id int64, name string, lon, lat float64) cafes.Cafe {
	return cafes.New(&id, name, lon, lat)
}

// --- Rank tests ---

func TestRankEmpty(t *testing.T) {
	e := NewEngine(refLon, refLat)
	got := e.Rank(nil, spatial.Build(nil), summerNoon, 0, 0)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestRankNoBuildingsFullSun(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{cafeAt(1, "Solo", refLon, refLat)}
	got := e.Rank(cs, spatial.Build(nil), summerNoon, 0, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	r := got[0]
	if r.SunnyFraction != 1 || r.SunnyScore != 100 || r.InShadow {
		t.Errorf("expected full sun, got %+v", r)
	}
	if r.ID != "osm-1" || r.SunElevation < 55 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestRankLowSunShortCircuit(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{
		cafeAt(1, "Alpha", refLon, refLat),
		cafeAt(2, "Bravo", refLon+0.01, refLat),
		cafeAt(3, "Charlie", refLon+0.02, refLat),
	}
	idx := spatial.Build([]buildings.Building{rect(-20, -30, 20, -8, 30)})
	got, stats := e.RankStats(cs, idx, winterNight, 0, 2)
	if !stats.LowSun {
		t.Error("expected low-sun branch")
	}
	if stats.Candidates != 0 {
		t.Errorf("expected no geometry work, got %d candidates", stats.Candidates)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit 2, got %d", len(got))
	}
	want := []string{"Charlie", "Bravo"}
	for i, r := range got {
		if r.SunnyScore != 0 || r.SunnyFraction != 0 || !r.InShadow {
			t.Errorf("expected shaded result, got %+v", r)
		}
		if r.Name != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, r.Name)
		}
	}
}

func TestRankLowSunOrderMatchesSunnyPath(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{
		cafeAt(1, "Bravo", refLon, refLat),
		cafeAt(2, "Delta", refLon+0.01, refLat),
		cafeAt(3, "Alpha", refLon+0.02, refLat),
	}
	got := e.Rank(cs, spatial.Build(nil), winterNight, 0, 0)
	want := []string{"Delta", "Bravo", "Alpha"}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i, r := range got {
		if r.Name != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, r.Name)
		}
	}
}

func TestRankShadedByBuilding(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{cafeAt(1, "Under", refLon, refLat)}
	idx := spatial.Build([]buildings.Building{rect(-20, -30, 20, -8, 30)})
	got := e.Rank(cs, idx, summerNoon, 0, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if got[0].SunnyFraction != 0 || !got[0].InShadow || got[0].SunnyScore != 0 {
		t.Errorf("expected fully shaded, got %+v", got[0])
	}
}

func TestRankBuildingNorthDoesNotShade(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{cafeAt(1, "Open", refLon, refLat)}
	idx := spatial.Build([]buildings.Building{rect(-20, 10, 20, 30, 30)})
	got := e.Rank(cs, idx, summerNoon, 0, 0)
	if got[0].SunnyFraction != 1 {
		t.Errorf("expected full sun with building to the north, got %+v", got[0])
	}
}

func TestRankPartialShade(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{cafeAt(1, "Edge", refLon, refLat)}
	// Covers the east seat only.
	idx := spatial.Build([]buildings.Building{rect(1.5, -30, 20, -8, 30)})
	got := e.Rank(cs, idx, summerNoon, 0, 0)
	r := got[0]
	if r.SunnyFraction != 0.667 {
		t.Errorf("expected fraction 0.667, got %f", r.SunnyFraction)
	}
	if r.SunnyScore != 66.7 {
		t.Errorf("expected score 66.7, got %f", r.SunnyScore)
	}
	if r.InShadow {
		t.Error("expected partial shade not to count as in shadow")
	}
}

func TestRankWeatherAttenuation(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{cafeAt(1, "Edge", refLon, refLat)}
	idx := spatial.Build([]buildings.Building{rect(1.5, -30, 20, -8, 30)})

	overcast := e.Rank(cs, idx, summerNoon, 100, 0)[0]
	if overcast.SunnyScore != 0 {
		t.Errorf("expected score 0 at full cloud, got %f", overcast.SunnyScore)
	}

	clear := e.Rank(cs, idx, summerNoon, 0, 0)[0]
	want := round(100*2.0/3.0, 1)
	if clear.SunnyScore != want {
		t.Errorf("expected score %f at clear sky, got %f", want, clear.SunnyScore)
	}

	half := e.Rank(cs, spatial.Build(nil), summerNoon, 50, 0)[0]
	if half.SunnyScore != 50 || half.CloudCover != 50 {
		t.Errorf("expected score 50 at half cloud, got %+v", half)
	}
}

func TestRankClampsCloud(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{cafeAt(1, "Solo", refLon, refLat)}
	high := e.Rank(cs, nil, summerNoon, 140, 0)[0]
	if high.SunnyScore != 0 || high.CloudCover != 100 {
		t.Errorf("expected clamp to 100, got %+v", high)
	}
	low := e.Rank(cs, nil, summerNoon, -10, 0)[0]
	if low.SunnyScore != 100 || low.CloudCover != 0 {
		t.Errorf("expected clamp to 0, got %+v", low)
	}
}

func TestRankTieBreakByNameDescending(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{
		cafeAt(1, "Alpha", refLon, refLat),
		cafeAt(2, "Bravo", refLon+0.001, refLat),
	}
	got := e.Rank(cs, spatial.Build(nil), summerNoon, 0, 0)
	if got[0].Name != "Bravo" || got[1].Name != "Alpha" {
		t.Errorf("expected [Bravo Alpha], got [%s %s]", got[0].Name, got[1].Name)
	}
}

func TestRankOrdersByScore(t *testing.T) {
	e := NewEngine(refLon, refLat)
	far := refLon + 0.05
	cs := []cafes.Cafe{
		cafeAt(1, "Shaded", refLon, refLat),
		cafeAt(2, "Sunny", far, refLat),
	}
	idx := spatial.Build([]buildings.Building{rect(-20, -30, 20, -8, 30)})
	got := e.Rank(cs, idx, summerNoon, 0, 1)
	if len(got) != 1 || got[0].Name != "Sunny" {
		t.Errorf("expected only Sunny after limit, got %+v", got)
	}
}

func TestRankSkipsUnlocatedCafes(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{{ID: "ghost", Name: "Ghost"}, cafeAt(1, "Real", refLon, refLat)}
	got := e.Rank(cs, nil, summerNoon, 0, 0)
	if len(got) != 1 || got[0].Name != "Real" {
		t.Errorf("expected only located cafe, got %+v", got)
	}
}

func TestRankShadowCacheReuse(t *testing.T) {
	e := NewEngine(refLon, refLat)
	cs := []cafes.Cafe{
		cafeAt(1, "One", refLon, refLat),
		cafeAt(2, "Two", refLon, refLat),
	}
	idx := spatial.Build([]buildings.Building{rect(1.5, -30, 20, -8, 30)})
	_, stats := e.RankStats(cs, idx, summerNoon, 0, 0)
	if stats.CacheMisses != 1 {
		t.Errorf("expected one shadow projection, got %d", stats.CacheMisses)
	}
	if stats.CacheHits == 0 {
		t.Error("expected cache hits for repeated candidate")
	}
	if stats.Samples != 6 {
		t.Errorf("expected 6 samples, got %d", stats.Samples)
	}
}

func TestRankParallelMatchesSequential(t *testing.T) {
	var cs []cafes.Cafe
	for i := 0; i < 40; i++ {
		lon := refLon + float64(i%8)*0.0002
		lat := refLat + float64(i/8)*0.0002
		cs = append(cs, cafeAt(int64(i+1), "Cafe", lon, lat))
	}
	var bs []buildings.Building
	for i := 0; i < 10; i++ {
		x := float64(i) * 12
		bs = append(bs, rect(x, -25, x+8, -8, 15+float64(i)))
	}
	idx := spatial.Build(bs)

	seq := NewEngine(refLon, refLat)
	par := NewEngine(refLon, refLat)
	par.Workers = 4

	a := seq.Rank(cs, idx, summerNoon, 20, 0)
	b := par.Rank(cs, idx, summerNoon, 20, 0)
	if !reflect.DeepEqual(a, b) {
		t.Error("expected parallel ranking to match sequential ranking")
	}
}

func TestRankContextCancelled(t *testing.T) {
	cs := []cafes.Cafe{
		cafeAt(1, "One", refLon, refLat),
		cafeAt(2, "Two", refLon+0.0002, refLat),
		cafeAt(3, "Three", refLon+0.0004, refLat),
	}
	idx := spatial.Build([]buildings.Building{rect(1.5, -30, 20, -8, 30)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		e := NewEngine(refLon, refLat)
		e.Workers = workers
		got, _, err := e.RankContext(ctx, cs, idx, summerNoon, 0, 0)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
		if got != nil {
			t.Errorf("workers=%d: expected no results, got %d", workers, len(got))
		}
	}
}

func TestRankContextParallelSucceeds(t *testing.T) {
	cs := []cafes.Cafe{
		cafeAt(1, "One", refLon, refLat),
		cafeAt(2, "Two", refLon+0.0002, refLat),
	}
	e := NewEngine(refLon, refLat)
	e.Workers = 2
	got, stats, err := e.RankContext(context.Background(), cs, spatial.Build(nil), summerNoon, 0, 0)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(got) != 2 || stats.Cafes != 2 {
		t.Errorf("expected 2 results, got %d (stats %d)", len(got), stats.Cafes)
	}
}

func TestSearchRadius(t *testing.T) {
	if got := searchRadius(20, 45); got < 19.99 || got > 20.01 {
		t.Errorf("expected ~20, got %f", got)
	}
	if got := searchRadius(100, 3); got != 500 {
		t.Errorf("expected cap 500, got %f", got)
	}
}
