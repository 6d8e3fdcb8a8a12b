package ranking

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
)

// --- Shadows tests ---

func TestShadowsNearBuilding(t *testing.T) {
	e := NewEngine(refLon, refLat)
	idx := spatial.Build([]buildings.Building{rect(-5, 10, 5, 20, 30)})

	fc := e.Shadows(idx, refLon, refLat, 100, summerNoon)
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 shadow feature, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if _, ok := f.Geometry.(orb.Polygon); !ok {
		t.Errorf("expected polygon geometry, got %T", f.Geometry)
	}
	if f.Properties["height_m"] != 30.0 {
		t.Errorf("expected height 30, got %v", f.Properties["height_m"])
	}
	// Noon sun from the south pushes the shadow north of the footprint.
	b := f.Geometry.Bound()
	if b.Min.Lat() <= refLat {
		t.Errorf("expected shadow north of reference, got min lat %.6f", b.Min.Lat())
	}
}

func TestShadowsClippedToRadius(t *testing.T) {
	e := NewEngine(refLon, refLat)
	idx := spatial.Build([]buildings.Building{rect(-5, 10, 5, 20, 30)})

	fc := e.Shadows(idx, refLon, refLat, 15, summerNoon)
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 shadow feature, got %d", len(fc.Features))
	}
	// 15 m north of the reference is about 0.000135 degrees of latitude.
	maxLat := refLat + 15.5/111320.0
	if got := fc.Features[0].Geometry.Bound().Max.Lat(); got > maxLat {
		t.Errorf("expected shadow clipped below lat %.6f, got %.6f", maxLat, got)
	}
}

func TestShadowsFarAway(t *testing.T) {
	e := NewEngine(refLon, refLat)
	idx := spatial.Build([]buildings.Building{rect(2000, 2000, 2010, 2010, 20)})
	if fc := e.Shadows(idx, refLon, refLat, 50, summerNoon); len(fc.Features) != 0 {
		t.Errorf("expected no shadows, got %d", len(fc.Features))
	}
}

func TestShadowsLowSun(t *testing.T) {
	e := NewEngine(refLon, refLat)
	idx := spatial.Build([]buildings.Building{rect(-5, 10, 5, 20, 30)})
	fc := e.Shadows(idx, refLon, refLat, 100, winterNight)
	if fc == nil || len(fc.Features) != 0 {
		t.Errorf("expected empty collection at night, got %v", fc)
	}
}
