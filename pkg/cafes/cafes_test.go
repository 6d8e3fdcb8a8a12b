package cafes

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

const sampleCafes = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"osm_id": 42, "name": "Kaffebaren", "outdoor_seating": "yes"},
     "geometry": {"type": "Point", "coordinates": [12.5683, 55.6761]}},
    {"type": "Feature", "properties": {"name": "  Corner  "},
     "geometry": {"type": "Point", "coordinates": [12.6, 55.7]}},
    {"type": "Feature", "properties": {"osm_id": "77"},
     "geometry": {"type": "Point", "coordinates": [12.9, 55.9]}},
    {"type": "Feature", "properties": {"osm_id": 78, "name": "Nowhere"}, "geometry": null}
  ]
}`

type box struct{ minLon, minLat, maxLon, maxLat float64 }

func (b box) Contains(lon, lat float64) bool {
	return lon >= b.minLon && lon <= b.maxLon && lat >= b.minLat && lat <= b.maxLat
}

func load(t *testing.T) []Cafe {
	t.Helper()
	cs, _, err := Decode([]byte(sampleCafes))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return cs
}

func TestDecode(t *testing.T) {
	cs, report, err := Decode([]byte(sampleCafes))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cs) != 4 {
		t.Fatalf("expected 4 cafes, got %d", len(cs))
	}
	if cs[0].ID != "osm-42" || cs[0].Name != "Kaffebaren" || cs[0].OutdoorSeating != "yes" {
		t.Errorf("unexpected first cafe %+v", cs[0])
	}
	if cs[1].ID != "Corner-55.7-12.6" {
		t.Errorf("expected name-based id, got %s", cs[1].ID)
	}
	if cs[2].Name != DefaultName || cs[2].ID != "osm-77" {
		t.Errorf("expected default name and osm-77, got %+v", cs[2])
	}
	if cs[3].HasLocation() {
		t.Error("expected cafe without geometry to be unlocated")
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Count != 1 {
		t.Errorf("expected one location warning, got %v", report.Warnings)
	}
}

func TestFeatureIDWithoutName(t *testing.T) {
	if got := FeatureID(nil, "", 12.5, 55.25); got != "cafe-55.25-12.5" {
		t.Errorf("expected cafe-55.25-12.5, got %s", got)
	}
}

func TestHasLocation(t *testing.T) {
	if !New(nil, "a", 1, 2).HasLocation() {
		t.Error("expected located cafe")
	}
	if New(nil, "a", math.NaN(), 2).HasLocation() {
		t.Error("expected NaN longitude to be unlocated")
	}
}

func TestFind(t *testing.T) {
	cs := load(t)
	cases := []struct {
		id   string
		want string
	}{
		{"osm-42", "osm-42"},
		{"OSM-42", "osm-42"},
		{"42", "osm-42"},
		{" corner-55.7-12.6 ", "Corner-55.7-12.6"},
		{"77", "osm-77"},
	}
	for _, c := range cases {
		got, err := Find(cs, c.id)
		if err != nil {
			t.Errorf("Find(%q): %v", c.id, err)
			continue
		}
		if got.ID != c.want {
			t.Errorf("Find(%q): expected %s, got %s", c.id, c.want, got.ID)
		}
	}
}

func TestFindNotFound(t *testing.T) {
	cs := load(t)
	for _, id := range []string{"osm-999", "nope", ""} {
		if _, err := Find(cs, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestWithin(t *testing.T) {
	cs := load(t)
	got := Within(cs, box{12.5, 55.66, 12.64, 55.73})
	if len(got) != 2 {
		t.Fatalf("expected 2 cafes in box, got %d", len(got))
	}
	if got[0].ID != "osm-42" || got[1].ID != "Corner-55.7-12.6" {
		t.Errorf("expected input order preserved, got %s, %s", got[0].ID, got[1].ID)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"a", "b", "a", "c", "b"})
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", got)
	}
}

func TestFeatureCollection(t *testing.T) {
	fc := FeatureCollection(load(t))
	if len(fc.Features) != 3 {
		t.Fatalf("expected 3 located features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["id"] != "osm-42" {
		t.Errorf("expected id property osm-42, got %v", fc.Features[0].Properties["id"])
	}
}
