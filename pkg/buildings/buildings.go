// Package buildings turns raw building features into typed records with a
// projected footprint and a resolved height.
package buildings

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ChicagoDave/sunnysips/pkg/geo"
	"github.com/ChicagoDave/sunnysips/pkg/validation"
)

// Building is an immutable footprint with a resolved height. Footprint
// parts are in local meters.
type Building struct {
	Footprint    []geo.Polygon `json:"-"`
	HeightM      float64       `json:"height_m"`
	HeightSource string        `json:"height_source"`
	OSMID        *int64        `json:"osm_id,omitempty"`
	Category     string        `json:"building_type"`
}

// Bound returns the bounding box of all footprint parts.
func (b Building) Bound() geo.Bound {
	var out geo.Bound
	for i, p := range b.Footprint {
		if i == 0 {
			out = p.Bound()
			continue
		}
		out = out.Union(p.Bound())
	}
	return out
}

// Area returns the footprint area in square meters.
func (b Building) Area() float64 {
	total := 0.0
	for _, p := range b.Footprint {
		total += p.Area()
	}
	return total
}

// LoadFile reads a building FeatureCollection from path.
func LoadFile(path string, proj geo.Projection) ([]Building, *validation.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading buildings %s: %w", path, err)
	}
	bs, report, err := Decode(data, proj)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding buildings %s: %w", path, err)
	}
	return bs, report, nil
}

// Decode parses GeoJSON building features into records. Features without a
// usable polygonal geometry are skipped and tallied in the report.
func Decode(data []byte, proj geo.Projection) ([]Building, *validation.Report, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, err
	}
	return FromFeatures(fc, proj)
}

// FromFeatures converts decoded features into building records.
func FromFeatures(fc *geojson.FeatureCollection, proj geo.Projection) ([]Building, *validation.Report, error) {
	report := validation.NewReport()
	tally := validation.NewTally(validation.LevelGeometry)
	out := make([]Building, 0, len(fc.Features))

	for _, f := range fc.Features {
		if f.Geometry == nil {
			tally.Add("geometry.missing", "skipped feature without geometry")
			continue
		}
		parts, ok := footprint(f.Geometry, proj, tally)
		if !ok {
			continue
		}
		props := map[string]any(f.Properties)
		height, source := ResolveHeight(props)
		out = append(out, Building{
			Footprint:    parts,
			HeightM:      height,
			HeightSource: source,
			OSMID:        osmID(props["osm_id"]),
			Category:     category(props),
		})
	}

	tally.Warnings(report)
	report.AddInfo(validation.Result{
		Level:   validation.LevelData,
		Message: fmt.Sprintf("loaded %d of %d building features", len(out), len(fc.Features)),
		Path:    "buildings",
		Count:   len(out),
	})
	return out, report, nil
}

// footprint projects a polygonal geometry, repairing invalid parts.
func footprint(g orb.Geometry, proj geo.Projection, tally *validation.Tally) ([]geo.Polygon, bool) {
	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		tally.Add("geometry.non_polygon", "skipped non-polygonal geometry")
		return nil, false
	}

	parts := make([]geo.Polygon, 0, len(polys))
	for _, op := range polys {
		p := proj.Polygon(op)
		if p.IsEmpty() {
			continue
		}
		if !p.IsValid() {
			repaired, ok := geo.Repair(p)
			if !ok {
				tally.Add("geometry.irreparable", "dropped irreparable polygon part")
				continue
			}
			tally.Add("geometry.repaired", "repaired invalid polygon part")
			p = repaired
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		tally.Add("geometry.empty", "skipped empty geometry")
		return nil, false
	}
	return parts, true
}

// category prefers the OSM building tag, then the BBR use code.
func category(props map[string]any) string {
	if s, ok := props[PropBuilding].(string); ok && s != "" {
		return s
	}
	switch v := props[PropBBRUse].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "yes"
}

func osmID(v any) *int64 {
	switch n := v.(type) {
	case float64:
		id := int64(n)
		return &id
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return nil
		}
		return &id
	}
	return nil
}
