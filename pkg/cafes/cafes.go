// Package cafes loads café points and resolves café identifiers.
package cafes

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ChicagoDave/sunnysips/pkg/validation"
)

// DefaultName is used for cafés without a name tag.
const DefaultName = "Unknown Cafe"

// ErrNotFound is returned when no café matches an identifier.
var ErrNotFound = errors.New("cafe not found")

// Cafe is a point of interest with a location.
type Cafe struct {
	ID             string  `json:"id"`
	OSMID          *int64  `json:"osm_id"`
	Name           string  `json:"name"`
	Lon            float64 `json:"lon"`
	Lat            float64 `json:"lat"`
	OutdoorSeating string  `json:"outdoor_seating,omitempty"`
	located        bool
}

// New creates a located café and derives its identifier.
func New(osmID *int64, name string, lon, lat float64) Cafe {
	c := Cafe{OSMID: osmID, Name: name, Lon: lon, Lat: lat, located: true}
	c.ID = FeatureID(osmID, name, lon, lat)
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	return c
}

// HasLocation reports whether the café has finite coordinates.
func (c Cafe) HasLocation() bool {
	return c.located && !math.IsNaN(c.Lon) && !math.IsNaN(c.Lat) &&
		!math.IsInf(c.Lon, 0) && !math.IsInf(c.Lat, 0)
}

// FeatureID builds the public identifier: "osm-<id>" when an OSM id is
// known, otherwise "<name>-<lat>-<lon>".
func FeatureID(osmID *int64, name string, lon, lat float64) string {
	if osmID != nil {
		return fmt.Sprintf("osm-%d", *osmID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "cafe"
	}
	return name + "-" + formatCoord(lat) + "-" + formatCoord(lon)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// LoadFile reads a café FeatureCollection from path.
func LoadFile(path string) ([]Cafe, *validation.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading cafes %s: %w", path, err)
	}
	cs, report, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding cafes %s: %w", path, err)
	}
	return cs, report, nil
}

// Decode parses a GeoJSON FeatureCollection of café points.
func Decode(data []byte) ([]Cafe, *validation.Report, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, err
	}
	cs, report := FromFeatures(fc)
	return cs, report, nil
}

// FromFeatures converts point features into cafés. Features without a
// point location are kept but marked unlocated so ranking skips them.
func FromFeatures(fc *geojson.FeatureCollection) ([]Cafe, *validation.Report) {
	report := validation.NewReport()
	tally := validation.NewTally(validation.LevelData)
	out := make([]Cafe, 0, len(fc.Features))

	for _, f := range fc.Features {
		props := map[string]any(f.Properties)
		name, _ := props["name"].(string)
		id := osmID(props["osm_id"])
		seating, _ := props["outdoor_seating"].(string)

		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			tally.Add("cafes.location", "cafe without point location")
			c := Cafe{OSMID: id, Name: name, located: false}
			c.ID = FeatureID(id, name, 0, 0)
			if strings.TrimSpace(c.Name) == "" {
				c.Name = DefaultName
			}
			c.OutdoorSeating = seating
			out = append(out, c)
			continue
		}
		c := New(id, name, pt.Lon(), pt.Lat())
		c.OutdoorSeating = seating
		out = append(out, c)
	}

	tally.Warnings(report)
	return out, report
}

// Region is anything that can test a lon/lat for membership.
type Region interface {
	Contains(lon, lat float64) bool
}

// Within returns the located cafés inside r, in input order.
func Within(cs []Cafe, r Region) []Cafe {
	out := make([]Cafe, 0, len(cs))
	for _, c := range cs {
		if c.HasLocation() && r.Contains(c.Lon, c.Lat) {
			out = append(out, c)
		}
	}
	return out
}

// Find resolves an identifier against cs. The match is case-insensitive on
// the full id; failing that, "osm-123" or "123" match the OSM id.
func Find(cs []Cafe, id string) (Cafe, error) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for _, c := range cs {
		if strings.ToLower(c.ID) == normalized {
			return c, nil
		}
	}
	normalized = strings.TrimPrefix(normalized, "osm-")
	want, err := strconv.ParseInt(normalized, 10, 64)
	if err != nil {
		return Cafe{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, c := range cs {
		if c.OSMID != nil && *c.OSMID == want {
			return c, nil
		}
	}
	return Cafe{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Dedupe returns ids with duplicates removed, keeping first occurrence.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// FeatureCollection renders cafés back to GeoJSON points.
func FeatureCollection(cs []Cafe) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cs {
		if !c.HasLocation() {
			continue
		}
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.ID = c.ID
		f.Properties["id"] = c.ID
		f.Properties["name"] = c.Name
		if c.OSMID != nil {
			f.Properties["osm_id"] = *c.OSMID
		}
		if c.OutdoorSeating != "" {
			f.Properties["outdoor_seating"] = c.OutdoorSeating
		}
		fc.Append(f)
	}
	return fc
}

func osmID(v any) *int64 {
	switch n := v.(type) {
	case float64:
		id := int64(n)
		return &id
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil
		}
		return &id
	}
	return nil
}
