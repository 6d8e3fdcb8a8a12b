package ranking

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/ChicagoDave/sunnysips/pkg/geo"
	"github.com/ChicagoDave/sunnysips/pkg/shadow"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
	"github.com/ChicagoDave/sunnysips/pkg/sun"
)

// MaxShadowRadius caps the area of a shadow export, in meters.
const MaxShadowRadius = 500.0

// Shadows returns the ground shadows that reach within radius meters of
// lon/lat at t, one lon/lat feature per building, clipped to the square
// around the point. The collection is empty when the sun is below
// shadow.MinElevation.
func (e *Engine) Shadows(idx *spatial.Index, lon, lat, radius float64, t time.Time) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	radius = math.Max(0, math.Min(radius, MaxShadowRadius))

	pos := sun.At(e.Lat, e.Lon, t)
	if !pos.Above(shadow.MinElevation) {
		return fc
	}

	center := e.Proj.ToLocal(lon, lat)
	area := geo.BoundAround(center, radius)
	reach := radius + searchRadius(idx.MaxHeight(), pos.Elevation) + SearchMargin

	for _, i := range idx.Near(center, reach) {
		b := idx.Building(i)
		s := shadow.Project(b.Footprint, b.HeightM, pos.Azimuth, pos.Elevation)
		if s == nil || !s.Bound().Intersects(area) {
			continue
		}
		parts := s.Union()
		if len(parts) == 0 {
			continue
		}
		mp := make(orb.MultiPolygon, 0, len(parts))
		for _, p := range parts {
			clipped := geo.ClipToBound(p, area)
			if clipped.IsEmpty() {
				continue
			}
			mp = append(mp, e.Proj.Orb(clipped))
		}
		if len(mp) == 0 {
			continue
		}
		var g orb.Geometry = mp
		if len(mp) == 1 {
			g = mp[0]
		}
		f := geojson.NewFeature(g)
		f.Properties["height_m"] = b.HeightM
		f.Properties["height_source"] = b.HeightSource
		f.Properties["shadow_length_m"] = round(s.Length(), 1)
		if b.OSMID != nil {
			f.Properties["osm_id"] = *b.OSMID
		}
		fc.Append(f)
	}
	return fc
}
