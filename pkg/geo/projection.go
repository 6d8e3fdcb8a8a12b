package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// MetersPerDegree is the length of one degree of latitude.
const MetersPerDegree = 111320.0

// Projection is a local equirectangular projection centered on a reference
// point. Distances are accurate to well under a percent across a city.
type Projection struct {
	RefLon float64
	RefLat float64
	cosLat float64
}

// NewProjection returns a projection centered on (refLon, refLat).
func NewProjection(refLon, refLat float64) Projection {
	return Projection{
		RefLon: refLon,
		RefLat: refLat,
		cosLat: math.Cos(refLat * math.Pi / 180),
	}
}

// ToLocal converts lon/lat degrees to local meters.
func (p Projection) ToLocal(lon, lat float64) Point2D {
	return Point2D{
		X: (lon - p.RefLon) * MetersPerDegree * p.cosLat,
		Y: (lat - p.RefLat) * MetersPerDegree,
	}
}

// ToLonLat converts local meters back to lon/lat degrees.
func (p Projection) ToLonLat(pt Point2D) (lon, lat float64) {
	lon = p.RefLon
	if p.cosLat != 0 {
		lon += pt.X / (MetersPerDegree * p.cosLat)
	}
	lat = p.RefLat + pt.Y/MetersPerDegree
	return lon, lat
}

// Ring converts an orb ring into a local ring. A closing vertex equal to
// the first one is dropped.
func (p Projection) Ring(r orb.Ring) Ring {
	pts := []orb.Point(r)
	if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	out := make(Ring, len(pts))
	for i, v := range pts {
		out[i] = p.ToLocal(v.Lon(), v.Lat())
	}
	return out
}

// Polygon converts an orb polygon into local meters.
func (p Projection) Polygon(poly orb.Polygon) Polygon {
	if len(poly) == 0 {
		return Polygon{}
	}
	out := Polygon{Exterior: p.Ring(poly[0])}
	for _, h := range poly[1:] {
		out.Holes = append(out.Holes, p.Ring(h))
	}
	return out
}

// Orb converts a local polygon back into a closed lon/lat orb polygon.
func (p Projection) Orb(poly Polygon) orb.Polygon {
	out := orb.Polygon{p.orbRing(poly.Exterior)}
	for _, h := range poly.Holes {
		out = append(out, p.orbRing(h))
	}
	return out
}

func (p Projection) orbRing(r Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, v := range r {
		lon, lat := p.ToLonLat(v)
		out = append(out, orb.Point{lon, lat})
	}
	if len(out) > 0 {
		out = append(out, out[0])
	}
	return out
}
