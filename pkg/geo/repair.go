package geo

import (
	"fmt"
	"math"

	"github.com/engelsjk/polygol"
)

// Union merges polygons into a set of non-overlapping polygons.
func Union(polys ...Polygon) ([]Polygon, error) {
	var geoms []polygol.Geom
	for _, p := range polys {
		if p.IsEmpty() {
			continue
		}
		geoms = append(geoms, toGeom(p))
	}
	if len(geoms) == 0 {
		return nil, nil
	}
	out, err := polygol.Union(geoms[0], geoms[1:]...)
	if err != nil {
		return nil, fmt.Errorf("union of %d polygons: %w", len(geoms), err)
	}
	return fromGeom(out), nil
}

// Repair returns a valid version of p. Valid input is returned unchanged.
// Self-intersecting rings are resolved through a self-union and the largest
// resulting part is kept. ok is false when nothing polygonal survives.
func Repair(p Polygon) (Polygon, bool) {
	p = dedupe(p)
	if p.IsEmpty() {
		return Polygon{}, false
	}
	if p.IsValid() {
		return p, true
	}
	parts, err := Union(p)
	if err != nil || len(parts) == 0 {
		return Polygon{}, false
	}
	best := parts[0]
	for _, part := range parts[1:] {
		if part.Area() > best.Area() {
			best = part
		}
	}
	if best.IsEmpty() || best.Area() <= 0 {
		return Polygon{}, false
	}
	return best, true
}

// dedupe drops consecutive duplicate vertices.
func dedupe(p Polygon) Polygon {
	out := Polygon{Exterior: dedupeRing(p.Exterior)}
	for _, h := range p.Holes {
		if h = dedupeRing(h); len(h) >= 3 {
			out.Holes = append(out.Holes, h)
		}
	}
	return out
}

func dedupeRing(r Ring) Ring {
	out := make(Ring, 0, len(r))
	for _, v := range r {
		if len(out) > 0 && out[len(out)-1].Equal(v, 1e-9) {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0].Equal(out[len(out)-1], 1e-9) {
		out = out[:len(out)-1]
	}
	return out
}

func toGeom(p Polygon) polygol.Geom {
	poly := [][][]float64{closeRing(p.Exterior)}
	for _, h := range p.Holes {
		poly = append(poly, closeRing(h))
	}
	return polygol.Geom{poly}
}

func closeRing(r Ring) [][]float64 {
	out := make([][]float64, 0, len(r)+1)
	for _, v := range r {
		out = append(out, []float64{v.X, v.Y})
	}
	if len(r) > 0 {
		out = append(out, []float64{r[0].X, r[0].Y})
	}
	return out
}

func fromGeom(g polygol.Geom) []Polygon {
	out := make([]Polygon, 0, len(g))
	for _, poly := range g {
		if len(poly) == 0 {
			continue
		}
		p := Polygon{Exterior: openRing(poly[0])}
		for _, h := range poly[1:] {
			p.Holes = append(p.Holes, openRing(h))
		}
		if !p.IsEmpty() && math.Abs(p.Exterior.SignedArea()) > 0 {
			out = append(out, p)
		}
	}
	return out
}

func openRing(r [][]float64) Ring {
	out := make(Ring, 0, len(r))
	for _, c := range r {
		if len(c) < 2 {
			continue
		}
		out = append(out, Point2D{c[0], c[1]})
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}
