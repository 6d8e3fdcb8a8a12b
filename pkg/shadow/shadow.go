// Package shadow projects flat ground shadows of extruded building footprints.
//
// A building of height h under a sun at elevation e casts a shadow of length
// h/tan(e) opposite the sun. The shadow region is the footprint swept along
// that displacement: the footprint itself, its translated copy and one
// quadrilateral bridging each exterior edge to its translated counterpart.
package shadow

import (
	"math"

	"github.com/ChicagoDave/sunnysips/pkg/geo"
)

const (
	// MinElevation is the sun elevation in degrees at or below which no
	// direct sun is assumed and no shadow geometry is produced.
	MinElevation = 2.0
	// MaxLength caps the shadow length in meters near the horizon.
	MaxLength = 500.0
)

// Shadow is the ground shadow of one building for one sun position. It is
// stored as the list of pieces whose union forms the shadow.
type Shadow struct {
	pieces []geo.Polygon
	bounds []geo.Bound
	bound  geo.Bound
	offset geo.Point2D
}

// Length returns the shadow length in meters for a building of heightM
// under the given elevation, or 0 if no shadow is cast.
func Length(heightM, elevationDeg float64) float64 {
	if elevationDeg <= MinElevation || heightM <= 0 {
		return 0
	}
	tanElev := math.Tan(elevationDeg * math.Pi / 180)
	if tanElev <= 0 {
		return 0
	}
	return math.Min(MaxLength, heightM/tanElev)
}

// Displacement returns the vector from a footprint to its shadow tip.
// ok is false when no shadow is cast.
func Displacement(heightM, azimuthDeg, elevationDeg float64) (d geo.Point2D, ok bool) {
	l := Length(heightM, elevationDeg)
	if l <= 0 {
		return geo.Point2D{}, false
	}
	dir := math.Mod(azimuthDeg+180.0, 360.0)
	return geo.FromAzimuth(dir, l), true
}

// Project returns the shadow cast by a footprint made of one or more
// polygons, or nil when the sun is too low, the height is not positive or
// no part of the footprint is usable.
func Project(footprint []geo.Polygon, heightM, azimuthDeg, elevationDeg float64) *Shadow {
	d, ok := Displacement(heightM, azimuthDeg, elevationDeg)
	if !ok {
		return nil
	}
	s := &Shadow{offset: d}
	for _, part := range footprint {
		s.add(part, d)
	}
	if len(s.pieces) == 0 {
		return nil
	}
	return s
}

// add appends the sweep pieces of one polygon. Invalid polygons are repaired
// first and skipped when nothing survives.
func (s *Shadow) add(poly geo.Polygon, d geo.Point2D) {
	if poly.IsEmpty() {
		return
	}
	if !poly.IsValid() {
		repaired, ok := geo.Repair(poly)
		if !ok {
			return
		}
		poly = repaired
	}
	s.push(poly)
	s.push(poly.Translate(d))

	ext := poly.Exterior
	for i := range ext {
		p1, p2 := ext.Edge(i)
		quad := geo.NewPolygon(p1, p2, p2.Add(d), p1.Add(d))
		if quad.Area() < 1e-9 {
			continue
		}
		s.push(quad)
	}
}

func (s *Shadow) push(p geo.Polygon) {
	b := p.Bound()
	if len(s.pieces) == 0 {
		s.bound = b
	} else {
		s.bound = s.bound.Union(b)
	}
	s.pieces = append(s.pieces, p)
	s.bounds = append(s.bounds, b)
}

// Covers reports whether pt lies inside or on the boundary of the shadow.
func (s *Shadow) Covers(pt geo.Point2D) bool {
	if s == nil || !s.bound.Contains(pt) {
		return false
	}
	for i, p := range s.pieces {
		if s.bounds[i].Contains(pt) && p.Covers(pt) {
			return true
		}
	}
	return false
}

// Bound returns the bounding box of the whole shadow.
func (s *Shadow) Bound() geo.Bound {
	return s.bound
}

// Offset returns the displacement from footprint to shadow tip.
func (s *Shadow) Offset() geo.Point2D {
	return s.offset
}

// Length returns the shadow length in meters.
func (s *Shadow) Length() float64 {
	return s.offset.Length()
}

// Pieces returns the polygons whose union is the shadow.
func (s *Shadow) Pieces() []geo.Polygon {
	return s.pieces
}

// Union materializes the shadow as non-overlapping polygons. If the union
// fails, every piece is repaired on its own and the union is retried. The
// result is empty when that fails too.
func (s *Shadow) Union() []geo.Polygon {
	if s == nil {
		return nil
	}
	out, err := geo.Union(s.pieces...)
	if err == nil {
		return out
	}
	repaired := make([]geo.Polygon, 0, len(s.pieces))
	for _, p := range s.pieces {
		if r, ok := geo.Repair(p); ok {
			repaired = append(repaired, r)
		}
	}
	out, err = geo.Union(repaired...)
	if err != nil {
		return nil
	}
	return out
}
