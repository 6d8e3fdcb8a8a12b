package geo

import "math"

// boundaryEps is the distance within which a point counts as lying on an edge.
const boundaryEps = 1e-9

// Ring is an open sequence of vertices; the closing edge from the last
// vertex back to the first is implied.
type Ring []Point2D

// Polygon is a closed polygon with an exterior ring and optional holes.
type Polygon struct {
	Exterior Ring
	Holes    []Ring
}

// NewPolygon creates a hole-free polygon from a list of vertices.
func NewPolygon(pts ...Point2D) Polygon {
	return Polygon{Exterior: Ring(pts)}
}

// Len returns the number of exterior vertices.
func (p Polygon) Len() int {
	return len(p.Exterior)
}

// IsEmpty returns true if the exterior has fewer than 3 vertices.
func (p Polygon) IsEmpty() bool {
	return len(p.Exterior) < 3
}

// Edge returns the i-th exterior edge as (start, end). Wraps around.
func (r Ring) Edge(i int) (Point2D, Point2D) {
	n := len(r)
	return r[i%n], r[(i+1)%n]
}

// SignedArea returns the signed area using the shoelace formula.
// Positive for counterclockwise winding, negative for clockwise.
func (r Ring) SignedArea() float64 {
	n := len(r)
	if n < 3 {
		return 0
	}
	area := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += r[i].X * r[j].Y
		area -= r[j].X * r[i].Y
	}
	return area / 2
}

// Reverse returns the ring with reversed vertex order.
func (r Ring) Reverse() Ring {
	n := len(r)
	rev := make(Ring, n)
	for i, v := range r {
		rev[n-1-i] = v
	}
	return rev
}

// Translate returns the ring shifted by d.
func (r Ring) Translate(d Point2D) Ring {
	out := make(Ring, len(r))
	for i, v := range r {
		out[i] = v.Add(d)
	}
	return out
}

// Contains reports whether pt is strictly inside the ring using ray casting.
func (r Ring) Contains(pt Point2D) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := r[i]
		vj := r[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// OnBoundary reports whether pt lies on one of the ring's edges.
func (r Ring) OnBoundary(pt Point2D) bool {
	n := len(r)
	for i := 0; i < n; i++ {
		a, b := r.Edge(i)
		if distanceToSegment(pt, a, b) <= boundaryEps {
			return true
		}
	}
	return false
}

// Area returns the unsigned area of the polygon minus its holes.
func (p Polygon) Area() float64 {
	area := math.Abs(p.Exterior.SignedArea())
	for _, h := range p.Holes {
		area -= math.Abs(h.SignedArea())
	}
	return area
}

// IsCounterClockwise returns true if exterior vertices are in CCW order.
func (p Polygon) IsCounterClockwise() bool {
	return p.Exterior.SignedArea() > 0
}

// EnsureCCW returns the polygon with its exterior in counterclockwise order
// and its holes clockwise.
func (p Polygon) EnsureCCW() Polygon {
	out := Polygon{Exterior: p.Exterior}
	if p.Exterior.SignedArea() < 0 {
		out.Exterior = p.Exterior.Reverse()
	}
	for _, h := range p.Holes {
		if h.SignedArea() > 0 {
			h = h.Reverse()
		}
		out.Holes = append(out.Holes, h)
	}
	return out
}

// Translate returns the polygon shifted by d.
func (p Polygon) Translate(d Point2D) Polygon {
	out := Polygon{Exterior: p.Exterior.Translate(d)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Translate(d))
	}
	return out
}

// Bound returns the axis-aligned bounding box of the exterior ring.
func (p Polygon) Bound() Bound {
	if len(p.Exterior) == 0 {
		return Bound{}
	}
	b := Bound{Min: p.Exterior[0], Max: p.Exterior[0]}
	for _, v := range p.Exterior[1:] {
		b = b.Extend(v)
	}
	return b
}

// Contains returns true if the point is strictly inside the polygon and not
// inside any hole.
func (p Polygon) Contains(pt Point2D) bool {
	if !p.Exterior.Contains(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.Contains(pt) && !h.OnBoundary(pt) {
			return false
		}
	}
	return true
}

// Covers is Contains with the boundary included.
func (p Polygon) Covers(pt Point2D) bool {
	if p.IsEmpty() {
		return false
	}
	if p.Exterior.OnBoundary(pt) {
		return true
	}
	for _, h := range p.Holes {
		if h.OnBoundary(pt) {
			return true
		}
	}
	return p.Contains(pt)
}

// IsValid reports whether the polygon is usable as-is: at least three
// distinct vertices, non-zero area and no crossing exterior edges.
func (p Polygon) IsValid() bool {
	if p.IsEmpty() || math.Abs(p.Exterior.SignedArea()) < 1e-12 {
		return false
	}
	return !p.Exterior.selfIntersects()
}

// selfIntersects checks every pair of non-adjacent edges for a proper crossing.
func (r Ring) selfIntersects() bool {
	n := len(r)
	for i := 0; i < n; i++ {
		a1, a2 := r.Edge(i)
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			b1, b2 := r.Edge(j)
			if segmentsCross(a1, a2, b1, b2) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports whether segments a and b intersect at a point that
// is interior to both.
func segmentsCross(a1, a2, b1, b2 Point2D) bool {
	d1 := b2.Sub(b1).Cross(a1.Sub(b1))
	d2 := b2.Sub(b1).Cross(a2.Sub(b1))
	d3 := a2.Sub(a1).Cross(b1.Sub(a1))
	d4 := a2.Sub(a1).Cross(b2.Sub(a1))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func distanceToSegment(p, a, b Point2D) float64 {
	d := b.Sub(a)
	lenSq := d.Dot(d)
	if lenSq < 1e-24 {
		return p.Distance(a)
	}
	t := math.Max(0, math.Min(1, p.Sub(a).Dot(d)/lenSq))
	return p.Distance(a.Add(d.Scale(t)))
}
