package geo

import "math"

// ClipToConvex clips the subject ring to a convex clip polygon using
// the Sutherland-Hodgman algorithm. Holes of the subject are dropped.
// The clipper must be counterclockwise.
func ClipToConvex(subject, clipper Polygon) Polygon {
	if subject.IsEmpty() || clipper.IsEmpty() {
		return Polygon{}
	}
	output := make(Ring, len(subject.Exterior))
	copy(output, subject.Exterior)

	clipN := len(clipper.Exterior)
	for i := 0; i < clipN; i++ {
		if len(output) == 0 {
			return Polygon{}
		}
		edgeStart, edgeEnd := clipper.Exterior.Edge(i)
		input := output
		output = make(Ring, 0, len(input))

		for j := 0; j < len(input); j++ {
			current := input[j]
			next := input[(j+1)%len(input)]
			curInside := isInsideEdge(current, edgeStart, edgeEnd)
			nextInside := isInsideEdge(next, edgeStart, edgeEnd)

			switch {
			case curInside && nextInside:
				output = append(output, next)
			case curInside && !nextInside:
				if ix, ok := lineIntersection(current, next, edgeStart, edgeEnd); ok {
					output = append(output, ix)
				}
			case !curInside && nextInside:
				if ix, ok := lineIntersection(current, next, edgeStart, edgeEnd); ok {
					output = append(output, ix)
				}
				output = append(output, next)
			}
		}
	}
	if len(output) < 3 {
		return Polygon{}
	}
	return Polygon{Exterior: output}
}

// ClipToBound clips p to an axis-aligned rectangle.
func ClipToBound(p Polygon, b Bound) Polygon {
	if !p.Bound().Intersects(b) {
		return Polygon{}
	}
	return ClipToConvex(p.EnsureCCW(), b.Polygon())
}

// isInsideEdge returns true if the point is on the inside (left) of the
// directed edge from edgeStart to edgeEnd.
func isInsideEdge(p, edgeStart, edgeEnd Point2D) bool {
	return edgeEnd.Sub(edgeStart).Cross(p.Sub(edgeStart)) >= 0
}

// lineIntersection returns the intersection point of lines (p1→p2) and (p3→p4).
func lineIntersection(p1, p2, p3, p4 Point2D) (Point2D, bool) {
	d := (p1.X-p2.X)*(p3.Y-p4.Y) - (p1.Y-p2.Y)*(p3.X-p4.X)
	if math.Abs(d) < 1e-12 {
		return Point2D{}, false
	}
	t := ((p1.X-p3.X)*(p3.Y-p4.Y) - (p1.Y-p3.Y)*(p3.X-p4.X)) / d
	return p1.Add(p2.Sub(p1).Scale(t)), true
}
