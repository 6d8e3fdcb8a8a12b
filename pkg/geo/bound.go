package geo

// Bound is an axis-aligned rectangle in local meters.
type Bound struct {
	Min Point2D `json:"min"`
	Max Point2D `json:"max"`
}

// BoundAround returns the square bound of half-width r centered on p.
func BoundAround(p Point2D, r float64) Bound {
	return Bound{
		Min: Point2D{p.X - r, p.Y - r},
		Max: Point2D{p.X + r, p.Y + r},
	}
}

// Extend grows the bound to include p.
func (b Bound) Extend(p Point2D) Bound {
	if p.X < b.Min.X {
		b.Min.X = p.X
	}
	if p.Y < b.Min.Y {
		b.Min.Y = p.Y
	}
	if p.X > b.Max.X {
		b.Max.X = p.X
	}
	if p.Y > b.Max.Y {
		b.Max.Y = p.Y
	}
	return b
}

// Union returns the smallest bound containing both b and o.
func (b Bound) Union(o Bound) Bound {
	return b.Extend(o.Min).Extend(o.Max)
}

// Intersects reports whether the two bounds overlap or touch.
func (b Bound) Intersects(o Bound) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

// Contains reports whether p lies inside or on the bound.
func (b Bound) Contains(p Point2D) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Polygon returns the bound as a counterclockwise rectangle.
func (b Bound) Polygon() Polygon {
	return NewPolygon(
		b.Min,
		Point2D{b.Max.X, b.Min.Y},
		b.Max,
		Point2D{b.Min.X, b.Max.Y},
	)
}
