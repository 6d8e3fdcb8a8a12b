// Package spatial indexes building footprints for candidate lookups.
package spatial

import (
	"sort"

	"github.com/tidwall/rtree"

	"github.com/ChicagoDave/sunnysips/pkg/buildings"
	"github.com/ChicagoDave/sunnysips/pkg/geo"
)

// DefaultMaxHeight is reported by an index built from no buildings.
const DefaultMaxHeight = 20.0

// Index is an immutable R-tree over building bounds. Entries are referenced
// by their position in the indexed slice.
type Index struct {
	tree      rtree.RTreeG[int]
	records   []buildings.Building
	maxHeight float64
}

// Build indexes every building with a positive height and a non-empty
// footprint. Buildings that fail either check are not indexed.
func Build(bs []buildings.Building) *Index {
	idx := &Index{maxHeight: DefaultMaxHeight}
	for _, b := range bs {
		if b.HeightM <= 0 || !hasArea(b.Footprint) {
			continue
		}
		bound := b.Bound()
		pos := len(idx.records)
		idx.records = append(idx.records, b)
		idx.tree.Insert(
			[2]float64{bound.Min.X, bound.Min.Y},
			[2]float64{bound.Max.X, bound.Max.Y},
			pos,
		)
		if pos == 0 || b.HeightM > idx.maxHeight {
			idx.maxHeight = b.HeightM
		}
	}
	return idx
}

func hasArea(parts []geo.Polygon) bool {
	for _, p := range parts {
		if !p.IsEmpty() && p.Area() > 0 {
			return true
		}
	}
	return false
}

// Candidates returns positions of buildings whose bounds intersect area, in
// ascending order. Callers must still run exact tests on the results.
func (idx *Index) Candidates(area geo.Bound) []int {
	if idx == nil || len(idx.records) == 0 {
		return nil
	}
	var out []int
	idx.tree.Search(
		[2]float64{area.Min.X, area.Min.Y},
		[2]float64{area.Max.X, area.Max.Y},
		func(_, _ [2]float64, pos int) bool {
			out = append(out, pos)
			return true
		},
	)
	sort.Ints(out)
	return out
}

// Near returns candidates within the square bound of a circle around pt.
func (idx *Index) Near(pt geo.Point2D, radius float64) []int {
	return idx.Candidates(geo.BoundAround(pt, radius))
}

// Building returns the record at position i.
func (idx *Index) Building(i int) buildings.Building {
	return idx.records[i]
}

// Len returns the number of indexed buildings.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.records)
}

// MaxHeight returns the tallest indexed height, or DefaultMaxHeight when
// the index is empty.
func (idx *Index) MaxHeight() float64 {
	if idx == nil {
		return DefaultMaxHeight
	}
	return idx.maxHeight
}

// Bound returns the bounds of every indexed building combined.
func (idx *Index) Bound() geo.Bound {
	var out geo.Bound
	for i, b := range idx.records {
		if i == 0 {
			out = b.Bound()
			continue
		}
		out = out.Union(b.Bound())
	}
	return out
}
