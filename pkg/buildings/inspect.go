package buildings

import (
	"sort"

	"github.com/paulmach/orb/geojson"
)

// Sample identifies one feature in a coverage report.
type Sample struct {
	OSMID    any    `json:"osm_id"`
	Source   string `json:"source"`
	Height   any    `json:"height"`
	Building any    `json:"building"`
}

// Spread summarizes a set of heights.
type Spread struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Coverage describes how much vertical information a building dataset has.
type Coverage struct {
	Total           int            `json:"total"`
	WithHeight      int            `json:"with_explicit_height"`
	WithVertical    int            `json:"with_usable_vertical_data"`
	Sources         map[string]int `json:"sources"`
	GeometryTypes   map[string]int `json:"geometry_types"`
	ResolvedBy      map[string]int `json:"resolved_by"`
	Heights         *Spread        `json:"heights,omitempty"`
	ProxyHeights    *Spread        `json:"proxy_heights,omitempty"`
	PresentExamples []Sample       `json:"present_examples"`
	MissingExamples []Sample       `json:"missing_examples"`
}

// HeightPct returns the share of features with an explicit height, in percent.
func (c Coverage) HeightPct() float64 {
	if c.Total == 0 {
		return 0
	}
	return 100 * float64(c.WithHeight) / float64(c.Total)
}

// VerticalPct returns the share of features with a height or floor count.
func (c Coverage) VerticalPct() float64 {
	if c.Total == 0 {
		return 0
	}
	return 100 * float64(c.WithVertical) / float64(c.Total)
}

// Inspect computes height coverage over raw features, keeping up to
// sampleSize examples with and without an explicit height.
func Inspect(fc *geojson.FeatureCollection, sampleSize int) Coverage {
	c := Coverage{
		Sources:         map[string]int{},
		GeometryTypes:   map[string]int{},
		ResolvedBy:      map[string]int{},
		PresentExamples: []Sample{},
		MissingExamples: []Sample{},
	}
	var heights, proxies []float64

	for _, f := range fc.Features {
		c.Total++
		props := map[string]any(f.Properties)

		source, _ := props["source"].(string)
		if source == "" {
			source = "unknown"
		}
		c.Sources[source]++

		geomType := "None"
		if f.Geometry != nil {
			geomType = f.Geometry.GeoJSONType()
		}
		c.GeometryTypes[geomType]++

		_, resolved := ResolveHeight(props)
		c.ResolvedBy[resolved]++

		sample := Sample{
			OSMID:    props["osm_id"],
			Source:   source,
			Height:   props[PropHeight],
			Building: props[PropBuilding],
		}
		if h, ok := ParseNumber(props[PropHeight]); ok && h > 0 {
			c.WithHeight++
			heights = append(heights, h)
			if len(c.PresentExamples) < sampleSize {
				c.PresentExamples = append(c.PresentExamples, sample)
			}
		} else if len(c.MissingExamples) < sampleSize {
			c.MissingExamples = append(c.MissingExamples, sample)
		}

		if v, ok := verticalValue(props); ok {
			c.WithVertical++
			proxies = append(proxies, v)
		}
	}

	c.Heights = spread(heights)
	c.ProxyHeights = spread(proxies)
	return c
}

// verticalValue prefers an explicit height, then the BBR floor counts.
// The generic levels tag does not count as vertical data.
func verticalValue(props map[string]any) (float64, bool) {
	if h, ok := ParseNumber(props[PropHeight]); ok && h > 0 {
		return h, true
	}
	for _, key := range []string{PropBBRFloors, PropBBRAltFloors} {
		if floors, ok := ParseNumber(props[key]); ok && floors > 0 {
			return floors * FloorHeight, true
		}
	}
	return 0, false
}

func spread(values []float64) *Spread {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return &Spread{
		Min:    sorted[0],
		Median: sorted[len(sorted)/2],
		Max:    sorted[len(sorted)-1],
	}
}
