package city

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"
)

// City is the configuration of one metro area.
type City struct {
	SpecVersion   string    `yaml:"spec_version" json:"spec_version"`
	ID            string    `yaml:"city_id" json:"city_id"`
	DisplayName   string    `yaml:"display_name" json:"display_name"`
	Timezone      string    `yaml:"timezone" json:"timezone"`
	BBox          BBox      `yaml:"bbox" json:"bbox"`
	Reference     *LonLat   `yaml:"reference,omitempty" json:"reference,omitempty"`
	ProviderOrder []string  `yaml:"provider_order" json:"provider_order"`
	DefaultArea   string    `yaml:"default_area" json:"default_area,omitempty"`
	Areas         []Area    `yaml:"areas" json:"areas,omitempty"`
	Neighborhoods []Area    `yaml:"neighborhoods" json:"neighborhoods,omitempty"`
	Data          DataFiles `yaml:"data" json:"-"`
	Defaults      Defaults  `yaml:"defaults" json:"-"`

	dir string
	loc *time.Location
}

// LonLat is a WGS84 coordinate pair in lon, lat order.
type LonLat [2]float64

// Lon returns the longitude.
func (p LonLat) Lon() float64 { return p[0] }

// Lat returns the latitude.
func (p LonLat) Lat() float64 { return p[1] }

// BBox is min_lon, min_lat, max_lon, max_lat.
type BBox [4]float64

func (b BBox) MinLon() float64 { return b[0] }
func (b BBox) MinLat() float64 { return b[1] }
func (b BBox) MaxLon() float64 { return b[2] }
func (b BBox) MaxLat() float64 { return b[3] }

// Contains reports whether lon/lat lies inside or on the box.
func (b BBox) Contains(lon, lat float64) bool {
	return lon >= b[0] && lon <= b[2] && lat >= b[1] && lat <= b[3]
}

// Center returns the midpoint of the box.
func (b BBox) Center() LonLat {
	return LonLat{(b[0] + b[2]) / 2, (b[1] + b[3]) / 2}
}

// Area is a named bounding box.
type Area struct {
	Name string `yaml:"name" json:"name"`
	BBox BBox   `yaml:"bbox" json:"bbox"`
}

// DataFiles locates the datasets of a city, relative to the project dir.
type DataFiles struct {
	Cafes     string `yaml:"cafes"`
	Buildings string `yaml:"buildings"`
}

// Defaults holds request defaults for the city.
type Defaults struct {
	Limit            int      `yaml:"limit"`
	MinDurationMin   int      `yaml:"min_duration_min"`
	PreferredPeriods []string `yaml:"preferred_periods"`
	Days             int      `yaml:"days"`
}

// OtherNeighborhood is reported for points outside every neighborhood.
const OtherNeighborhood = "Other"

// Location returns the city's time zone, falling back to UTC when the
// zone could not be loaded.
func (c *City) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Ref returns the reference point for sun position and local projection.
// It is the configured reference or the bbox center.
func (c *City) Ref() LonLat {
	if c.Reference != nil {
		return *c.Reference
	}
	return c.BBox.Center()
}

// Path resolves a data path relative to the project directory.
func (c *City) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.dir, rel)
}

// Dir returns the project directory the city was loaded from.
func (c *City) Dir() string {
	return c.dir
}

// Area returns the bbox of a named area. An empty name selects the
// default area, or the city bbox when none is set.
func (c *City) Area(name string) (BBox, error) {
	if name == "" {
		name = c.DefaultArea
	}
	if name == "" {
		return c.BBox, nil
	}
	for _, a := range c.Areas {
		if a.Name == name {
			return a.BBox, nil
		}
	}
	return BBox{}, fmt.Errorf("%w %q, choices: %v", ErrUnknownArea, name, c.AreaNames())
}

// AreaNames returns the configured area names, sorted.
func (c *City) AreaNames() []string {
	names := make([]string, 0, len(c.Areas))
	for _, a := range c.Areas {
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}

// Neighborhood returns the first neighborhood containing lon/lat.
func (c *City) Neighborhood(lon, lat float64) string {
	for _, n := range c.Neighborhoods {
		if n.BBox.Contains(lon, lat) {
			return n.Name
		}
	}
	return OtherNeighborhood
}

// NeighborhoodNames returns neighborhood names in configured order, plus
// OtherNeighborhood.
func (c *City) NeighborhoodNames() []string {
	names := make([]string, 0, len(c.Neighborhoods)+1)
	for _, n := range c.Neighborhoods {
		names = append(names, n.Name)
	}
	return append(names, OtherNeighborhood)
}
