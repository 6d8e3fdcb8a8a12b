// Package city loads the per-city configuration file of a project.
package city

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the city file looked up inside a project directory.
const FileName = "city.yaml"

// ErrUnknownArea is returned for area names missing from the city file.
var ErrUnknownArea = errors.New("unknown area")

// Load reads a city configuration from a YAML file and fills defaults.
func Load(path string) (*City, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading city file: %w", err)
	}

	var c City
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing city YAML: %w", err)
	}
	c.dir = filepath.Dir(path)
	c.applyDefaults()

	return &c, nil
}

// LoadProject loads a city configuration from a project directory.
// It looks for city.yaml in the given directory.
func LoadProject(projectDir string) (*City, error) {
	return Load(filepath.Join(projectDir, FileName))
}

// Copenhagen returns the built-in configuration used when no project
// directory is given.
func Copenhagen() *City {
	c := &City{
		SpecVersion:   "0.1.0",
		ID:            "copenhagen",
		DisplayName:   "Copenhagen",
		Timezone:      "Europe/Copenhagen",
		BBox:          BBox{12.50, 55.66, 12.64, 55.73},
		Reference:     &LonLat{12.568, 55.676},
		ProviderOrder: []string{"dmi", "met_no", "open_meteo"},
		DefaultArea:   "core-cph",
		Areas: []Area{
			{Name: "core-cph", BBox: BBox{12.500, 55.660, 12.640, 55.730}},
			{Name: "indre-by", BBox: BBox{12.560, 55.675, 12.600, 55.695}},
			{Name: "norrebro", BBox: BBox{12.520, 55.680, 12.590, 55.720}},
			{Name: "frederiksberg", BBox: BBox{12.500, 55.660, 12.560, 55.700}},
			{Name: "osterbro", BBox: BBox{12.560, 55.690, 12.640, 55.730}},
		},
		Neighborhoods: []Area{
			{Name: "Indre By", BBox: BBox{12.560, 55.675, 12.600, 55.695}},
			{Name: "Norrebro", BBox: BBox{12.520, 55.680, 12.590, 55.720}},
			{Name: "Frederiksberg", BBox: BBox{12.500, 55.660, 12.560, 55.700}},
			{Name: "Osterbro", BBox: BBox{12.560, 55.690, 12.640, 55.730}},
		},
		Data: DataFiles{
			Cafes:     "data/cafes_copenhagen.geojson",
			Buildings: "data/buildings.geojson",
		},
	}
	c.dir = "."
	c.applyDefaults()
	return c
}

func (c *City) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		c.loc = loc
	}
	if c.DisplayName == "" {
		c.DisplayName = c.ID
	}
	if len(c.ProviderOrder) == 0 {
		c.ProviderOrder = []string{"met_no", "open_meteo"}
	}
	if c.Defaults.Limit == 0 {
		c.Defaults.Limit = 200
	}
	if c.Defaults.MinDurationMin == 0 {
		c.Defaults.MinDurationMin = 30
	}
	if len(c.Defaults.PreferredPeriods) == 0 {
		c.Defaults.PreferredPeriods = []string{"morning", "lunch", "afternoon"}
	}
	if c.Defaults.Days == 0 {
		c.Defaults.Days = 5
	}
}
