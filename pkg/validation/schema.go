package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/city"
)

// KnownProviders lists the weather provider names the router understands.
var KnownProviders = []string{"dmi", "met_no", "open_meteo"}

// KnownPeriods lists the preferred period names recommendations accept.
var KnownPeriods = []string{"morning", "lunch", "afternoon", "evening"}

// ValidateCity performs schema validation on a parsed city file.
// It checks structural correctness before any data is loaded.
func ValidateCity(c *city.City) *Report {
	r := NewReport()

	validateIdentity(c, r)
	validateTimezone(c, r)
	validateBBox(c.BBox, "bbox", r)
	validateReference(c, r)
	validateProviders(c, r)
	validateAreas(c, r)
	validateDefaults(c, r)
	validateData(c, r)

	return r
}

func validateIdentity(c *city.City, r *Report) {
	if strings.TrimSpace(c.ID) == "" {
		r.AddError(Result{
			Level:    LevelSchema,
			Message:  "city_id must not be empty",
			Path:     "city_id",
			Expected: "non-empty identifier",
		})
	}
}

func validateTimezone(c *city.City, r *Report) {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("timezone %q is not a valid IANA zone", c.Timezone),
			Path:        "timezone",
			ActualValue: c.Timezone,
			Expected:    "IANA zone name, e.g. Europe/Copenhagen",
		})
	}
}

func validateBBox(b city.BBox, path string, r *Report) {
	if b.MinLon() >= b.MaxLon() || b.MinLat() >= b.MaxLat() {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s must have min < max on both axes", path),
			Path:        path,
			ActualValue: b,
			Expected:    "[min_lon, min_lat, max_lon, max_lat]",
		})
		return
	}
	if b.MinLon() < -180 || b.MaxLon() > 180 || b.MinLat() < -90 || b.MaxLat() > 90 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("%s is outside WGS84 range", path),
			Path:        path,
			ActualValue: b,
			Expected:    "lon in [-180,180], lat in [-90,90]",
		})
	}
}

func validateReference(c *city.City, r *Report) {
	if c.Reference == nil {
		r.AddInfo(Result{
			Level:   LevelSchema,
			Message: "reference not set, using bbox center",
			Path:    "reference",
		})
		return
	}
	if !c.BBox.Contains(c.Reference.Lon(), c.Reference.Lat()) {
		r.AddWarning(Result{
			Level:       LevelSchema,
			Message:     "reference point lies outside the city bbox",
			Path:        "reference",
			ActualValue: *c.Reference,
		})
	}
}

func validateProviders(c *city.City, r *Report) {
	for i, p := range c.ProviderOrder {
		if !contains(KnownProviders, p) {
			r.AddWarning(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("provider %q is unknown and will be skipped", p),
				Path:        fmt.Sprintf("provider_order[%d]", i),
				ActualValue: p,
				Suggestions: KnownProviders,
			})
		}
	}
}

func validateAreas(c *city.City, r *Report) {
	seen := map[string]bool{}
	for i, a := range c.Areas {
		path := fmt.Sprintf("areas[%d]", i)
		if a.Name == "" {
			r.AddError(Result{Level: LevelSchema, Message: "area name must not be empty", Path: path + ".name"})
		}
		if seen[a.Name] {
			r.AddError(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("duplicate area %q", a.Name),
				Path:        path + ".name",
				ActualValue: a.Name,
			})
		}
		seen[a.Name] = true
		validateBBox(a.BBox, path+".bbox", r)
	}
	if c.DefaultArea != "" && !seen[c.DefaultArea] {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("default_area %q is not defined in areas", c.DefaultArea),
			Path:        "default_area",
			ActualValue: c.DefaultArea,
			Suggestions: c.AreaNames(),
		})
	}
	for i, n := range c.Neighborhoods {
		validateBBox(n.BBox, fmt.Sprintf("neighborhoods[%d].bbox", i), r)
	}
}

func validateDefaults(c *city.City, r *Report) {
	d := c.Defaults
	if d.Days < 1 || d.Days > 5 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("defaults.days %d is outside valid range (1-5)", d.Days),
			Path:        "defaults.days",
			ActualValue: d.Days,
			Expected:    "1-5",
		})
	}
	if d.MinDurationMin < 0 || d.MinDurationMin > 24*60 {
		r.AddError(Result{
			Level:       LevelSchema,
			Message:     fmt.Sprintf("defaults.min_duration_min %d is outside valid range (0-1440)", d.MinDurationMin),
			Path:        "defaults.min_duration_min",
			ActualValue: d.MinDurationMin,
			Expected:    "0-1440",
		})
	}
	for i, p := range d.PreferredPeriods {
		if !contains(KnownPeriods, strings.ToLower(strings.TrimSpace(p))) {
			r.AddWarning(Result{
				Level:       LevelSchema,
				Message:     fmt.Sprintf("preferred period %q never matches", p),
				Path:        fmt.Sprintf("defaults.preferred_periods[%d]", i),
				ActualValue: p,
				Suggestions: KnownPeriods,
			})
		}
	}
}

func validateData(c *city.City, r *Report) {
	if c.Data.Cafes == "" {
		r.AddError(Result{Level: LevelSchema, Message: "data.cafes must be set", Path: "data.cafes"})
	}
	if c.Data.Buildings == "" {
		r.AddWarning(Result{
			Level:   LevelSchema,
			Message: "data.buildings not set, no shadows will be cast",
			Path:    "data.buildings",
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
