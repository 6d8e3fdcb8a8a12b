package buildings

import (
	"strconv"
	"strings"
)

// FloorHeight is the assumed height of one storey in meters.
const FloorHeight = 3.0

// DefaultCategoryHeight is used for categories missing from CategoryHeights.
const DefaultCategoryHeight = 9.0

// Height sources, in priority order. Imputed heights use SourceImputedPrefix
// followed by the lowercased building category.
const (
	SourceHeightTag      = "height_tag"
	SourceBBRFloors      = "bbr_floors"
	SourceBBRAltFloors   = "bbr_alt_floors"
	SourceBuildingLevels = "building_levels"
	SourceImputedPrefix  = "imputed_"
)

// Property keys read during height resolution.
const (
	PropHeight         = "height"
	PropBBRFloors      = "byg054AntalEtager"
	PropBBRAltFloors   = "byg055AfvigendeEtager"
	PropBuildingLevels = "building:levels"
	PropBuilding       = "building"
	PropBBRUse         = "byg021BygningensAnvendelse"
)

// CategoryHeights maps a building category to a typical height in meters.
var CategoryHeights = map[string]float64{
	"house":       8,
	"residential": 9,
	"apartments":  12,
	"commercial":  14,
	"retail":      12,
	"office":      15,
	"industrial":  11,
	"warehouse":   10,
	"hospital":    18,
	"hotel":       20,
	"school":      12,
	"church":      22,
	"cathedral":   25,
}

// floorSources are tried in order after the explicit height tag.
var floorSources = []struct {
	key    string
	source string
}{
	{PropBBRFloors, SourceBBRFloors},
	{PropBBRAltFloors, SourceBBRAltFloors},
	{PropBuildingLevels, SourceBuildingLevels},
}

// ResolveHeight derives a height in meters from a property bag. Exactly one
// source wins and is returned alongside the height.
func ResolveHeight(props map[string]any) (float64, string) {
	if h, ok := ParseNumber(props[PropHeight]); ok && h > 0 {
		return h, SourceHeightTag
	}
	for _, fs := range floorSources {
		if floors, ok := ParseNumber(props[fs.key]); ok && floors > 0 {
			return floors * FloorHeight, fs.source
		}
	}
	category := Category(props)
	if h, ok := CategoryHeights[category]; ok {
		return h, SourceImputedPrefix + category
	}
	return DefaultCategoryHeight, SourceImputedPrefix + category
}

// Category returns the lowercased OSM building tag, or "yes" when absent.
func Category(props map[string]any) string {
	if s, ok := props[PropBuilding].(string); ok && strings.TrimSpace(s) != "" {
		return strings.ToLower(s)
	}
	return "yes"
}

// ParseNumber reads a numeric property. Strings are lowercased, stripped of
// the unit letter "m" and trimmed, so "12 m" and "12m" parse as 12.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(n), "m", ""))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
