// Package sun computes the solar position and daylight bounds for a point on
// the ground.
package sun

import (
	"fmt"
	"math"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// Position holds a solar azimuth (degrees clockwise from north, in [0,360))
// and apparent elevation above the horizon in degrees.
type Position struct {
	Azimuth   float64 `json:"azimuth_deg"`
	Elevation float64 `json:"elevation_deg"`
}

// Above reports whether the sun is strictly higher than minElevation.
func (p Position) Above(minElevation float64) bool {
	return p.Elevation > minElevation
}

// At returns the solar position for an observer at lat/lon at instant t.
// t is normalized to UTC; any location is used only for its instant.
func At(lat, lon float64, t time.Time) Position {
	az, el := Compute(lat, lon, t)
	return Position{Azimuth: az, Elevation: el}
}

// Compute returns azimuth and refraction-corrected elevation in degrees.
func Compute(lat, lon float64, t time.Time) (azimuth, elevation float64) {
	obs := astral.Observer{Latitude: lat, Longitude: lon}
	zenith, az := astral.ZenithAndAzimuth(obs, t.UTC(), true)
	return math.Mod(az+360.0, 360.0), 90.0 - zenith
}

// Daylight returns sunrise and sunset for the calendar day of date at the
// given location, in date's location. Polar day or night yields an error.
func Daylight(lat, lon float64, date time.Time) (sunrise, sunset time.Time, err error) {
	obs := astral.Observer{Latitude: lat, Longitude: lon}
	sunrise, sunset, err = astral.Daylight(obs, date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("daylight for %s: %w", date.Format(time.DateOnly), err)
	}
	loc := date.Location()
	return sunrise.In(loc), sunset.In(loc), nil
}
