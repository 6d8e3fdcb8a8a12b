package outlook

import (
	"log/slog"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/sun"
)

// Day is the sunrise and sunset of one local calendar day.
type Day struct {
	Date    string    `json:"date"`
	Sunrise time.Time `json:"sunrise_local"`
	Sunset  time.Time `json:"sunset_local"`
}

// Daylight lists sunrise and sunset for every local day touched by r.
// Days without a sunrise or sunset (polar day or night) are left out.
func Daylight(r Range, loc *time.Location, lat, lon float64) []Day {
	if loc == nil {
		loc = time.UTC
	}
	out := []Day{}
	seen := map[string]bool{}
	for _, t := range r.Hours() {
		local := t.In(loc)
		date := local.Format(time.DateOnly)
		if seen[date] {
			continue
		}
		seen[date] = true

		noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, loc)
		rise, set, err := sun.Daylight(lat, lon, noon)
		if err != nil {
			slog.Debug("no daylight bounds", "date", date, "error", err)
			continue
		}
		out = append(out, Day{Date: date, Sunrise: rise, Sunset: set})
	}
	return out
}
