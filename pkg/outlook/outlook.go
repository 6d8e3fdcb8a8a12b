// Package outlook turns hourly sun classifications into sun windows and
// ranked recommendations.
package outlook

import (
	"strings"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/cafes"
	"github.com/ChicagoDave/sunnysips/pkg/ranking"
	"github.com/ChicagoDave/sunnysips/pkg/spatial"
)

// DefaultCloud is assumed for hours without weather data.
const DefaultCloud = 50.0

// MaxDays bounds an outlook request.
const MaxDays = 5

// Include parts of an outlook response.
const (
	IncludeHourly  = "hourly"
	IncludeWindows = "windows"
)

// HourlyRow is the classification of one café for one hour.
type HourlyRow struct {
	TimeUTC        time.Time `json:"time_utc"`
	TimeLocal      time.Time `json:"time_local"`
	Timezone       string    `json:"timezone"`
	Condition      string    `json:"condition"`
	Score          float64   `json:"score"`
	ConfidenceHint float64   `json:"confidence_hint"`
	CloudCover     float64   `json:"cloud_cover_pct"`
}

// Available reports whether the hour counts toward a sun window.
func (r HourlyRow) Available() bool {
	return r.Condition == ranking.Sunny || r.Condition == ranking.Partial
}

// Range is an inclusive span of whole UTC hours.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange starts at now truncated to the hour and covers days*24 hours.
// days is clamped to [1, MaxDays].
func NewRange(now time.Time, days int) Range {
	days = max(1, min(MaxDays, days))
	start := now.UTC().Truncate(time.Hour)
	return Range{Start: start, End: start.Add(time.Duration(days*24-1) * time.Hour)}
}

// Hours lists every hour in the range.
func (r Range) Hours() []time.Time {
	var out []time.Time
	for t := r.Start; !t.After(r.End); t = t.Add(time.Hour) {
		out = append(out, t)
	}
	return out
}

// Clouds returns cloud cover for an hour.
type Clouds interface {
	Cloud(t time.Time) (float64, bool)
}

// Scorer ranks cafés for one instant.
type Scorer interface {
	Rank(cs []cafes.Cafe, idx *spatial.Index, t time.Time, cloudPct float64, limit int) []ranking.Result
}

// Builder produces hourly rows for single cafés.
type Builder struct {
	Scorer   Scorer
	Index    *spatial.Index
	Location *time.Location
}

// Hourly classifies c for every hour of r. Hours missing from clouds use
// DefaultCloud. now anchors the confidence hint.
func (b Builder) Hourly(c cafes.Cafe, r Range, clouds Clouds, now time.Time) []HourlyRow {
	loc := b.Location
	if loc == nil {
		loc = time.UTC
	}
	hours := r.Hours()
	rows := make([]HourlyRow, 0, len(hours))
	for _, t := range hours {
		cloud := DefaultCloud
		if clouds != nil {
			if v, ok := clouds.Cloud(t); ok {
				cloud = v
			}
		}

		res := ranking.Result{SunElevation: 1}
		if ranked := b.Scorer.Rank([]cafes.Cafe{c}, b.Index, t, cloud, 1); len(ranked) > 0 {
			res = ranked[0]
		}

		rows = append(rows, HourlyRow{
			TimeUTC:        t,
			TimeLocal:      t.In(loc),
			Timezone:       loc.String(),
			Condition:      ranking.ClassifyCondition(res, cloud),
			Score:          round(res.SunnyScore, 1),
			ConfidenceHint: ConfidenceHint(max(0, t.Sub(now).Hours())),
			CloudCover:     round(cloud, 1),
		})
	}
	return rows
}

// ConfidenceHint is a heuristic trust level for a forecast hoursAhead in
// the future. It is not a probability.
func ConfidenceHint(hoursAhead float64) float64 {
	switch {
	case hoursAhead <= 24:
		return 0.9
	case hoursAhead <= 48:
		return 0.8
	case hoursAhead <= 72:
		return 0.72
	case hoursAhead <= 96:
		return 0.65
	case hoursAhead <= 120:
		return 0.58
	default:
		return 0.5
	}
}

// ParseInclude reads a comma separated include list. Unknown parts are
// ignored; an empty result selects both hourly rows and windows.
func ParseInclude(raw string) map[string]bool {
	out := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == IncludeHourly || p == IncludeWindows {
			out[p] = true
		}
	}
	if len(out) == 0 {
		out[IncludeHourly] = true
		out[IncludeWindows] = true
	}
	return out
}
