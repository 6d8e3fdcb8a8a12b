package ranking

import "strings"

// Bucket labels.
const (
	Sunny   = "sunny"
	Partial = "partial"
	Shaded  = "shaded"
)

// HeavyCloud is the cloud cover at which an hour counts as shaded
// regardless of geometry.
const HeavyCloud = 90.0

// Bucket groups a sunny fraction into sunny, partial or shaded.
func Bucket(fraction float64) string {
	switch {
	case fraction >= 0.99:
		return Sunny
	case fraction <= 0.01:
		return Shaded
	default:
		return Partial
	}
}

// ClassifyCondition labels one hourly result for window merging.
func ClassifyCondition(r Result, cloudPct float64) string {
	switch {
	case r.SunElevation <= 0:
		return Shaded
	case cloudPct >= HeavyCloud:
		return Shaded
	case r.SunnyScore >= 55:
		return Sunny
	case r.SunnyScore >= 20:
		return Partial
	default:
		return Shaded
	}
}

// Summary counts results per bucket.
type Summary struct {
	Total    int     `json:"total"`
	Sunny    int     `json:"sunny"`
	Partial  int     `json:"partial"`
	Shaded   int     `json:"shaded"`
	AvgScore float64 `json:"avg_score"`
}

// Summarize tallies results by bucket and averages their scores.
func Summarize(rs []Result) Summary {
	s := Summary{Total: len(rs)}
	sum := 0.0
	for _, r := range rs {
		switch Bucket(r.SunnyFraction) {
		case Sunny:
			s.Sunny++
		case Partial:
			s.Partial++
		default:
			s.Shaded++
		}
		sum += r.SunnyScore
	}
	if len(rs) > 0 {
		s.AvgScore = round(sum/float64(len(rs)), 2)
	}
	return s
}

// Locator names the neighborhood of a coordinate.
type Locator interface {
	Neighborhood(lon, lat float64) string
}

// Criteria selects a subset of ranked results. Empty or "all" values for
// Only and Neighborhood disable those filters; MaxItems <= 0 keeps all.
type Criteria struct {
	Only         string
	Neighborhood string
	MinScore     float64
	Name         string
	MaxItems     int
}

// Filter keeps results matching c, preserving order. loc may be nil when
// no neighborhood filter is set.
func Filter(rs []Result, c Criteria, loc Locator) []Result {
	query := strings.ToLower(strings.TrimSpace(c.Name))
	out := make([]Result, 0, len(rs))
	for _, r := range rs {
		if r.SunnyScore < c.MinScore {
			continue
		}
		if active(c.Only) && Bucket(r.SunnyFraction) != c.Only {
			continue
		}
		if active(c.Neighborhood) && (loc == nil || loc.Neighborhood(r.Lon, r.Lat) != c.Neighborhood) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.Name), query) {
			continue
		}
		out = append(out, r)
	}
	return truncate(out, c.MaxItems)
}

func active(v string) bool {
	return v != "" && v != "all"
}
