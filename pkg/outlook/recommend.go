package outlook

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ChicagoDave/sunnysips/pkg/ranking"
)

// Period is a named half-open span of local hours.
type Period struct {
	Name  string
	Start int
	End   int
}

// Periods lists the preference periods a user can name.
var Periods = []Period{
	{"morning", 6, 11},
	{"lunch", 11, 14},
	{"afternoon", 14, 18},
	{"evening", 18, 22},
}

// DefaultPeriods is used when a request names none.
var DefaultPeriods = []string{"morning", "lunch", "afternoon"}

// MatchesPeriod reports whether hour falls inside any named period.
// Names are matched case-insensitively.
func MatchesPeriod(hour int, names []string) bool {
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		for _, p := range Periods {
			if p.Name == n && hour >= p.Start && hour < p.End {
				return true
			}
		}
	}
	return false
}

// CafeWindows groups the windows of one café.
type CafeWindows struct {
	CafeID   string
	CafeName string
	Windows  []Window
}

// Recommendation is a scored outing suggestion.
type Recommendation struct {
	CafeID      string    `json:"cafe_id"`
	CafeName    string    `json:"cafe_name"`
	StartUTC    time.Time `json:"start_utc"`
	EndUTC      time.Time `json:"end_utc"`
	StartLocal  time.Time `json:"start_local"`
	EndLocal    time.Time `json:"end_local"`
	DurationMin int       `json:"duration_min"`
	Condition   string    `json:"condition"`
	Score       float64   `json:"score"`
	Reason      string    `json:"reason"`
}

// Score weights.
const (
	maxDurationWeight = 40.0
	sunnyWeight       = 30.0
	partialWeight     = 15.0
	soonWeight        = 20.0
	soonDecayPerHour  = 2.0
	preferredBonus    = 10.0
)

// RankRecommendations scores every window that has not ended by now and
// orders them by score descending, then start, café name and café id
// ascending.
func RankRecommendations(groups []CafeWindows, periods []string, now time.Time) []Recommendation {
	out := []Recommendation{}
	for _, g := range groups {
		for _, w := range g.Windows {
			if !w.EndUTC.After(now) {
				continue
			}
			out = append(out, recommend(g, w, periods, now))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.StartUTC.Equal(b.StartUTC) {
			return a.StartUTC.Before(b.StartUTC)
		}
		if a.CafeName != b.CafeName {
			return a.CafeName < b.CafeName
		}
		return a.CafeID < b.CafeID
	})
	return out
}

func recommend(g CafeWindows, w Window, periods []string, now time.Time) Recommendation {
	hoursUntil := math.Max(0, w.StartUTC.Sub(now).Hours())
	preferred := MatchesPeriod(w.StartLocal.Hour(), periods)

	score := math.Min(maxDurationWeight, float64(w.DurationMin)/3)
	if w.Condition == ranking.Sunny {
		score += sunnyWeight
	} else {
		score += partialWeight
	}
	score += math.Max(0, soonWeight-soonDecayPerHour*hoursUntil)
	if preferred {
		score += preferredBonus
	}

	return Recommendation{
		CafeID:      g.CafeID,
		CafeName:    g.CafeName,
		StartUTC:    w.StartUTC,
		EndUTC:      w.EndUTC,
		StartLocal:  w.StartLocal,
		EndLocal:    w.EndLocal,
		DurationMin: w.DurationMin,
		Condition:   w.Condition,
		Score:       round(score, 2),
		Reason:      reason(w, preferred),
	}
}

func reason(w Window, preferred bool) string {
	var parts []string
	switch {
	case w.DurationMin >= 90:
		parts = append(parts, "long sun window")
	case w.DurationMin >= 45:
		parts = append(parts, "solid sun window")
	default:
		parts = append(parts, "short sun window")
	}
	if preferred {
		parts = append(parts, "matches preferred period")
	}
	if w.Condition == ranking.Sunny {
		parts = append(parts, "high direct-sun potential")
	}
	return strings.Join(parts, ", ")
}
